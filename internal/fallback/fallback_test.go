package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstSuccessStopsAtFirstWinner(t *testing.T) {
	var ran []string
	step := func(name string, value int, err error) Step[int] {
		return Step[int]{Name: name, Run: func(context.Context) (int, error) {
			ran = append(ran, name)
			return value, err
		}}
	}

	value, name, err := FirstSuccess(context.Background(), nil, []Step[int]{
		step("primary", 0, errors.New("boom")),
		step("fallback", 3, nil),
		step("logs", 7, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, value)
	assert.Equal(t, "fallback", name)
	assert.Equal(t, []string{"primary", "fallback"}, ran)
}

func TestFirstSuccessExhausted(t *testing.T) {
	first := errors.New("primary down")
	_, name, err := FirstSuccess(context.Background(), nil, []Step[string]{
		{Name: "primary", Run: func(context.Context) (string, error) { return "", first }},
		{Name: "fallback", Run: func(context.Context) (string, error) { return "", ErrSkip }},
	})

	require.Error(t, err)
	assert.Empty(t, name)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, first)
	assert.NotErrorIs(t, err, ErrSkip)
}

func TestFirstSuccessHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, _, err := FirstSuccess(ctx, nil, []Step[int]{
		{Name: "primary", Run: func(context.Context) (int, error) { called = true; return 1, nil }},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
