package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVSetGetDelete(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(ctx, filepath.Join(t.TempDir(), "store", "donate.db"))
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get(ctx, "donate-goal")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "donate-goal", "12"))
	require.NoError(t, kv.Set(ctx, "donate-goal", "15"))

	value, ok, err := kv.Get(ctx, "donate-goal")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "15", value)

	require.NoError(t, kv.Delete(ctx, "donate-goal"))
	_, ok, err = kv.Get(ctx, "donate-goal")
	require.NoError(t, err)
	assert.False(t, ok)
}
