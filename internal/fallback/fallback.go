// Package fallback runs an ordered list of strategies until one succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrSkip lets a step decline to run without counting as a failure.
var ErrSkip = errors.New("step skipped")

// ErrExhausted wraps the combined failure when no step succeeded.
var ErrExhausted = errors.New("all strategies failed")

// Step is one named strategy.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess runs steps in order and returns the first successful value and the
// name of the step that produced it. Every failure is logged before the next step runs.
func FirstSuccess[T any](ctx context.Context, logger *zap.Logger, steps []Step[T]) (T, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var zero T
	var errs []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		value, err := step.Run(ctx)
		if err == nil {
			return value, step.Name, nil
		}
		if errors.Is(err, ErrSkip) {
			logger.Debug("strategy skipped", zap.String("strategy", step.Name))
			continue
		}
		logger.Warn("strategy failed", zap.String("strategy", step.Name), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
	}

	if len(errs) == 0 {
		return zero, "", ErrExhausted
	}
	return zero, "", fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
