package indexer

import (
	"context"
	"errors"
	"time"
)

const (
	defaultRetryDelay = 100 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// backoff retries RPC calls with doubling delays capped at maxRetryDelay.
type backoff struct {
	retries int
	delay   time.Duration
}

func newBackoff(retries int, delay time.Duration) backoff {
	if retries < 0 {
		retries = 0
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return backoff{retries: retries, delay: delay}
}

// do runs fn until it succeeds, the retries are spent, or ctx ends. Context
// errors returned by fn are not retried.
func (b backoff) do(ctx context.Context, fn func(context.Context) error) error {
	wait := b.delay
	var err error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			wait = min(wait*2, maxRetryDelay)
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return err
}
