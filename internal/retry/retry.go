// Package retry runs provider calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config bounds retry behavior for a provider call.
type Config struct {
	MaxRetries     int           // attempts after the first; 0 disables retrying
	InitialBackoff time.Duration // first wait; default 500ms
	MaxBackoff     time.Duration // cap on a single wait; default 60s
	OnRetry        func(err error, wait time.Duration)
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a permanent error, the context ends,
// or the attempt budget is spent.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = 500 * time.Millisecond
	}
	b.MaxInterval = cfg.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = 60 * time.Second
	}

	attempts := 0
	var stopErr error
	op := func() (T, error) {
		attempts++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			stopErr = perm.Err
			return v, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			stopErr = err
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxRetries + 1)),
		backoff.WithMaxElapsedTime(0),
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(cfg.OnRetry)))
	}

	v, err := backoff.Retry(ctx, op, opts...)
	if err == nil {
		return v, nil
	}
	if stopErr != nil {
		return v, stopErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return v, ctxErr
	}
	if cfg.MaxRetries == 0 {
		return v, err
	}
	return v, &ExhaustedError{Attempts: attempts, Err: err}
}
