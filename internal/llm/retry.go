package llm

import (
	"context"

	"github.com/vinayprograms/taskloop/internal/retry"
)

type retryingCompleter struct {
	inner Completer
	cfg   retry.Config
}

// WithRetry wraps c so transient failures are retried with backoff.
func WithRetry(c Completer, cfg retry.Config) Completer {
	if cfg.MaxRetries <= 0 {
		return c
	}
	return &retryingCompleter{inner: c, cfg: cfg}
}

func (r *retryingCompleter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return retry.Do(ctx, r.cfg, func(ctx context.Context) (string, error) {
		return r.inner.Complete(ctx, prompt, opts)
	})
}
