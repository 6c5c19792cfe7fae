package memory

import (
	"context"
	"errors"

	"github.com/vinayprograms/taskloop/internal/retry"
)

type retryingEmbedder struct {
	inner Embedder
	cfg   retry.Config
}

// EmbedderWithRetry wraps e so transient failures are retried with backoff.
func EmbedderWithRetry(e Embedder, cfg retry.Config) Embedder {
	if cfg.MaxRetries <= 0 {
		return e
	}
	return &retryingEmbedder{inner: e, cfg: cfg}
}

func (r *retryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry.Do(ctx, r.cfg, func(ctx context.Context) ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
}

func (r *retryingEmbedder) Dimension() int {
	return r.inner.Dimension()
}

type retryingStore struct {
	VectorStore
	cfg retry.Config
}

// StoreWithRetry wraps s so Upsert and Query are retried. Dimension and
// missing-index errors are not retried.
func StoreWithRetry(s VectorStore, cfg retry.Config) VectorStore {
	if cfg.MaxRetries <= 0 {
		return s
	}
	return &retryingStore{VectorStore: s, cfg: cfg}
}

func (r *retryingStore) Upsert(ctx context.Context, index string, rec Record) error {
	_, err := retry.Do(ctx, r.cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, permanentIfFatal(r.VectorStore.Upsert(ctx, index, rec))
	})
	return err
}

func (r *retryingStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]Match, error) {
	return retry.Do(ctx, r.cfg, func(ctx context.Context) ([]Match, error) {
		m, err := r.VectorStore.Query(ctx, index, vector, topK)
		return m, permanentIfFatal(err)
	})
}

func permanentIfFatal(err error) error {
	if err == nil {
		return nil
	}
	var dim *DimensionError
	if errors.As(err, &dim) || errors.Is(err, ErrIndexNotFound) || errors.Is(err, ErrUnsupportedMetric) {
		return retry.Permanent(err)
	}
	return err
}
