package main

import (
	"fmt"
	"path/filepath"

	"github.com/vinayprograms/taskloop/internal/config"
	"github.com/vinayprograms/taskloop/internal/llm"
	"github.com/vinayprograms/taskloop/internal/memory"
	"github.com/vinayprograms/taskloop/internal/queue"
	"github.com/vinayprograms/taskloop/internal/retry"
)

// createCompleter creates the language model for every agent.
func createCompleter(cfg *config.Config, mock llm.Completer) (llm.Completer, error) {
	var c llm.Completer
	switch cfg.LLM.Provider {
	case "openai", "":
		apiKey := cfg.GetAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found (set %s)", keyEnv(cfg.LLM.APIKeyEnv, "openai"))
		}
		o, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.BaseURL,
			Models:  llm.Models{Low: cfg.LLM.LowModel, High: cfg.LLM.HighModel},
		})
		if err != nil {
			return nil, err
		}
		c = o

	case "anthropic":
		apiKey := cfg.GetAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("Anthropic API key not found (set %s)", keyEnv(cfg.LLM.APIKeyEnv, "anthropic"))
		}
		a, err := llm.NewAnthropic(llm.AnthropicConfig{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.BaseURL,
			Models:  llm.Models{Low: cfg.LLM.LowModel, High: cfg.LLM.HighModel},
		})
		if err != nil {
			return nil, err
		}
		c = a

	case "mock":
		if mock == nil {
			mock = llm.NewMockCompleter()
		}
		c = mock

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic, mock)", cfg.LLM.Provider)
	}
	return llm.WithRetry(c, parseRetryConfig(cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff)), nil
}

// createEmbedder creates the embedding provider, optionally cached.
// The returned closer releases the cache.
func createEmbedder(cfg *config.Config) (memory.Embedder, func(), error) {
	var e memory.Embedder
	switch cfg.Embedding.Provider {
	case "openai", "":
		apiKey := cfg.GetEmbeddingAPIKey()
		if apiKey == "" {
			return nil, nil, fmt.Errorf("OpenAI API key not found for embeddings (set %s)", keyEnv(cfg.Embedding.APIKeyEnv, "openai"))
		}
		o, err := memory.NewOpenAIEmbedder(memory.OpenAIEmbedderConfig{
			APIKey:    apiKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, nil, err
		}
		e = memory.EmbedderWithRetry(o, parseRetryConfig(cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff))

	case "hash":
		e = memory.NewHashEmbedder(cfg.Embedding.Dimension)

	default:
		return nil, nil, fmt.Errorf("unsupported embedding provider: %s (supported: openai, hash)", cfg.Embedding.Provider)
	}

	if cfg.Embedding.CacheSize <= 0 {
		return e, func() {}, nil
	}
	cached, err := memory.NewCachedEmbedder(e, cfg.Embedding.CacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return cached, cached.Close, nil
}

// createStore opens the vector store backend.
func createStore(cfg *config.Config, rc retry.Config) (memory.VectorStore, error) {
	var s memory.VectorStore
	switch cfg.Memory.Backend {
	case "inmemory":
		s = memory.NewInMemoryStore()

	case "chromem", "":
		path := config.ExpandPath(cfg.Memory.Path)
		st, err := memory.NewChromemStore(path)
		if err != nil {
			return nil, fmt.Errorf("opening chromem store: %w", err)
		}
		s = st

	case "sqlite":
		path := config.ExpandPath(cfg.Memory.Path)
		if dir := filepath.Dir(path); dir != "" {
			if err := ensureDir(dir); err != nil {
				return nil, err
			}
		}
		st, err := memory.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		s = st

	default:
		return nil, fmt.Errorf("unsupported memory backend: %s (supported: inmemory, chromem, sqlite)", cfg.Memory.Backend)
	}
	return memory.StoreWithRetry(s, rc), nil
}

// createQueue opens the task queue backend.
func createQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Backend {
	case "memory", "":
		return queue.NewMemoryQueue(), nil

	case "file":
		q, err := queue.NewFileQueue(config.ExpandPath(cfg.Queue.Path))
		if err != nil {
			return nil, fmt.Errorf("opening queue file: %w", err)
		}
		return q, nil

	case "nats":
		q, err := queue.NewNATSQueue(queue.NATSConfig{
			URL:    cfg.Queue.NATSURL,
			Bucket: cfg.Queue.Bucket,
			Key:    cfg.Queue.Key,
			Name:   cfg.Agent.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to queue: %w", err)
		}
		return q, nil

	default:
		return nil, fmt.Errorf("unsupported queue backend: %s (supported: memory, file, nats)", cfg.Queue.Backend)
	}
}

func keyEnv(configured, provider string) string {
	if configured != "" {
		return configured
	}
	return config.DefaultAPIKeyEnv(provider)
}
