package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/taskloop/internal/config"
	"github.com/vinayprograms/taskloop/internal/llm"
	"github.com/vinayprograms/taskloop/internal/memory"
	"github.com/vinayprograms/taskloop/internal/queue"
	"github.com/vinayprograms/taskloop/internal/retry"
)

func TestCreateCompleter_MissingKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			cfg := config.New()
			cfg.LLM.Provider = provider
			cfg.LLM.APIKeyEnv = "TASKLOOP_TEST_UNSET_KEY"
			t.Setenv("TASKLOOP_TEST_UNSET_KEY", "")

			_, err := createCompleter(cfg, nil)
			if err == nil {
				t.Fatal("expected error for missing API key")
			}
			if !strings.Contains(err.Error(), "TASKLOOP_TEST_UNSET_KEY") {
				t.Errorf("error should name the variable, got %v", err)
			}
		})
	}
}

func TestCreateCompleter_WithKey(t *testing.T) {
	t.Setenv("TASKLOOP_TEST_KEY", "sk-test")
	for _, provider := range []string{"openai", "anthropic"} {
		cfg := config.New()
		cfg.LLM.Provider = provider
		cfg.LLM.APIKeyEnv = "TASKLOOP_TEST_KEY"
		c, err := createCompleter(cfg, nil)
		if err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
		if c == nil {
			t.Fatalf("%s: nil completer", provider)
		}
	}
}

func TestCreateCompleter_Mock(t *testing.T) {
	cfg := config.New()
	cfg.LLM.Provider = "mock"
	cfg.LLM.MaxRetries = 0

	mock := llm.NewMockCompleter()
	mock.SetResponse("done")
	c, err := createCompleter(cfg, mock)
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Complete(context.Background(), "hi", llm.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out != "done" {
		t.Errorf("expected mock output, got %q", out)
	}
}

func TestCreateCompleter_Unknown(t *testing.T) {
	cfg := config.New()
	cfg.LLM.Provider = "palm"
	if _, err := createCompleter(cfg, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestCreateEmbedder_HashCached(t *testing.T) {
	cfg := config.New()
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 16
	cfg.Embedding.CacheSize = 10

	e, closer, err := createEmbedder(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer closer()

	if _, ok := e.(*memory.CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Dimension() != 16 {
		t.Errorf("expected dimension 16, got %d", e.Dimension())
	}
	v, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 16 {
		t.Errorf("expected 16 values, got %d", len(v))
	}
}

func TestCreateEmbedder_NoCache(t *testing.T) {
	cfg := config.New()
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 8
	cfg.Embedding.CacheSize = 0

	e, closer, err := createEmbedder(cfg)
	if err != nil {
		t.Fatal(err)
	}
	closer()
	if _, ok := e.(*memory.HashEmbedder); !ok {
		t.Errorf("expected bare hash embedder, got %T", e)
	}
}

func TestCreateStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		path    string
	}{
		{"inmemory", ""},
		{"chromem", ""},
		{"chromem", filepath.Join(dir, "chromem")},
		{"sqlite", filepath.Join(dir, "db", "memory.db")},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.New()
			cfg.Memory.Backend = tt.backend
			cfg.Memory.Path = tt.path

			s, err := createStore(cfg, retry.Config{MaxRetries: 1})
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			ctx := context.Background()
			if err := s.EnsureIndex(ctx, "babyagi", 4, memory.MetricCosine); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestCreateStore_Unknown(t *testing.T) {
	cfg := config.New()
	cfg.Memory.Backend = "pinecone"
	if _, err := createStore(cfg, retry.Config{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestCreateQueue(t *testing.T) {
	cfg := config.New()
	q, err := createQueue(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*queue.MemoryQueue); !ok {
		t.Errorf("expected memory queue, got %T", q)
	}

	cfg.Queue.Backend = "file"
	cfg.Queue.Path = filepath.Join(t.TempDir(), "tasks.yaml")
	q, err = createQueue(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()
	if _, ok := q.(*queue.FileQueue); !ok {
		t.Errorf("expected file queue, got %T", q)
	}

	cfg.Queue.Backend = "kafka"
	if _, err := createQueue(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
