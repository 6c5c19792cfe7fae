package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/taskloop/internal/config"
	"github.com/vinayprograms/taskloop/internal/memory"
	"github.com/vinayprograms/taskloop/internal/retry"
)

func TestSearchMemory(t *testing.T) {
	cfg := config.New()
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 32
	cfg.Embedding.CacheSize = 0
	cfg.Memory.Backend = "chromem"
	cfg.Memory.Path = filepath.Join(t.TempDir(), "memory")

	ctx := context.Background()
	embedder := memory.NewHashEmbedder(32)
	store, err := createStore(cfg, retry.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureIndex(ctx, cfg.Memory.Table, 32, memory.MetricCosine); err != nil {
		t.Fatal(err)
	}
	vec, err := embedder.Embed(ctx, "Roses are red")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, cfg.Memory.Table, memory.Record{
		ID:       memory.ResultID("1"),
		Vector:   vec,
		Metadata: memory.Metadata{Task: "Write a poem", Result: "Roses are red"},
	}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	var out bytes.Buffer
	if err := searchMemory(ctx, &out, cfg, "Roses are red", 3); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.Contains(text, "1. Write a poem") || !strings.Contains(text, "result_1") {
		t.Errorf("unexpected search output:\n%s", text)
	}
}

func TestSearchMemory_EmptyQuery(t *testing.T) {
	if err := searchMemory(context.Background(), &bytes.Buffer{}, config.New(), "", 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestListTasks(t *testing.T) {
	cfg := config.New()
	cfg.Queue.Backend = "file"
	cfg.Queue.Path = filepath.Join(t.TempDir(), "tasks.yaml")

	ctx := context.Background()
	q, err := createQueue(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Push(ctx, "Develop a task list", "Write the poem"); err != nil {
		t.Fatal(err)
	}
	q.Close()

	var out bytes.Buffer
	if err := listTasks(ctx, &out, cfg); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"last id 2", "1: Develop a task list", "2: Write the poem"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestListTasks_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := listTasks(context.Background(), &out, config.New()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No tasks queued.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
