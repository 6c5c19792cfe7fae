package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/muesli/reflow/truncate"
	"github.com/vinayprograms/taskloop/internal/config"
	"github.com/vinayprograms/taskloop/internal/memory"
)

// SearchCmd queries stored results by similarity.
type SearchCmd struct {
	Query  []string `arg:"" help:"Text to search for"`
	Limit  int      `short:"l" default:"5" help:"Maximum results"`
	Config string   `help:"Config file path" type:"path"`
}

// Run prints the closest stored results.
func (c *SearchCmd) Run() error {
	cfg, err := loadConfigOnly(c.Config)
	if err != nil {
		return err
	}
	return searchMemory(context.Background(), os.Stdout, cfg, joinArgs(c.Query), c.Limit)
}

// TasksCmd prints the current task queue.
type TasksCmd struct {
	Config string `help:"Config file path" type:"path"`
}

// Run lists the queue.
func (c *TasksCmd) Run() error {
	cfg, err := loadConfigOnly(c.Config)
	if err != nil {
		return err
	}
	return listTasks(context.Background(), os.Stdout, cfg)
}

// loadConfigOnly loads config and env without requiring an objective.
func loadConfigOnly(path string) (*config.Config, error) {
	r := &run{configPath: path}
	if err := r.loadConfig(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	r.cfg.ApplyEnv()
	return r.cfg, nil
}

func searchMemory(ctx context.Context, w io.Writer, cfg *config.Config, query string, limit int) error {
	if query == "" {
		return fmt.Errorf("search query is empty")
	}
	embedder, closeEmbedder, err := createEmbedder(cfg)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	store, err := createStore(cfg, parseRetryConfig(cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureIndex(ctx, cfg.Memory.Table, embedder.Dimension(), memory.MetricCosine); err != nil {
		return err
	}
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}
	matches, err := store.Query(ctx, cfg.Memory.Table, vec, limit)
	if err != nil {
		return err
	}
	memory.SortMatches(matches)

	fmt.Fprintf(w, "Search: %q (%s/%s)\n\n", query, cfg.Memory.Backend, cfg.Memory.Table)
	if len(matches) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(w, "%d. %s %s\n", i+1, m.Metadata.Task, dimStyle.Render(fmt.Sprintf("[%s %.3f]", m.ID, m.Score)))
		fmt.Fprintf(w, "   %s\n", truncate.StringWithTail(memory.NormalizeText(m.Metadata.Result), 100, "..."))
	}
	return nil
}

func listTasks(ctx context.Context, w io.Writer, cfg *config.Config) error {
	q, err := createQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()

	tasks, err := q.Tasks(ctx)
	if err != nil {
		return err
	}
	last, err := q.LastID(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Queue: %s (last id %d)\n\n", cfg.Queue.Backend, last)
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks queued.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "%s: %s\n", t.ID, t.Name)
	}
	return nil
}
