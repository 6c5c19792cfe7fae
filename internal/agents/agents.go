// Package agents holds the four model-backed steps of the task loop.
package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vinayprograms/taskloop/internal/llm"
	"github.com/vinayprograms/taskloop/internal/logging"
	"github.com/vinayprograms/taskloop/internal/memory"
	"github.com/vinayprograms/taskloop/internal/queue"
)

// Sampling is the temperature and token budget an agent calls the model with.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}

// Default sampling per agent.
var (
	DefaultExecutionSampling      = Sampling{Temperature: 0.7, MaxTokens: 2000}
	DefaultCreationSampling       = Sampling{Temperature: 0.5, MaxTokens: 100}
	DefaultPrioritizationSampling = Sampling{Temperature: 0.5, MaxTokens: 100}
)

func (s Sampling) options(tier llm.Tier) llm.Options {
	return llm.Options{Tier: tier, Temperature: s.Temperature, MaxTokens: s.MaxTokens}
}

// Result is the output of executing one task.
type Result struct {
	Data string
}

// ContextAgent recalls the tasks whose stored results are closest to a query.
type ContextAgent struct {
	Embedder memory.Embedder
	Store    memory.VectorStore
	Index    string
}

// Run returns the task names of up to n nearest results, most similar first.
// An empty store yields an empty slice.
func (a *ContextAgent) Run(ctx context.Context, query string, n int) ([]string, error) {
	vec, err := a.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed context query: %w", err)
	}
	matches, err := a.Store.Query(ctx, a.Index, vec, n)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", a.Index, err)
	}
	memory.SortMatches(matches)
	tasks := make([]string, 0, len(matches))
	for _, m := range matches {
		tasks = append(tasks, m.Metadata.Task)
	}
	return tasks, nil
}

// ExecutionAgent performs one task with recalled context.
type ExecutionAgent struct {
	Completer      llm.Completer
	Context        *ContextAgent
	Tier           llm.Tier
	Sampling       Sampling
	ContextResults int
}

// Run executes task toward objective. Context is recalled by similarity to
// the objective, not the task.
func (a *ExecutionAgent) Run(ctx context.Context, objective, task string) (Result, error) {
	n := a.ContextResults
	if n <= 0 {
		n = 5
	}
	recalled, err := a.Context.Run(ctx, objective, n)
	if err != nil {
		return Result{}, err
	}
	out, err := a.Completer.Complete(ctx, executionPrompt(objective, recalled, task), a.Sampling.options(a.Tier))
	if err != nil {
		return Result{}, fmt.Errorf("execute task: %w", err)
	}
	return Result{Data: strings.TrimSpace(out)}, nil
}

// TaskCreationAgent derives follow-up tasks from a result.
type TaskCreationAgent struct {
	Completer llm.Completer
	Tier      llm.Tier
	Sampling  Sampling
}

// Run returns new task names, one per non-blank line of the model output.
func (a *TaskCreationAgent) Run(ctx context.Context, objective string, result Result, lastTask string, incomplete []string) ([]string, error) {
	out, err := a.Completer.Complete(ctx, creationPrompt(objective, result.Data, lastTask, incomplete), a.Sampling.options(a.Tier))
	if err != nil {
		return nil, fmt.Errorf("create tasks: %w", err)
	}
	return ParseTaskLines(out), nil
}

// Report describes one reprioritization.
type Report struct {
	Tasks   []queue.Task
	Dropped []string
}

// PrioritizationAgent cleans and reorders the whole queue.
type PrioritizationAgent struct {
	Completer llm.Completer
	Queue     queue.Queue
	Objective string
	Tier      llm.Tier
	Sampling  Sampling
	Logger    *logging.Logger
}

// Run asks the model to renumber the queue from lastTaskID+1 and replaces the
// queue with the parsed list. Unparseable lines are dropped, so the queue
// can shrink.
func (a *PrioritizationAgent) Run(ctx context.Context, lastTaskID int64) (Report, error) {
	tasks, err := a.Queue.Tasks(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read queue: %w", err)
	}
	prompt := prioritizationPrompt(a.Objective, queue.Names(tasks), lastTaskID+1)
	out, err := a.Completer.Complete(ctx, prompt, a.Sampling.options(a.Tier))
	if err != nil {
		return Report{}, fmt.Errorf("prioritize tasks: %w", err)
	}

	parsed, dropped := ParseNumberedList(out)
	if len(dropped) > 0 && a.Logger != nil {
		a.Logger.Warn("dropped unparseable prioritization lines", map[string]interface{}{
			"dropped": len(dropped),
			"kept":    len(parsed),
		})
	}
	if err := a.Queue.Replace(ctx, parsed); err != nil {
		return Report{}, fmt.Errorf("replace queue: %w", err)
	}
	return Report{Tasks: parsed, Dropped: dropped}, nil
}

// LastTaskID returns the numeric value of a task id. Ids the model invented
// may not be numeric; fallback is used for those.
func LastTaskID(id string, fallback int64) int64 {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return fallback
}
