// Package executor runs the task loop.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vinayprograms/taskloop/internal/agents"
	"github.com/vinayprograms/taskloop/internal/llm"
	"github.com/vinayprograms/taskloop/internal/logging"
	"github.com/vinayprograms/taskloop/internal/memory"
	"github.com/vinayprograms/taskloop/internal/queue"
	"github.com/vinayprograms/taskloop/internal/session"
)

// State is where the loop is within an iteration.
type State string

const (
	StateIdle         State = "idle"
	StateExecuting    State = "executing"
	StateStoring      State = "storing"
	StateCreating     State = "creating"
	StateAppending    State = "appending"
	StatePrioritizing State = "prioritizing"
)

// StepError is a failed iteration. The popped task has already left the
// queue and is not put back.
type StepError struct {
	Phase  State
	TaskID string
	Task   string
	Err    error
}

func (e *StepError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s task %s (%s): %v", e.Phase, e.TaskID, e.Task, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Options tunes the loop. Zero values take the defaults.
type Options struct {
	Index           string        // Vector index for results
	Tier            llm.Tier      // Model tier for every agent
	PollInterval    time.Duration // Idle wait; default 1s
	MaxIterations   int           // 0 runs until the context ends
	ContinueOnError bool          // Keep looping after a failed iteration
	ContextResults  int           // Results recalled for execution; default 5

	Execution      agents.Sampling
	Creation       agents.Sampling
	Prioritization agents.Sampling
}

// Sleeper waits for d, an early wake-up, or the end of ctx.
type Sleeper func(ctx context.Context, d time.Duration, wake <-chan struct{}) error

func defaultSleep(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	case <-wake:
	}
	return nil
}

// Executor drives the loop: pop, execute, store, create, append, prioritize.
type Executor struct {
	objective string
	queue     queue.Queue
	embedder  memory.Embedder
	store     memory.VectorStore
	opts      Options

	execution      *agents.ExecutionAgent
	creation       *agents.TaskCreationAgent
	prioritization *agents.PrioritizationAgent

	logger *logging.Logger
	sleep  Sleeper

	// Session logging
	session        *session.Session
	sessionManager session.SessionManager

	mu         sync.Mutex
	state      State
	prepared   bool
	iterations int

	// Callbacks
	OnTaskList      func(tasks []queue.Task)
	OnTaskStart     func(task queue.Task)
	OnTaskResult    func(task queue.Task, result string)
	OnTasksCreated  func(tasks []queue.Task)
	OnReprioritized func(tasks []queue.Task, dropped []string)
	OnError         func(err error)
}

// NewExecutor wires the agents around the given queue, model and memory.
func NewExecutor(objective string, q queue.Queue, completer llm.Completer, embedder memory.Embedder, store memory.VectorStore, opts Options) *Executor {
	if opts.Index == "" {
		opts.Index = "tasks"
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierLow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.ContextResults <= 0 {
		opts.ContextResults = 5
	}
	if opts.Execution == (agents.Sampling{}) {
		opts.Execution = agents.DefaultExecutionSampling
	}
	if opts.Creation == (agents.Sampling{}) {
		opts.Creation = agents.DefaultCreationSampling
	}
	if opts.Prioritization == (agents.Sampling{}) {
		opts.Prioritization = agents.DefaultPrioritizationSampling
	}

	logger := logging.Discard().WithComponent("executor")
	ctxAgent := &agents.ContextAgent{Embedder: embedder, Store: store, Index: opts.Index}
	return &Executor{
		objective: objective,
		queue:     q,
		embedder:  embedder,
		store:     store,
		opts:      opts,
		execution: &agents.ExecutionAgent{
			Completer:      completer,
			Context:        ctxAgent,
			Tier:           opts.Tier,
			Sampling:       opts.Execution,
			ContextResults: opts.ContextResults,
		},
		creation: &agents.TaskCreationAgent{
			Completer: completer,
			Tier:      opts.Tier,
			Sampling:  opts.Creation,
		},
		prioritization: &agents.PrioritizationAgent{
			Completer: completer,
			Queue:     q,
			Objective: objective,
			Tier:      opts.Tier,
			Sampling:  opts.Prioritization,
			Logger:    logger,
		},
		logger: logger,
		sleep:  defaultSleep,
		state:  StateIdle,
	}
}

// SetLogger sets the diagnostic logger.
func (e *Executor) SetLogger(l *logging.Logger) {
	e.logger = l.WithComponent("executor")
	e.prioritization.Logger = l.WithComponent("agents")
}

// SetSleeper replaces the idle wait. Tests use it to avoid real sleeps.
func (e *Executor) SetSleeper(s Sleeper) {
	e.sleep = s
}

// SetSession enables journaling to sess.
func (e *Executor) SetSession(sess *session.Session, mgr session.SessionManager) {
	e.session = sess
	e.sessionManager = mgr
}

// State returns the current state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Iterations returns how many tasks have been popped by Run.
func (e *Executor) Iterations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.iterations
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Prepare ensures the result index exists. RunOnce calls it on first use.
func (e *Executor) Prepare(ctx context.Context) error {
	e.mu.Lock()
	prepared := e.prepared
	e.mu.Unlock()
	if prepared {
		return nil
	}
	if err := e.store.EnsureIndex(ctx, e.opts.Index, e.embedder.Dimension(), memory.MetricCosine); err != nil {
		return fmt.Errorf("ensure index %s: %w", e.opts.Index, err)
	}
	e.mu.Lock()
	e.prepared = true
	e.mu.Unlock()
	return nil
}

// Seed pushes the initial task. On a fresh queue it gets id 1.
func (e *Executor) Seed(ctx context.Context, name string) (queue.Task, error) {
	added, err := e.queue.Push(ctx, name)
	if err != nil {
		return queue.Task{}, fmt.Errorf("seed task: %w", err)
	}
	t := added[0]
	e.logger.Info("seeded queue", map[string]interface{}{"task_id": t.ID, "task": t.Name})
	e.logEvent(session.Event{Type: session.EventSeed, TaskID: t.ID, Task: t.Name})
	return t, nil
}

// RunOnce performs one iteration. It returns false without error when the
// queue was empty.
func (e *Executor) RunOnce(ctx context.Context) (bool, error) {
	if err := e.Prepare(ctx); err != nil {
		return false, &StepError{Phase: StateIdle, Err: err}
	}

	tasks, err := e.queue.Tasks(ctx)
	if err != nil {
		return false, &StepError{Phase: StateIdle, Err: fmt.Errorf("read queue: %w", err)}
	}
	if len(tasks) == 0 {
		return false, nil
	}
	if e.OnTaskList != nil {
		e.OnTaskList(tasks)
	}

	task, ok, err := e.queue.Pop(ctx)
	if err != nil {
		return false, &StepError{Phase: StateIdle, Err: fmt.Errorf("pop: %w", err)}
	}
	if !ok {
		// another instance claimed it first
		return false, nil
	}

	ctx, span := e.startIterationSpan(ctx, task)
	start := time.Now()
	err = e.iterate(ctx, task)
	endSpan(span, err)
	e.setState(StateIdle)

	if err != nil {
		var stepErr *StepError
		if !errors.As(err, &stepErr) {
			stepErr = &StepError{Phase: StateIdle, TaskID: task.ID, Task: task.Name, Err: err}
		}
		e.logger.Error("iteration failed", map[string]interface{}{
			"task_id": task.ID,
			"phase":   string(stepErr.Phase),
			"error":   stepErr.Err.Error(),
		})
		e.logEvent(session.Event{
			Type:       session.EventTaskFailed,
			TaskID:     task.ID,
			Task:       task.Name,
			Phase:      string(stepErr.Phase),
			Error:      stepErr.Err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		})
		if e.OnError != nil {
			e.OnError(stepErr)
		}
		return true, stepErr
	}
	return true, nil
}

func (e *Executor) iterate(ctx context.Context, task queue.Task) error {
	fail := func(phase State, err error) error {
		return &StepError{Phase: phase, TaskID: task.ID, Task: task.Name, Err: err}
	}

	e.setState(StateExecuting)
	if e.OnTaskStart != nil {
		e.OnTaskStart(task)
	}
	e.logEvent(session.Event{Type: session.EventTaskStart, TaskID: task.ID, Task: task.Name})

	var result agents.Result
	started := time.Now()
	err := e.phase(ctx, StateExecuting, func(ctx context.Context) error {
		var err error
		result, err = e.execution.Run(ctx, e.objective, task.Name)
		return err
	})
	if err != nil {
		return fail(StateExecuting, err)
	}
	e.logger.Info("task executed", map[string]interface{}{"task_id": task.ID, "chars": len(result.Data)})
	e.logEvent(session.Event{
		Type:       session.EventTaskResult,
		TaskID:     task.ID,
		Task:       task.Name,
		Content:    result.Data,
		DurationMs: time.Since(started).Milliseconds(),
	})
	if e.OnTaskResult != nil {
		e.OnTaskResult(task, result.Data)
	}

	e.setState(StateStoring)
	recordID := memory.ResultID(task.ID)
	err = e.phase(ctx, StateStoring, func(ctx context.Context) error {
		vec, err := e.embedder.Embed(ctx, result.Data)
		if err != nil {
			return fmt.Errorf("embed result: %w", err)
		}
		return e.store.Upsert(ctx, e.opts.Index, memory.Record{
			ID:       recordID,
			Vector:   vec,
			Metadata: memory.Metadata{Task: task.Name, Result: result.Data},
		})
	})
	if err != nil {
		return fail(StateStoring, err)
	}
	e.logEvent(session.Event{Type: session.EventResultStored, TaskID: task.ID, Content: recordID})

	e.setState(StateCreating)
	var names []string
	err = e.phase(ctx, StateCreating, func(ctx context.Context) error {
		remaining, err := e.queue.Tasks(ctx)
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}
		names, err = e.creation.Run(ctx, e.objective, result, task.Name, queue.Names(remaining))
		return err
	})
	if err != nil {
		return fail(StateCreating, err)
	}

	e.setState(StateAppending)
	added, err := e.queue.Push(ctx, names...)
	if err != nil {
		return fail(StateAppending, fmt.Errorf("append tasks: %w", err))
	}
	annotate(ctx, attribute.Int("tasks.created", len(added)))
	e.logger.Info("tasks created", map[string]interface{}{"task_id": task.ID, "created": len(added)})
	e.logEvent(session.Event{Type: session.EventTasksCreated, TaskID: task.ID, Tasks: refs(added)})
	if e.OnTasksCreated != nil {
		e.OnTasksCreated(added)
	}

	e.setState(StatePrioritizing)
	var report agents.Report
	err = e.phase(ctx, StatePrioritizing, func(ctx context.Context) error {
		fallback, err := e.queue.LastID(ctx)
		if err != nil {
			return fmt.Errorf("read id counter: %w", err)
		}
		report, err = e.prioritization.Run(ctx, agents.LastTaskID(task.ID, fallback))
		return err
	})
	if err != nil {
		return fail(StatePrioritizing, err)
	}
	annotate(ctx, attribute.Int("tasks.dropped", len(report.Dropped)))
	if len(report.Dropped) > 0 {
		e.logEvent(session.Event{Type: session.EventLinesDropped, TaskID: task.ID, Lines: report.Dropped})
	}
	e.logEvent(session.Event{Type: session.EventReprioritized, TaskID: task.ID, Tasks: refs(report.Tasks)})
	if e.OnReprioritized != nil {
		e.OnReprioritized(report.Tasks, report.Dropped)
	}
	return nil
}

// Run loops until ctx ends, MaxIterations tasks have been processed, or an
// iteration fails while ContinueOnError is off. An empty queue is polled.
func (e *Executor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.opts.MaxIterations > 0 && e.Iterations() >= e.opts.MaxIterations {
			return nil
		}

		ran, err := e.RunOnce(ctx)
		if ran {
			e.mu.Lock()
			e.iterations++
			e.mu.Unlock()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !e.opts.ContinueOnError {
				return err
			}
			e.logger.Warn("continuing after failed iteration", map[string]interface{}{"error": err.Error()})
			if ran {
				continue
			}
		}
		if !ran {
			if err := e.idle(ctx); err != nil {
				return err
			}
		}
	}
}

func (e *Executor) idle(ctx context.Context) error {
	var wake <-chan struct{}
	if n, ok := e.queue.(queue.Notifier); ok {
		wake = n.Changes()
	}
	e.logger.Debug("queue empty, waiting", map[string]interface{}{"poll": e.opts.PollInterval.String()})
	return e.sleep(ctx, e.opts.PollInterval, wake)
}

func refs(tasks []queue.Task) []session.TaskRef {
	out := make([]session.TaskRef, len(tasks))
	for i, t := range tasks {
		out[i] = session.TaskRef{ID: t.ID, Name: t.Name}
	}
	return out
}
