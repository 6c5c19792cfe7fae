// Package main provides runtime execution for the loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vinayprograms/taskloop/internal/agents"
	"github.com/vinayprograms/taskloop/internal/config"
	"github.com/vinayprograms/taskloop/internal/executor"
	"github.com/vinayprograms/taskloop/internal/llm"
	"github.com/vinayprograms/taskloop/internal/logging"
	"github.com/vinayprograms/taskloop/internal/memory"
	"github.com/vinayprograms/taskloop/internal/queue"
	"github.com/vinayprograms/taskloop/internal/session"
	"github.com/vinayprograms/taskloop/internal/telemetry"
)

// runtime handles the execution phase of a loop.
type runtime struct {
	cfg     *config.Config
	console *console
	logger  *logging.Logger

	// Components
	completer llm.Completer
	embedder  memory.Embedder
	store     memory.VectorStore
	queue     queue.Queue
	exec      *executor.Executor

	// Session journal
	sessionMgr  *session.FileManager
	sess        *session.Session
	storagePath string

	// mock is used when llm.provider is "mock"; tests set it.
	mock llm.Completer

	// Cleanup
	closers []func()
}

// newRuntime creates a runtime for a validated configuration.
func newRuntime(cfg *config.Config, out io.Writer) *runtime {
	return &runtime{
		cfg:         cfg,
		console:     newConsole(out),
		logger:      logging.New(),
		storagePath: config.ExpandPath(cfg.Storage.Path),
	}
}

// setup initializes all runtime components. Returns error on failure.
func (rt *runtime) setup(ctx context.Context) error {
	if err := rt.setupLogging(); err != nil {
		return err
	}
	if err := rt.setupTelemetry(ctx); err != nil {
		return err
	}
	if err := rt.createProviders(); err != nil {
		return err
	}
	if err := rt.createExecutor(); err != nil {
		return err
	}
	if err := rt.setupSession(); err != nil {
		return err
	}
	rt.setupCallbacks()
	return nil
}

// setupLogging applies the level and optional log file.
func (rt *runtime) setupLogging() error {
	rt.logger.SetLevel(logging.ParseLevel(rt.cfg.Logging.Level))
	if rt.cfg.Logging.File != "" {
		path := config.ExpandPath(rt.cfg.Logging.File)
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return err
		}
		if err := rt.logger.AddFile(path); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	}
	rt.addCloser(func() { rt.logger.Close() })
	return nil
}

// setupTelemetry installs the trace exporter.
func (rt *runtime) setupTelemetry(ctx context.Context) error {
	t := rt.cfg.Telemetry
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     t.Enabled,
		Protocol:    t.Protocol,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		Headers:     t.Headers,
		ServiceName: "taskloop",
		Instance:    rt.cfg.Agent.Name,
	})
	if err != nil {
		return fmt.Errorf("creating telemetry exporter: %w", err)
	}
	rt.addCloser(func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			rt.logger.Warn("telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	})
	return nil
}

// createProviders builds the model, embedder, vector store and queue.
func (rt *runtime) createProviders() error {
	var err error
	if rt.completer, err = createCompleter(rt.cfg, rt.mock); err != nil {
		return err
	}

	embedder, closeEmbedder, err := createEmbedder(rt.cfg)
	if err != nil {
		return err
	}
	rt.embedder = embedder
	rt.addCloser(closeEmbedder)

	rc := parseRetryConfig(rt.cfg.LLM.MaxRetries, rt.cfg.LLM.RetryBackoff)
	if rt.store, err = createStore(rt.cfg, rc); err != nil {
		return err
	}
	rt.addCloser(func() { rt.store.Close() })

	if rt.cfg.Queue.Backend == "file" {
		if err := ensureDir(filepath.Dir(config.ExpandPath(rt.cfg.Queue.Path))); err != nil {
			return err
		}
	}
	if rt.queue, err = createQueue(rt.cfg); err != nil {
		return err
	}
	rt.addCloser(func() { rt.queue.Close() })
	return nil
}

// createExecutor creates the loop and prepares its index.
func (rt *runtime) createExecutor() error {
	poll, err := rt.cfg.PollInterval()
	if err != nil {
		return err
	}
	tier, err := llm.ParseTier(rt.cfg.LLM.Tier)
	if err != nil {
		return err
	}
	a := rt.cfg.Agents
	rt.exec = executor.NewExecutor(rt.cfg.Agent.Objective, rt.queue, rt.completer, rt.embedder, rt.store, executor.Options{
		Index:           rt.cfg.Memory.Table,
		Tier:            tier,
		PollInterval:    poll,
		MaxIterations:   rt.cfg.Loop.MaxIterations,
		ContinueOnError: rt.cfg.Loop.ContinueOnError,
		ContextResults:  rt.cfg.Loop.ContextResults,
		Execution:       agents.Sampling(a.Execution),
		Creation:        agents.Sampling(a.Creation),
		Prioritization:  agents.Sampling(a.Prioritization),
	})
	rt.exec.SetLogger(rt.logger)
	return nil
}

// setupSession creates the session journal when enabled.
func (rt *runtime) setupSession() error {
	if !rt.cfg.Storage.Sessions {
		return nil
	}
	var err error
	rt.sessionMgr, err = session.NewFileManager(filepath.Join(rt.storagePath, "sessions", rt.cfg.Agent.Name))
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	rt.sess, err = rt.sessionMgr.Create(rt.cfg.Agent.Name, rt.cfg.Agent.Objective)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	rt.exec.SetSession(rt.sess, rt.sessionMgr)
	return nil
}

// setupCallbacks connects loop events to the console.
func (rt *runtime) setupCallbacks() {
	rt.exec.OnTaskList = rt.console.taskList
	rt.exec.OnTaskStart = rt.console.nextTask
	rt.exec.OnTaskResult = func(_ queue.Task, result string) {
		rt.console.taskResult(result)
	}
	rt.exec.OnReprioritized = func(_ []queue.Task, dropped []string) {
		rt.console.dropped(dropped)
	}
	rt.exec.OnError = rt.console.failure
}

// run seeds the queue (unless joining) and loops until stopped.
func (rt *runtime) run(ctx context.Context) error {
	rt.console.configuration(rt.cfg)

	err := rt.loop(ctx)
	rt.exec.Finish(err)

	sessionPath := ""
	if rt.sess != nil {
		sessionPath = rt.sessionMgr.Path(rt.sess.ID)
	}
	rt.console.stopped(rt.exec.Iterations(), sessionPath)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (rt *runtime) loop(ctx context.Context) error {
	if err := rt.exec.Prepare(ctx); err != nil {
		return err
	}
	if !rt.cfg.Agent.Join {
		if _, err := rt.exec.Seed(ctx, rt.cfg.Agent.InitialTask); err != nil {
			return err
		}
	}
	return rt.exec.Run(ctx)
}

// cleanup runs all registered cleanup functions.
func (rt *runtime) cleanup() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// addCloser registers a cleanup function.
func (rt *runtime) addCloser(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// ensureDir creates dir if it is missing.
func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
