// Package main provides run configuration loading.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vinayprograms/taskloop/internal/config"
)

// run handles the configuration phase of a loop.
type run struct {
	// Parsed from CLI (populated by kong via RunCmd)
	configPath    string
	objective     string
	name          string
	task          string
	join          bool
	high          bool
	maxIterations int // negative keeps the config value
	debug         bool

	cfg *config.Config
}

// load reads the config file, overlays the environment, then CLI flags, and
// validates the result.
func (r *run) load() error {
	if err := r.loadConfig(); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	r.cfg.ApplyEnv()
	r.applyFlags()
	return r.cfg.Validate()
}

// loadConfig loads the explicit config file or taskloop.toml.
func (r *run) loadConfig() error {
	var err error
	if r.configPath != "" {
		if _, statErr := os.Stat(r.configPath); errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found", r.configPath)
		}
		r.cfg, err = config.LoadFile(r.configPath)
	} else {
		r.cfg, err = config.LoadDefault()
	}
	return err
}

// applyFlags overlays command-line values, which win over file and env.
func (r *run) applyFlags() {
	if r.objective != "" {
		r.cfg.Agent.Objective = r.objective
	}
	if r.name != "" {
		r.cfg.Agent.Name = r.name
	}
	if r.task != "" {
		r.cfg.Agent.InitialTask = r.task
	}
	if r.join {
		r.cfg.Agent.Join = true
	}
	if r.high {
		r.cfg.LLM.Tier = "high"
	}
	if r.maxIterations >= 0 {
		r.cfg.Loop.MaxIterations = r.maxIterations
	}
	if r.debug {
		r.cfg.Logging.Level = "debug"
	}
}

// execute builds the runtime and runs the loop until it stops.
func (r *run) execute() error {
	ctx, stop := signalContext()
	defer stop()

	rt := newRuntime(r.cfg, os.Stdout)
	defer rt.cleanup()
	if err := rt.setup(ctx); err != nil {
		return err
	}
	return rt.run(ctx)
}
