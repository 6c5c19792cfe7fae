// Package main defines the CLI structure using kong.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run the task loop"`
	Search  SearchCmd  `cmd:"" help:"Search stored task results"`
	Tasks   TasksCmd   `cmd:"" help:"Show the task queue"`
	Replay  ReplayCmd  `cmd:"" help:"Replay a session journal"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// RunCmd starts a loop instance.
type RunCmd struct {
	Objective     []string `arg:"" optional:"" help:"Objective (overrides OBJECTIVE)"`
	Name          string   `short:"n" help:"Instance name (overrides BABY_NAME)"`
	Task          string   `short:"t" xor:"mode" help:"Initial task (overrides INITIAL_TASK)"`
	Join          bool     `short:"j" xor:"mode" help:"Join an existing objective on a shared queue"`
	High          bool     `short:"4" name:"high" help:"Use the high model tier (potentially expensive)"`
	Config        string   `help:"Config file path" type:"path"`
	MaxIterations int      `help:"Stop after this many tasks (0 = run until interrupted)" default:"-1"`
	Debug         bool     `help:"Enable debug logging"`
}

// Run executes the loop.
func (c *RunCmd) Run() error {
	r := &run{
		configPath:    c.Config,
		objective:     joinArgs(c.Objective),
		name:          c.Name,
		task:          c.Task,
		join:          c.Join,
		high:          c.High,
		maxIterations: c.MaxIterations,
		debug:         c.Debug,
	}
	if err := r.load(); err != nil {
		return err
	}
	return r.execute()
}

// ReplayCmd replays a session for analysis.
type ReplayCmd struct {
	Session string `arg:"" help:"Session journal (.jsonl) to replay" type:"existingfile"`
	Verbose int    `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
	Width   int    `default:"100" help:"Wrap width for results"`
}

// Run prints the journal.
func (c *ReplayCmd) Run() error {
	return runReplay(os.Stdout, c.Session, c.Verbose, c.Width)
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run prints the build info.
func (c *VersionCmd) Run() error {
	fmt.Printf("taskloop version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
