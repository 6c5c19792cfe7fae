package main

import (
	"testing"

	"github.com/alecthomas/kong"
)

func parse(t *testing.T, args ...string) *CLI {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return &cli
}

func TestRunCmd_Defaults(t *testing.T) {
	cli := parse(t, "run")

	if len(cli.Run.Objective) != 0 {
		t.Errorf("expected no objective, got %v", cli.Run.Objective)
	}
	if cli.Run.MaxIterations != -1 {
		t.Errorf("expected max iterations -1 (unset), got %d", cli.Run.MaxIterations)
	}
	if cli.Run.Join || cli.Run.High || cli.Run.Debug {
		t.Error("expected boolean flags to default to false")
	}
}

func TestRunCmd_Objective(t *testing.T) {
	cli := parse(t, "run", "Write", "a", "poem")

	if got := joinArgs(cli.Run.Objective); got != "Write a poem" {
		t.Errorf("expected objective 'Write a poem', got %q", got)
	}
}

func TestRunCmd_Flags(t *testing.T) {
	cli := parse(t, "run", "-n", "Alice", "-t", "Develop a task list", "--high", "--max-iterations", "3", "--debug", "Cure boredom")

	if cli.Run.Name != "Alice" {
		t.Errorf("expected name Alice, got %q", cli.Run.Name)
	}
	if cli.Run.Task != "Develop a task list" {
		t.Errorf("expected task, got %q", cli.Run.Task)
	}
	if !cli.Run.High {
		t.Error("expected --high")
	}
	if cli.Run.MaxIterations != 3 {
		t.Errorf("expected max iterations 3, got %d", cli.Run.MaxIterations)
	}
	if !cli.Run.Debug {
		t.Error("expected --debug")
	}
	if joinArgs(cli.Run.Objective) != "Cure boredom" {
		t.Errorf("unexpected objective %v", cli.Run.Objective)
	}
}

func TestRunCmd_Join(t *testing.T) {
	cli := parse(t, "run", "-j")
	if !cli.Run.Join {
		t.Error("expected -j to set join")
	}
}

func TestRunCmd_JoinAndTaskConflict(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"run", "-j", "-t", "first"}); err == nil {
		t.Error("expected -j and -t to be mutually exclusive")
	}
}

func TestReplayCmd_Verbose(t *testing.T) {
	cli := parse(t, "replay", "-vv", "cli_test.go")

	if cli.Replay.Session != "cli_test.go" {
		t.Errorf("expected session path, got %q", cli.Replay.Session)
	}
	if cli.Replay.Verbose != 2 {
		t.Errorf("expected verbose=2, got %d", cli.Replay.Verbose)
	}
	if cli.Replay.Width != 100 {
		t.Errorf("expected width 100, got %d", cli.Replay.Width)
	}
}

func TestVersionCmd(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := parser.Parse([]string{"version"})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Command() != "version" {
		t.Errorf("expected version command, got %q", ctx.Command())
	}
}
