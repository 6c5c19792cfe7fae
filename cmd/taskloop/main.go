// Package main is the entry point for the taskloop CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env so OBJECTIVE, INITIAL_TASK and API keys can live next to the binary
	_ = godotenv.Load()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("taskloop"),
		kong.Description("Autonomous task loop: execute, remember, create and reprioritize tasks toward an objective."),
		kong.UsageOnError(),
		kongVars(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
