package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vinayprograms/taskloop/internal/retry"
)

// parseRetryConfig converts config values to a retry.Config.
func parseRetryConfig(maxRetries int, backoffStr string) retry.Config {
	cfg := retry.Config{
		MaxRetries: maxRetries,
	}
	if backoffStr != "" {
		if d, err := time.ParseDuration(backoffStr); err == nil {
			cfg.MaxBackoff = d
		}
	}
	return cfg
}

// joinArgs turns positional words into one objective.
func joinArgs(words []string) string {
	return strings.TrimSpace(strings.Join(words, " "))
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
