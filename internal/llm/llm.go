// Package llm is the language model boundary of the task loop.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Tier selects which class of model serves a completion. It is chosen once per
// process and applies to every agent.
type Tier string

const (
	// TierLow uses a cheaper single-turn completion model.
	TierLow Tier = "low"
	// TierHigh uses a chat-style model.
	TierHigh Tier = "high"
)

// ParseTier maps a config value to a Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "low":
		return TierLow, nil
	case "high":
		return TierHigh, nil
	default:
		return "", fmt.Errorf("unknown model tier %q", s)
	}
}

// Options carries per-call sampling settings.
type Options struct {
	Tier        Tier
	Temperature float64
	MaxTokens   int
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Models names the model used for each tier.
type Models struct {
	Low  string
	High string
}

func (m Models) forTier(t Tier) string {
	if t == TierHigh {
		return m.High
	}
	return m.Low
}
