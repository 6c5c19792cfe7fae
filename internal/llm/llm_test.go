package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vinayprograms/taskloop/internal/retry"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"", TierLow, false},
		{"low", TierLow, false},
		{"HIGH", TierHigh, false},
		{"gpt4", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTier(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModelsForTier(t *testing.T) {
	m := Models{Low: "small", High: "large"}
	if m.forTier(TierLow) != "small" || m.forTier(TierHigh) != "large" {
		t.Errorf("unexpected tier mapping: %+v", m)
	}
}

func TestNewProviders_RequireKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}); err == nil {
		t.Error("expected error for missing OpenAI key")
	}
	if _, err := NewAnthropic(AnthropicConfig{}); err == nil {
		t.Error("expected error for missing Anthropic key")
	}
	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	if o.models.Low != DefaultOpenAILowModel || o.models.High != DefaultOpenAIHighModel {
		t.Errorf("expected default models, got %+v", o.models)
	}
}

func TestMockCompleter_QueueThenFixed(t *testing.T) {
	m := NewMockCompleter()
	m.SetResponse("  fallback \n")
	m.QueueResponse("first")
	m.QueueError(errors.New("rate limited"))

	ctx := context.Background()
	opts := Options{Tier: TierHigh, Temperature: 0.5, MaxTokens: 100}

	if got, _ := m.Complete(ctx, "p1", opts); got != "first" {
		t.Errorf("expected queued reply, got %q", got)
	}
	if _, err := m.Complete(ctx, "p2", opts); err == nil {
		t.Error("expected queued error")
	}
	if got, _ := m.Complete(ctx, "p3", opts); got != "fallback" {
		t.Errorf("expected trimmed fixed reply, got %q", got)
	}
	if len(m.Requests()) != 3 {
		t.Errorf("expected 3 requests, got %d", len(m.Requests()))
	}
	last := m.LastRequest()
	if last.Prompt != "p3" || last.Options != opts {
		t.Errorf("unexpected last request: %+v", last)
	}
}

func TestWithRetry_RecoversFromTransientErrors(t *testing.T) {
	m := NewMockCompleter()
	m.QueueError(errors.New("503"))
	m.QueueError(errors.New("503"))
	m.SetResponse("done")

	c := WithRetry(m, retry.Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	got, err := c.Complete(context.Background(), "prompt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("expected done, got %q", got)
	}
	if len(m.Requests()) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(m.Requests()))
	}
}

func TestWithRetry_ZeroRetriesIsPassthrough(t *testing.T) {
	m := NewMockCompleter()
	if c := WithRetry(m, retry.Config{}); c != Completer(m) {
		t.Error("zero retries should return the inner completer")
	}
}
