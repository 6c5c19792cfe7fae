package telemetry

import (
	"context"
	"testing"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{Enabled: true, Protocol: "noop"},
		{Enabled: false, Protocol: "grpc", Endpoint: "localhost:4317"},
	} {
		shutdown, err := Setup(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Setup(%+v): %v", cfg, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("noop shutdown failed: %v", err)
		}
	}
}

func TestSetup_UnknownProtocol(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Enabled: true, Protocol: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestTracer(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()
	if span == nil {
		t.Fatal("expected a span")
	}
}
