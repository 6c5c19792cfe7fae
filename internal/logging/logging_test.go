package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.WithComponent("executor").Info("task done", map[string]interface{}{
		"task_id": "3",
		"created": 2,
	})

	out := buf.String()
	for _, want := range []string{"level=INFO", `msg="task done"`, "component=executor", "task_id=3", "created=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at INFO, got %q", buf.String())
	}

	l.WithComponent("queue").SetLevel(LevelDebug)
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("level change on a component logger should apply to the parent")
	}
}

func TestLogger_AddFileFansOut(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	path := filepath.Join(t.TempDir(), "run.log")
	if err := l.AddFile(path); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	l.Warn("disk and console")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "disk and console") {
		t.Errorf("file output missing record: %q", data)
	}
	if !strings.Contains(buf.String(), "disk and console") {
		t.Errorf("buffer output missing record: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
