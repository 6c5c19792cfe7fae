// Package logging provides component-scoped structured logging.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a config string to a Level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// sinks is shared by a logger and every component logger derived from it.
type sinks struct {
	mu      sync.Mutex
	level   slog.LevelVar
	writers []io.Writer
	files   []*os.File
	handler slog.Handler
}

func (s *sinks) rebuild() {
	handlers := make([]slog.Handler, 0, len(s.writers))
	for _, w := range s.writers {
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: &s.level}))
	}
	s.handler = slogmulti.Fanout(handlers...)
}

func (s *sinks) current() slog.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// Logger writes leveled records tagged with a component name.
type Logger struct {
	sinks     *sinks
	component string
}

// New creates a Logger writing to stderr at INFO.
func New() *Logger {
	s := &sinks{writers: []io.Writer{os.Stderr}}
	s.level.Set(slog.LevelInfo)
	s.rebuild()
	return &Logger{sinks: s}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	l := New()
	l.SetOutput(io.Discard)
	return l
}

// WithComponent returns a logger sharing this logger's outputs.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{sinks: l.sinks, component: component}
}

// SetOutput replaces every output with w.
func (l *Logger) SetOutput(w io.Writer) {
	l.sinks.mu.Lock()
	defer l.sinks.mu.Unlock()
	l.sinks.writers = []io.Writer{w}
	l.sinks.rebuild()
}

// AddFile appends records to the file at path in addition to existing outputs.
func (l *Logger) AddFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.sinks.mu.Lock()
	defer l.sinks.mu.Unlock()
	l.sinks.writers = append(l.sinks.writers, f)
	l.sinks.files = append(l.sinks.files, f)
	l.sinks.rebuild()
	return nil
}

// SetLevel sets the minimum level for this logger and its component loggers.
func (l *Logger) SetLevel(level Level) {
	l.sinks.level.Set(level.slogLevel())
}

// Close releases any files opened by AddFile.
func (l *Logger) Close() error {
	l.sinks.mu.Lock()
	defer l.sinks.mu.Unlock()
	var first error
	for _, f := range l.sinks.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.sinks.files = nil
	return first
}

// Debug logs a debug message. It is dropped unless the level is LevelDebug.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelDebug, msg, fields)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelError, msg, fields)
}

func (l *Logger) log(level slog.Level, msg string, fields []map[string]interface{}) {
	h := l.sinks.current()
	ctx := context.Background()
	if !h.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, 8)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	for _, f := range fields {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, f[k]))
		}
	}
	slog.New(h).LogAttrs(ctx, level, msg, attrs...)
}
