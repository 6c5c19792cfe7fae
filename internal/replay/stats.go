package replay

import (
	"fmt"
	"io"
	"time"

	"github.com/vinayprograms/taskloop/internal/session"
)

// Stats holds aggregate statistics for a session.
type Stats struct {
	TotalDuration time.Duration

	Iterations int // task_start events
	Failures   int
	Created    int // tasks appended by the creation agent
	Dropped    int // prioritization lines that did not parse

	// Execution agent response times
	ExecTotalMs int64
	ExecAvgMs   int64
	ExecMaxMs   int64
}

// ComputeStats calculates aggregate statistics from session events.
func ComputeStats(sess *session.Session) *Stats {
	stats := &Stats{}
	var first, last time.Time
	var execCount int64

	for _, event := range sess.Events {
		if first.IsZero() || event.Timestamp.Before(first) {
			first = event.Timestamp
		}
		if last.IsZero() || event.Timestamp.After(last) {
			last = event.Timestamp
		}

		switch event.Type {
		case session.EventTaskStart:
			stats.Iterations++
		case session.EventTaskFailed:
			stats.Failures++
		case session.EventTasksCreated:
			stats.Created += len(event.Tasks)
		case session.EventLinesDropped:
			stats.Dropped += len(event.Lines)
		case session.EventTaskResult:
			execCount++
			stats.ExecTotalMs += event.DurationMs
			if event.DurationMs > stats.ExecMaxMs {
				stats.ExecMaxMs = event.DurationMs
			}
		}
	}

	if execCount > 0 {
		stats.ExecAvgMs = stats.ExecTotalMs / execCount
	}
	if !first.IsZero() {
		stats.TotalDuration = last.Sub(first)
	}
	return stats
}

// Print writes the statistics block.
func (s *Stats) Print(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("STATISTICS"))
	fmt.Fprintln(w, divider)
	row := func(label string, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), valueStyle.Render(value))
	}
	row("duration", s.TotalDuration.Round(time.Millisecond).String())
	row("iterations", fmt.Sprintf("%d", s.Iterations))
	row("failures", fmt.Sprintf("%d", s.Failures))
	row("tasks created", fmt.Sprintf("%d", s.Created))
	row("lines dropped", fmt.Sprintf("%d", s.Dropped))
	if s.ExecAvgMs > 0 || s.ExecMaxMs > 0 {
		row("execution avg/max", fmt.Sprintf("%dms / %dms", s.ExecAvgMs, s.ExecMaxMs))
	}
}
