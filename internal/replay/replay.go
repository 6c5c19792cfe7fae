package replay

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/vinayprograms/taskloop/internal/session"
)

// Replayer reads and formats journal events.
type Replayer struct {
	output         io.Writer
	verbosity      int // 0=normal, 1=verbose (-v), 2=very verbose (-vv)
	maxContentSize int // Maximum size for Content fields (0 = unlimited)
	width          int // Wrap width for content blocks
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithMaxContentSize limits how much of a result is printed.
func WithMaxContentSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.maxContentSize = size
	}
}

// WithWidth sets the wrap width for content blocks.
func WithWidth(width int) ReplayerOption {
	return func(r *Replayer) {
		r.width = width
	}
}

// New creates a new Replayer.
// verbosity: 0=normal, 1=verbose (-v), 2=very verbose (-vv)
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:         output,
		verbosity:      verbosity,
		maxContentSize: 50 * 1024,
		width:          100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads a JSONL journal and replays it.
func (r *Replayer) ReplayFile(path string) error {
	sess, err := session.LoadFile(path)
	if err != nil {
		return err
	}
	return r.Replay(sess)
}

// Replay writes a formatted timeline of sess.
func (r *Replayer) Replay(sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("no session to replay")
	}

	fmt.Fprintln(r.output, divider)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("SESSION"), valueStyle.Render(sess.ID))
	fmt.Fprintln(r.output, divider)
	r.field("instance", sess.Instance)
	r.field("objective", sess.Objective)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("status:   "), r.statusStyle(sess.Status).Render(sess.Status))
	if !sess.CreatedAt.IsZero() {
		r.field("started", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(r.output)

	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(sess.Events))))
	fmt.Fprintln(r.output, divider)

	for i := range sess.Events {
		r.formatEvent(i+1, &sess.Events[i])
	}

	if r.verbosity >= 1 {
		fmt.Fprintln(r.output)
		ComputeStats(sess).Print(r.output)
	}

	r.outcome(sess)
	return nil
}

// outcome prints how the run ended.
func (r *Replayer) outcome(sess *session.Session) {
	fmt.Fprintf(r.output, "\n%s\n", divider)
	style := r.statusStyle(sess.Status)
	switch sess.Status {
	case session.StatusComplete:
		fmt.Fprintln(r.output, style.Render("COMPLETED"))
	case session.StatusFailed:
		fmt.Fprintf(r.output, "%s %s\n", style.Render("FAILED:"), valueStyle.Render(sess.Error))
	default:
		fmt.Fprintln(r.output, style.Render("STILL RUNNING (or interrupted before the footer was written)"))
	}
	fmt.Fprintln(r.output)
}

func (r *Replayer) field(label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label+":")), valueStyle.Render(value))
}

// statusStyle returns appropriate style for status.
func (r *Replayer) statusStyle(status string) lipgloss.Style {
	switch status {
	case session.StatusComplete:
		return successStyle
	case session.StatusFailed:
		return errorStyle
	default:
		return warnStyle
	}
}
