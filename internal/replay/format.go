package replay

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/vinayprograms/taskloop/internal/session"
)

const gutter = "      │          │   "

// formatEvent formats a single event for display.
func (r *Replayer) formatEvent(seq int, event *session.Event) {
	ts := timeStyle.Render(event.Timestamp.Format("15:04:05"))
	seqNum := seqStyle.Render(fmt.Sprintf("%d", seq))
	head := func(label string, rest string) {
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts, label, rest)
	}

	switch event.Type {
	case session.EventSeed:
		head(flowStyle.Render("SEED"), valueStyle.Render(taskLabel(event.TaskID, event.Task)))

	case session.EventTaskStart:
		fmt.Fprintln(r.output)
		head(titleStyle.Render("TASK"), valueStyle.Render(taskLabel(event.TaskID, event.Task)))

	case session.EventTaskResult:
		head(flowStyle.Render("RESULT"), dimStyle.Render(fmt.Sprintf("(%dms, %d chars)", event.DurationMs, len(event.Content))))
		if r.verbosity >= 1 && event.Content != "" {
			r.printContent(event.Content)
		}

	case session.EventResultStored:
		head(memoryStyle.Render("STORED"), dimStyle.Render(event.Content))

	case session.EventTasksCreated:
		head(createStyle.Render("CREATED"), dimStyle.Render(fmt.Sprintf("(%d tasks)", len(event.Tasks))))
		r.printTasks(event.Tasks)

	case session.EventReprioritized:
		head(prioritizeStyle.Render("PRIORITIZED"), dimStyle.Render(fmt.Sprintf("(%d tasks)", len(event.Tasks))))
		if r.verbosity >= 1 {
			r.printTasks(event.Tasks)
		}

	case session.EventLinesDropped:
		head(warnStyle.Render("DROPPED"), dimStyle.Render(fmt.Sprintf("(%d lines)", len(event.Lines))))
		for _, line := range event.Lines {
			fmt.Fprintf(r.output, "%s%s\n", gutter, warnStyle.Render(truncate.StringWithTail(line, uint(r.width), "...")))
		}

	case session.EventTaskFailed:
		head(errorStyle.Render("FAILED"), dimStyle.Render(fmt.Sprintf("[%s] %s", event.Phase, taskLabel(event.TaskID, event.Task))))
		if event.Error != "" {
			fmt.Fprintf(r.output, "%s%s\n", gutter, errorStyle.Render(event.Error))
		}

	default:
		head(dimStyle.Render(strings.ToUpper(event.Type)), "")
	}
}

// printContent prints wrapped content with timeline indentation.
func (r *Replayer) printContent(content string) {
	if r.maxContentSize > 0 && len(content) > r.maxContentSize {
		content = content[:r.maxContentSize] + fmt.Sprintf("\n... (%d bytes truncated)", len(content)-r.maxContentSize)
	}
	for _, line := range strings.Split(wordwrap.String(content, r.width), "\n") {
		fmt.Fprintf(r.output, "%s%s\n", gutter, line)
	}
}

func (r *Replayer) printTasks(tasks []session.TaskRef) {
	for _, t := range tasks {
		fmt.Fprintf(r.output, "%s%s\n", gutter, valueStyle.Render(taskLabel(t.ID, t.Name)))
	}
}

func taskLabel(id, name string) string {
	if id == "" {
		return name
	}
	return id + ". " + name
}
