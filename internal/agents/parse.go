package agents

import (
	"regexp"
	"strings"

	"github.com/vinayprograms/taskloop/internal/queue"
)

// ParseTaskLines splits model output into task names, one per line. Blank
// lines are dropped; other lines are kept trimmed and otherwise as written.
func ParseTaskLines(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// numberedLine matches "<id>. <name>": the id runs up to the first period and
// holds no whitespace, the name is non-empty.
var numberedLine = regexp.MustCompile(`^\s*([^.\s]+)\.\s*(.*\S)\s*$`)

// ParseNumberedList reads a "N. name" list. Lines that do not match are
// returned separately so callers can report them; they never become tasks.
// IDs are kept exactly as written.
func ParseNumberedList(output string) (tasks []queue.Task, dropped []string) {
	for _, line := range strings.Split(output, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" {
				dropped = append(dropped, line)
			}
			continue
		}
		tasks = append(tasks, queue.Task{ID: m[1], Name: m[2]})
	}
	return tasks, dropped
}
