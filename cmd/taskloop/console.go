package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/vinayprograms/taskloop/internal/config"
	"github.com/vinayprograms/taskloop/internal/queue"
)

// Banner colors follow the loop's phases.
var (
	configStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")) // Magenta
	warnStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))  // Red
	objectiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")) // Blue
	taskStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")) // Yellow
	listStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")) // Cyan
	nextStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")) // Green
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// console prints the loop's progress for a human watching the terminal.
type console struct {
	out   io.Writer
	width int
}

func newConsole(out io.Writer) *console {
	return &console{out: out, width: 100}
}

func (c *console) banner(style lipgloss.Style, title string) {
	fmt.Fprintf(c.out, "\n%s\n\n", style.Render("*****"+title+"*****"))
}

func (c *console) wrap(text string) string {
	return wordwrap.String(text, c.width)
}

// configuration prints the startup block.
func (c *console) configuration(cfg *config.Config) {
	c.banner(configStyle, "CONFIGURATION")
	fmt.Fprintf(c.out, "Name  : %s\n", cfg.Agent.Name)
	fmt.Fprintf(c.out, "LLM   : %s (%s tier)\n", cfg.LLM.Provider, cfg.LLM.Tier)
	fmt.Fprintf(c.out, "Memory: %s/%s\n", cfg.Memory.Backend, cfg.Memory.Table)
	fmt.Fprintf(c.out, "Queue : %s\n", cfg.Queue.Backend)
	if cfg.LLM.Tier == "high" {
		fmt.Fprintf(c.out, "\n%s\n", warnStyle.Render("*****USING THE HIGH TIER. POTENTIALLY EXPENSIVE. MONITOR YOUR COSTS*****"))
	}

	c.banner(objectiveStyle, "OBJECTIVE")
	fmt.Fprintln(c.out, c.wrap(cfg.Agent.Objective))

	if cfg.Agent.Join {
		fmt.Fprintf(c.out, "\n%s\n", taskStyle.Render("Joining to help the objective"))
	} else {
		fmt.Fprintf(c.out, "\n%s %s\n", taskStyle.Render("Initial task:"), cfg.Agent.InitialTask)
	}
}

func (c *console) taskList(tasks []queue.Task) {
	c.banner(listStyle, "TASK LIST")
	for _, t := range tasks {
		fmt.Fprintf(c.out, "%s: %s\n", t.ID, t.Name)
	}
}

func (c *console) nextTask(t queue.Task) {
	c.banner(nextStyle, "NEXT TASK")
	fmt.Fprintf(c.out, "%s: %s\n", t.ID, t.Name)
}

func (c *console) taskResult(result string) {
	c.banner(taskStyle, "TASK RESULT")
	fmt.Fprintln(c.out, c.wrap(result))
}

func (c *console) dropped(lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(c.out, "%s\n", dimStyle.Render(fmt.Sprintf("(ignored %d unparseable prioritization lines)", len(lines))))
}

func (c *console) failure(err error) {
	fmt.Fprintf(c.out, "\n%s %s\n", warnStyle.Render("Task failed:"), err)
}

func (c *console) stopped(iterations int, sessionPath string) {
	parts := []string{fmt.Sprintf("%d tasks run", iterations)}
	if sessionPath != "" {
		parts = append(parts, "journal: "+sessionPath)
	}
	fmt.Fprintf(c.out, "\n%s\n", dimStyle.Render(strings.Join(parts, ", ")))
}
