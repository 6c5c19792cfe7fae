package main

import (
	"io"

	"github.com/vinayprograms/taskloop/internal/replay"
)

// runReplay prints a session journal as a timeline.
func runReplay(w io.Writer, sessionPath string, verbosity, width int) error {
	var opts []replay.ReplayerOption
	if width > 0 {
		opts = append(opts, replay.WithWidth(width))
	}
	return replay.New(w, verbosity, opts...).ReplayFile(sessionPath)
}
