// Session event logging functions for the executor.
package executor

import (
	"context"
	"errors"

	"github.com/vinayprograms/taskloop/internal/session"
)

// logEvent appends an event to the session journal, if one is attached.
func (e *Executor) logEvent(event session.Event) {
	if e.session == nil || e.sessionManager == nil {
		return
	}
	e.session.AddEvent(event)
	if err := e.sessionManager.Update(e.session); err != nil {
		e.logger.Warn("failed to write session journal", map[string]interface{}{"error": err.Error()})
	}
}

// Finish records how the run ended. Cancellation counts as a clean stop.
func (e *Executor) Finish(runErr error) {
	if e.session == nil || e.sessionManager == nil {
		return
	}
	if runErr == nil || errors.Is(runErr, context.Canceled) {
		e.session.SetStatus(session.StatusComplete, nil)
	} else {
		e.session.SetStatus(session.StatusFailed, runErr)
	}
	if err := e.sessionManager.Update(e.session); err != nil {
		e.logger.Warn("failed to write session journal", map[string]interface{}{"error": err.Error()})
	}
}
