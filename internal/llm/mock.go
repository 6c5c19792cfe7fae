package llm

import (
	"context"
	"strings"
	"sync"
)

// Request is one recorded call to a MockCompleter.
type Request struct {
	Prompt  string
	Options Options
}

// MockCompleter is a scripted Completer for tests and offline runs.
//
// Responses queued with QueueResponse are returned first, in order. Once the
// queue is drained, the responder (if set) or the fixed response is used.
type MockCompleter struct {
	mu        sync.Mutex
	queue     []mockReply
	response  string
	err       error
	responder func(prompt string, opts Options) (string, error)
	requests  []Request
}

type mockReply struct {
	text string
	err  error
}

// NewMockCompleter creates an empty mock.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// SetResponse sets the reply used when nothing is queued.
func (m *MockCompleter) SetResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = text
	m.err = nil
}

// SetError makes unqueued calls fail with err.
func (m *MockCompleter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetResponder computes replies from the prompt when nothing is queued.
func (m *MockCompleter) SetResponder(fn func(prompt string, opts Options) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// QueueResponse appends a one-shot reply.
func (m *MockCompleter) QueueResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{text: text})
}

// QueueError appends a one-shot failure.
func (m *MockCompleter) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{err: err})
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.requests = append(m.requests, Request{Prompt: prompt, Options: opts})
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return strings.TrimSpace(r.text), r.err
	}
	responder, response, err := m.responder, m.response, m.err
	m.mu.Unlock()

	if responder != nil {
		text, rerr := responder(prompt, opts)
		return strings.TrimSpace(text), rerr
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// Requests returns every recorded call.
func (m *MockCompleter) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent call, or the zero Request.
func (m *MockCompleter) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}
	}
	return m.requests[len(m.requests)-1]
}
