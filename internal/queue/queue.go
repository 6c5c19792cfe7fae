// Package queue holds the ordered task list and the id counter the loop draws
// fresh task ids from.
package queue

import (
	"context"
	"strconv"
	"sync"
)

// Task is a unit of work. IDs assigned by the queue are decimal strings, but
// after reprioritization an id is whatever token the model wrote.
type Task struct {
	ID   string `json:"task_id" yaml:"task_id"`
	Name string `json:"task_name" yaml:"task_name"`
}

// Queue is an ordered task list with a monotonically increasing id counter.
// Replace rewrites the list but never rewinds the counter.
type Queue interface {
	// Push appends tasks named names, assigning each the next id.
	Push(ctx context.Context, names ...string) ([]Task, error)
	// Pop removes and returns the front task. ok is false when empty.
	Pop(ctx context.Context) (task Task, ok bool, err error)
	// Tasks returns a snapshot of the list in order.
	Tasks(ctx context.Context) ([]Task, error)
	// Replace swaps the whole list for tasks.
	Replace(ctx context.Context, tasks []Task) error
	// LastID returns the most recently assigned id, 0 if none.
	LastID(ctx context.Context) (int64, error)
	Close() error
}

// Notifier is implemented by queues that can be changed by another process.
// Changes receives a value whenever the shared list may have changed.
type Notifier interface {
	Changes() <-chan struct{}
}

// Names returns the task names in order.
func Names(tasks []Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return names
}

// state is the document every backend stores.
type state struct {
	Counter int64  `json:"counter" yaml:"counter"`
	Tasks   []Task `json:"tasks" yaml:"tasks"`
}

func (s *state) push(names []string) []Task {
	added := make([]Task, 0, len(names))
	for _, name := range names {
		s.Counter++
		t := Task{ID: strconv.FormatInt(s.Counter, 10), Name: name}
		s.Tasks = append(s.Tasks, t)
		added = append(added, t)
	}
	return added
}

func (s *state) pop() (Task, bool) {
	if len(s.Tasks) == 0 {
		return Task{}, false
	}
	t := s.Tasks[0]
	s.Tasks = s.Tasks[1:]
	return t, true
}

func (s *state) replace(tasks []Task) {
	s.Tasks = append([]Task(nil), tasks...)
}

func (s *state) snapshot() []Task {
	return append([]Task(nil), s.Tasks...)
}

// MemoryQueue is a process-local queue.
type MemoryQueue struct {
	mu sync.Mutex
	st state
}

// NewMemoryQueue creates an empty queue whose first id will be 1.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Push implements Queue.
func (q *MemoryQueue) Push(ctx context.Context, names ...string) ([]Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.push(names), nil
}

// Pop implements Queue.
func (q *MemoryQueue) Pop(ctx context.Context) (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.st.pop()
	return t, ok, nil
}

// Tasks implements Queue.
func (q *MemoryQueue) Tasks(ctx context.Context) ([]Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.snapshot(), nil
}

// Replace implements Queue.
func (q *MemoryQueue) Replace(ctx context.Context, tasks []Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.st.replace(tasks)
	return nil
}

// LastID implements Queue.
func (q *MemoryQueue) LastID(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.Counter, nil
}

// Close implements Queue.
func (q *MemoryQueue) Close() error { return nil }
