// Package session records a run of the task loop as a JSONL journal.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status constants for sessions.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the journal.
const (
	EventTaskStart     = "task_start"     // Task popped for execution
	EventTaskResult    = "task_result"    // Execution agent returned
	EventResultStored  = "result_stored"  // Result upserted into vector memory
	EventTasksCreated  = "tasks_created"  // New tasks appended
	EventReprioritized = "reprioritized"  // Queue replaced by prioritization
	EventLinesDropped  = "lines_dropped"  // Prioritization lines that did not parse
	EventTaskFailed    = "task_failed"    // Iteration aborted; the task is gone
	EventSeed          = "seed"           // Initial task pushed
)

// Session is one run of the loop.
type Session struct {
	ID        string    `json:"id"`
	Instance  string    `json:"instance"`
	Objective string    `json:"objective"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Events    []Event   `json:"events"` // Not yet journaled, or everything for a loaded session
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	seqCounter uint64
	mu         sync.Mutex

	// Journal progress. Events already on disk are released from memory
	// after a Save; onDisk counts loaded events that are on disk already.
	onDisk        int
	headerWritten bool
	footerWritten bool
}

// Event is a single journal entry.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	TaskID string `json:"task_id,omitempty"`
	Task   string `json:"task,omitempty"`

	Content    string `json:"content,omitempty"` // Result text, record id, etc.
	Error      string `json:"error,omitempty"`
	Phase      string `json:"phase,omitempty"` // Loop phase an error came from
	DurationMs int64  `json:"duration_ms,omitempty"`

	Tasks []TaskRef `json:"tasks,omitempty"` // Created or reprioritized tasks
	Lines []string  `json:"lines,omitempty"` // Dropped model output lines
}

// TaskRef is a task as recorded in the journal.
type TaskRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AddEvent appends event with the next sequence number.
func (s *Session) AddEvent(event Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SeqID = atomic.AddUint64(&s.seqCounter, 1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Events = append(s.Events, event)
	s.UpdatedAt = time.Now()
	return event.SeqID
}

// unwritten is what Save still has to write, captured under the session lock.
type unwritten struct {
	header  JSONLRecord
	events  []Event
	footer  *JSONLRecord
	started bool
}

func (s *Session) unwritten() unwritten {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := unwritten{
		header: JSONLRecord{
			RecordType: RecordTypeHeader,
			ID:         s.ID,
			Instance:   s.Instance,
			Objective:  s.Objective,
			Status:     StatusRunning,
			CreatedAt:  s.CreatedAt,
		},
		events:  append([]Event(nil), s.Events[s.onDisk:]...),
		started: s.headerWritten,
	}
	if !s.footerWritten && s.Status != "" && s.Status != StatusRunning {
		p.footer = &JSONLRecord{
			RecordType: RecordTypeFooter,
			Status:     s.Status,
			Event:      &Event{Error: s.Error},
			UpdatedAt:  s.UpdatedAt,
		}
	}
	return p
}

// written drops the first n events, now on disk, and marks the header
// and footer as done.
func (s *Session) written(n int, footer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append([]Event(nil), s.Events[s.onDisk+n:]...)
	s.onDisk = 0
	s.headerWritten = true
	if footer {
		s.footerWritten = true
	}
}

// SetStatus records the final status and error, if any.
func (s *Session) SetStatus(status string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	if err != nil {
		s.Error = err.Error()
	}
	s.UpdatedAt = time.Now()
}

// SessionManager creates and persists sessions.
type SessionManager interface {
	Create(instance, objective string) (*Session, error)
	Update(sess *Session) error
	Get(id string) (*Session, error)
}

// JSONL record types for streaming format
const (
	RecordTypeHeader = "header" // Session metadata (first line)
	RecordTypeEvent  = "event"  // Individual event
	RecordTypeFooter = "footer" // Final state (last line)
)

// JSONLRecord is a wrapper for JSONL lines with type discrimination.
type JSONLRecord struct {
	RecordType string `json:"_type"`

	// header
	ID        string    `json:"id,omitempty"`
	Instance  string    `json:"instance,omitempty"`
	Objective string    `json:"objective,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	*Event `json:",omitempty"`

	// footer
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// FileStore keeps one JSONL file per session.
type FileStore struct {
	dir string
}

// NewFileStore creates a new file-based store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the journal path for a session id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Save appends whatever sess has not yet written to its journal: the
// header on first call, new events, and the footer once the status is final.
// The file is never truncated, so a killed process leaves every line written
// before it.
func (s *FileStore) Save(sess *Session) error {
	p := sess.unwritten()
	if p.started && len(p.events) == 0 && p.footer == nil {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if !p.started {
		if err := enc.Encode(p.header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i := range p.events {
		if err := enc.Encode(JSONLRecord{RecordType: RecordTypeEvent, Event: &p.events[i]}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if p.footer != nil {
		if err := enc.Encode(*p.footer); err != nil {
			return fmt.Errorf("failed to write footer: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !p.started {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.Path(p.header.ID), flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to session file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	sess.written(len(p.events), p.footer != nil)
	return nil
}

// Load reads a session by id.
func (s *FileStore) Load(id string) (*Session, error) {
	return LoadFile(s.Path(id))
}

// LoadFile reads a session journal from path.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess := &Session{Events: []Event{}}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading JSONL: %w", err)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if perr := parseLine(trimmed, sess); perr != nil {
				// A kill mid-append leaves an unterminated last line.
				if err == io.EOF {
					break
				}
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
	}

	if len(sess.Events) > 0 {
		sess.seqCounter = sess.Events[len(sess.Events)-1].SeqID
	}
	sess.onDisk = len(sess.Events)
	sess.headerWritten = true
	sess.footerWritten = sess.Status != "" && sess.Status != StatusRunning
	return sess, nil
}

func parseLine(line []byte, sess *Session) error {
	var record JSONLRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return fmt.Errorf("failed to parse JSONL line: %w", err)
	}

	switch record.RecordType {
	case RecordTypeHeader:
		sess.ID = record.ID
		sess.Instance = record.Instance
		sess.Objective = record.Objective
		sess.Status = record.Status
		sess.CreatedAt = record.CreatedAt
	case RecordTypeEvent:
		if record.Event != nil {
			sess.Events = append(sess.Events, *record.Event)
		}
	case RecordTypeFooter:
		sess.Status = record.Status
		if record.Event != nil {
			sess.Error = record.Event.Error
		}
		sess.UpdatedAt = record.UpdatedAt
	}
	return nil
}

// FileManager wraps FileStore to implement SessionManager.
type FileManager struct {
	store *FileStore
	mu    sync.Mutex
}

// NewFileManager creates a new file-based session manager.
func NewFileManager(dir string) (*FileManager, error) {
	store, err := NewFileStore(dir)
	if err != nil {
		return nil, fmt.Errorf("session dir %s: %w", dir, err)
	}
	return &FileManager{store: store}, nil
}

// Create creates and saves a new running session.
func (m *FileManager) Create(instance, objective string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.New().String(),
		Instance:  instance,
		Objective: objective,
		Status:    StatusRunning,
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.Update(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Update appends the session's unwritten events to its journal.
func (m *FileManager) Update(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Save(sess)
}

// Get retrieves a session by ID.
func (m *FileManager) Get(id string) (*Session, error) {
	return m.store.Load(id)
}

// Path returns the journal path for a session.
func (m *FileManager) Path(id string) string {
	return m.store.Path(id)
}
