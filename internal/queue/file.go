package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileQueue keeps the queue in a YAML file so it survives restarts and can be
// joined by another local process. Writes replace the file atomically.
//
// Each read-modify-write holds an exclusive flock on a sidecar <path>.lock
// file, so processes sharing the queue on one host never pop the same task.
// The lock is advisory and local; use the NATS backend across hosts.
type FileQueue struct {
	path string
	lock *os.File

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
}

// NewFileQueue opens the queue file at path, creating it if missing, and
// starts watching it for changes made elsewhere.
func NewFileQueue(path string) (*FileQueue, error) {
	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open queue lock: %w", err)
	}
	q := &FileQueue{
		path:    path,
		lock:    lock,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	err = q.locked(func() error {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return q.write(&state{})
		} else if err != nil {
			return fmt.Errorf("stat queue file: %w", err)
		}
		return nil
	})
	if err != nil {
		lock.Close()
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("watch queue file: %w", err)
	}
	// Watch the directory: atomic renames replace the file's inode.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		lock.Close()
		return nil, fmt.Errorf("watch queue dir: %w", err)
	}
	q.watcher = w
	go q.watch()
	return q, nil
}

func (q *FileQueue) watch() {
	target := filepath.Clean(q.path)
	for {
		select {
		case <-q.done:
			return
		case ev, ok := <-q.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				select {
				case q.changes <- struct{}{}:
				default:
				}
			}
		case _, ok := <-q.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Changes implements Notifier.
func (q *FileQueue) Changes() <-chan struct{} {
	return q.changes
}

func (q *FileQueue) read() (*state, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	st := &state{}
	if err := yaml.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse queue file %s: %w", q.path, err)
	}
	return st, nil
}

func (q *FileQueue) write(st *state) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(q.path), ".tasks-*.yaml")
	if err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmp.Name(), q.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

// locked runs fn holding both the in-process mutex and the file lock.
func (q *FileQueue) locked(fn func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	fd := int(q.lock.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock queue file: %w", err)
	}
	defer syscall.Flock(fd, syscall.LOCK_UN)
	return fn()
}

// update runs fn on the current document and writes it back if fn reports
// a change. Idle pops must not touch the file or they wake every watcher.
func (q *FileQueue) update(fn func(st *state) bool) error {
	return q.locked(func() error {
		st, err := q.read()
		if err != nil {
			return err
		}
		if !fn(st) {
			return nil
		}
		return q.write(st)
	})
}

func (q *FileQueue) current() (*state, error) {
	var st *state
	err := q.locked(func() error {
		var err error
		st, err = q.read()
		return err
	})
	return st, err
}

// Push implements Queue.
func (q *FileQueue) Push(ctx context.Context, names ...string) ([]Task, error) {
	var added []Task
	err := q.update(func(st *state) bool {
		added = st.push(names)
		return len(added) > 0
	})
	return added, err
}

// Pop implements Queue.
func (q *FileQueue) Pop(ctx context.Context) (Task, bool, error) {
	var (
		t  Task
		ok bool
	)
	err := q.update(func(st *state) bool {
		t, ok = st.pop()
		return ok
	})
	return t, ok, err
}

// Tasks implements Queue.
func (q *FileQueue) Tasks(ctx context.Context) ([]Task, error) {
	st, err := q.current()
	if err != nil {
		return nil, err
	}
	return st.snapshot(), nil
}

// Replace implements Queue.
func (q *FileQueue) Replace(ctx context.Context, tasks []Task) error {
	return q.update(func(st *state) bool {
		st.replace(tasks)
		return true
	})
}

// LastID implements Queue.
func (q *FileQueue) LastID(ctx context.Context) (int64, error) {
	st, err := q.current()
	if err != nil {
		return 0, err
	}
	return st.Counter, nil
}

// Close stops the file watcher and releases the lock file.
func (q *FileQueue) Close() error {
	select {
	case <-q.done:
		return nil
	default:
	}
	close(q.done)
	err := q.watcher.Close()
	if cerr := q.lock.Close(); err == nil {
		err = cerr
	}
	return err
}
