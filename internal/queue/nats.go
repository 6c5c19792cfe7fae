package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// maxCASAttempts bounds retries when another instance wins a revision race.
const maxCASAttempts = 64

// NATSConfig configures a NATSQueue.
type NATSConfig struct {
	URL    string
	Bucket string // JetStream key-value bucket, created if missing
	Key    string // key holding the queue document
	Name   string // client connection name
}

// NATSQueue stores the queue document in a JetStream key-value bucket. Every
// mutation is a compare-and-set on the key's revision, so several loops can
// push, pop and replace the same queue without a leader.
type NATSQueue struct {
	nc      *nats.Conn
	kv      nats.KeyValue
	key     string
	watcher nats.KeyWatcher
	changes chan struct{}
}

// NewNATSQueue connects to NATS and opens (or creates) the bucket.
func NewNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	if cfg.Key == "" {
		cfg.Key = "queue"
	}
	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", cfg.URL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "taskloop shared task queue",
			History:     1,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Bucket, err)
	}

	q := &NATSQueue{nc: nc, kv: kv, key: cfg.Key, changes: make(chan struct{}, 1)}
	w, err := kv.Watch(cfg.Key, nats.UpdatesOnly())
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Key, err)
	}
	q.watcher = w
	go q.forward()
	return q, nil
}

func (q *NATSQueue) forward() {
	for entry := range q.watcher.Updates() {
		if entry == nil {
			continue
		}
		select {
		case q.changes <- struct{}{}:
		default:
		}
	}
}

// Changes implements Notifier.
func (q *NATSQueue) Changes() <-chan struct{} {
	return q.changes
}

func (q *NATSQueue) load() (*state, uint64, error) {
	entry, err := q.kv.Get(q.key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return &state{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", q.key, err)
	}
	st := &state{}
	if err := json.Unmarshal(entry.Value(), st); err != nil {
		return nil, 0, fmt.Errorf("decode queue document: %w", err)
	}
	return st, entry.Revision(), nil
}

// update applies fn under compare-and-set, retrying on revision conflicts.
// fn may run more than once and must only touch st. Nothing is written when
// fn reports no change.
func (q *NATSQueue) update(ctx context.Context, fn func(st *state) bool) error {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, rev, err := q.load()
		if err != nil {
			return err
		}
		if !fn(st) {
			return nil
		}
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode queue document: %w", err)
		}
		if rev == 0 {
			_, err = q.kv.Create(q.key, data)
		} else {
			_, err = q.kv.Update(q.key, data, rev)
		}
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return fmt.Errorf("write %s: %w", q.key, err)
		}
	}
	return fmt.Errorf("write %s: too much contention after %d attempts", q.key, maxCASAttempts)
}

func isConflict(err error) bool {
	if errors.Is(err, nats.ErrKeyExists) {
		return true
	}
	var apiErr *nats.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == nats.JSErrCodeStreamWrongLastSequence
	}
	return false
}

// Push implements Queue.
func (q *NATSQueue) Push(ctx context.Context, names ...string) ([]Task, error) {
	var added []Task
	err := q.update(ctx, func(st *state) bool {
		added = st.push(names)
		return len(added) > 0
	})
	return added, err
}

// Pop implements Queue. Popping is a claim: two instances never receive the
// same task.
func (q *NATSQueue) Pop(ctx context.Context) (Task, bool, error) {
	var (
		t  Task
		ok bool
	)
	err := q.update(ctx, func(st *state) bool {
		t, ok = st.pop()
		return ok
	})
	return t, ok, err
}

// Tasks implements Queue.
func (q *NATSQueue) Tasks(ctx context.Context) ([]Task, error) {
	st, _, err := q.load()
	if err != nil {
		return nil, err
	}
	return st.snapshot(), nil
}

// Replace implements Queue.
func (q *NATSQueue) Replace(ctx context.Context, tasks []Task) error {
	return q.update(ctx, func(st *state) bool {
		st.replace(tasks)
		return true
	})
}

// LastID implements Queue.
func (q *NATSQueue) LastID(ctx context.Context) (int64, error) {
	st, _, err := q.load()
	if err != nil {
		return 0, err
	}
	return st.Counter, nil
}

// Close stops the watcher and drains the connection.
func (q *NATSQueue) Close() error {
	if q.watcher != nil {
		q.watcher.Stop()
	}
	return q.nc.Drain()
}
