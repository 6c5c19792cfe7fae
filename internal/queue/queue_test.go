package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func queueFactories(t *testing.T) map[string]func() Queue {
	return map[string]func() Queue{
		"memory": func() Queue { return NewMemoryQueue() },
		"file": func() Queue {
			q, err := NewFileQueue(filepath.Join(t.TempDir(), "tasks.yaml"))
			if err != nil {
				t.Fatalf("NewFileQueue: %v", err)
			}
			return q
		},
	}
}

func TestQueue_PushAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			seed, _ := q.Push(ctx, "Develop a task list")
			if len(seed) != 1 || seed[0].ID != "1" {
				t.Fatalf("seed task should get id 1, got %+v", seed)
			}
			added, err := q.Push(ctx, "a", "b")
			if err != nil {
				t.Fatalf("Push: %v", err)
			}
			if added[0].ID != "2" || added[1].ID != "3" {
				t.Errorf("expected ids 2,3 got %s,%s", added[0].ID, added[1].ID)
			}
			if last, _ := q.LastID(ctx); last != 3 {
				t.Errorf("expected last id 3, got %d", last)
			}
		})
	}
}

func TestQueue_PopIsFIFO(t *testing.T) {
	ctx := context.Background()
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			if _, ok, err := q.Pop(ctx); ok || err != nil {
				t.Fatalf("empty queue should pop nothing, got ok=%v err=%v", ok, err)
			}
			q.Push(ctx, "first", "second")
			task, ok, err := q.Pop(ctx)
			if err != nil || !ok {
				t.Fatalf("Pop: ok=%v err=%v", ok, err)
			}
			if task.Name != "first" || task.ID != "1" {
				t.Errorf("expected first task, got %+v", task)
			}
			rest, _ := q.Tasks(ctx)
			if len(rest) != 1 || rest[0].Name != "second" {
				t.Errorf("unexpected remainder: %+v", rest)
			}
		})
	}
}

func TestQueue_ReplaceKeepsCounter(t *testing.T) {
	ctx := context.Background()
	for name, factory := range queueFactories(t) {
		t.Run(name, func(t *testing.T) {
			q := factory()
			defer q.Close()

			q.Push(ctx, "a", "b", "c")
			if err := q.Replace(ctx, []Task{{ID: "2", Name: "B"}, {ID: "x", Name: "odd id"}}); err != nil {
				t.Fatalf("Replace: %v", err)
			}
			tasks, _ := q.Tasks(ctx)
			if len(tasks) != 2 || tasks[1].ID != "x" {
				t.Errorf("expected replaced list, got %+v", tasks)
			}
			added, _ := q.Push(ctx, "d")
			if added[0].ID != "4" {
				t.Errorf("counter must not rewind after Replace, got id %s", added[0].ID)
			}
		})
	}
}

func TestQueue_TasksIsSnapshot(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	q.Push(ctx, "a")
	snap, _ := q.Tasks(ctx)
	snap[0].Name = "mutated"
	again, _ := q.Tasks(ctx)
	if again[0].Name != "a" {
		t.Error("Tasks must return a copy")
	}
}

func TestFileQueue_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.yaml")

	q, err := NewFileQueue(path)
	if err != nil {
		t.Fatalf("NewFileQueue: %v", err)
	}
	q.Push(ctx, "a", "b")
	q.Pop(ctx)
	q.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "task_name: b") || !strings.Contains(string(data), "counter: 2") {
		t.Errorf("unexpected file contents:\n%s", data)
	}

	q2, err := NewFileQueue(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer q2.Close()
	added, _ := q2.Push(ctx, "c")
	if added[0].ID != "3" {
		t.Errorf("counter should persist, got id %s", added[0].ID)
	}
}

func TestFileQueue_NotifiesOnExternalWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	watcher, err := NewFileQueue(path)
	if err != nil {
		t.Fatalf("NewFileQueue: %v", err)
	}
	defer watcher.Close()

	writer, err := NewFileQueue(path)
	if err != nil {
		t.Fatalf("second NewFileQueue: %v", err)
	}
	defer writer.Close()

	// drain anything produced by setup
	select {
	case <-watcher.Changes():
	case <-time.After(50 * time.Millisecond):
	}

	writer.Push(ctx, "from another process")
	select {
	case <-watcher.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
	tasks, _ := watcher.Tasks(ctx)
	if len(tasks) != 1 || tasks[0].Name != "from another process" {
		t.Errorf("watcher should see the pushed task, got %+v", tasks)
	}
}

func TestFileQueue_SharedHandlesPopEachTaskOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.yaml")

	var handles []*FileQueue
	for i := 0; i < 2; i++ {
		q, err := NewFileQueue(path)
		if err != nil {
			t.Fatalf("NewFileQueue: %v", err)
		}
		defer q.Close()
		handles = append(handles, q)
	}

	const total = 60
	names := make([]string, total)
	for i := range names {
		names[i] = fmt.Sprintf("task %d", i)
	}
	if _, err := handles[0].Push(ctx, names...); err != nil {
		t.Fatalf("Push: %v", err)
	}

	var (
		mu     sync.Mutex
		popped = map[string]int{}
		wg     sync.WaitGroup
	)
	for _, q := range handles {
		wg.Add(1)
		go func(q *FileQueue) {
			defer wg.Done()
			for {
				task, ok, err := q.Pop(ctx)
				if err != nil {
					t.Errorf("Pop: %v", err)
					return
				}
				if !ok {
					return
				}
				mu.Lock()
				popped[task.ID]++
				mu.Unlock()
			}
		}(q)
	}
	wg.Wait()

	if len(popped) != total {
		t.Errorf("expected %d distinct tasks popped, got %d", total, len(popped))
	}
	for id, n := range popped {
		if n != 1 {
			t.Errorf("task %s popped %d times", id, n)
		}
	}
}

func TestNATSQueue_Integration(t *testing.T) {
	url := os.Getenv("TASKLOOP_NATS_URL")
	if url == "" {
		t.Skip("TASKLOOP_NATS_URL not set")
	}
	ctx := context.Background()
	cfg := NATSConfig{URL: url, Bucket: "taskloop_test", Key: "q" + time.Now().Format("150405.000000")}

	a, err := NewNATSQueue(cfg)
	if err != nil {
		t.Fatalf("NewNATSQueue: %v", err)
	}
	defer a.Close()
	b, err := NewNATSQueue(cfg)
	if err != nil {
		t.Fatalf("second NewNATSQueue: %v", err)
	}
	defer b.Close()

	a.Push(ctx, "one", "two")
	first, ok, _ := b.Pop(ctx)
	if !ok || first.ID != "1" {
		t.Fatalf("expected to claim task 1, got %+v ok=%v", first, ok)
	}
	second, ok, _ := a.Pop(ctx)
	if !ok || second.ID != "2" {
		t.Fatalf("expected to claim task 2, got %+v ok=%v", second, ok)
	}
	added, _ := b.Push(ctx, "three")
	if added[0].ID != "3" {
		t.Errorf("shared counter should continue at 3, got %s", added[0].ID)
	}
}

func TestNames(t *testing.T) {
	got := Names([]Task{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}})
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("unexpected names %v", got)
	}
}
