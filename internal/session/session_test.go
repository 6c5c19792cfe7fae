package session

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestFileManager_Create(t *testing.T) {
	mgr, err := NewFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}
	sess, err := mgr.Create("BabyAGI", "Write a poem")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if sess.ID == "" {
		t.Error("session ID should not be empty")
	}
	if sess.Status != StatusRunning {
		t.Errorf("expected status running, got %s", sess.Status)
	}
	if _, err := os.Stat(mgr.Path(sess.ID)); err != nil {
		t.Errorf("journal file should exist: %v", err)
	}
}

func TestFileManager_UniqueIDs(t *testing.T) {
	mgr, _ := NewFileManager(t.TempDir())
	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := mgr.Create("a", "b")
		if err != nil {
			t.Fatalf("create error: %v", err)
		}
		if ids[sess.ID] {
			t.Errorf("duplicate session ID: %s", sess.ID)
		}
		ids[sess.ID] = true
	}
}

func TestSession_AddEventSequences(t *testing.T) {
	sess := &Session{}
	first := sess.AddEvent(Event{Type: EventTaskStart, TaskID: "1"})
	second := sess.AddEvent(Event{Type: EventTaskResult, TaskID: "1"})
	if first != 1 || second != 2 {
		t.Errorf("expected seq 1,2 got %d,%d", first, second)
	}
	if sess.Events[0].Timestamp.IsZero() {
		t.Error("timestamp should be filled in")
	}
}

func TestFileManager_RoundTrip(t *testing.T) {
	mgr, _ := NewFileManager(t.TempDir())
	sess, _ := mgr.Create("BabyAGI", "Write a poem")

	sess.AddEvent(Event{Type: EventTaskStart, TaskID: "1", Task: "Draft"})
	sess.AddEvent(Event{Type: EventTaskResult, TaskID: "1", Content: "Roses\nare red"})
	sess.AddEvent(Event{Type: EventReprioritized, Tasks: []TaskRef{{ID: "2", Name: "Edit"}}})
	sess.AddEvent(Event{Type: EventLinesDropped, Lines: []string{"Here you go:"}})
	sess.SetStatus(StatusFailed, errors.New("execute: quota"))
	if err := mgr.Update(sess); err != nil {
		t.Fatalf("update error: %v", err)
	}

	loaded, err := mgr.Get(sess.ID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if loaded.Instance != "BabyAGI" || loaded.Objective != "Write a poem" {
		t.Errorf("header not restored: %+v", loaded)
	}
	if loaded.Status != StatusFailed || loaded.Error != "execute: quota" {
		t.Errorf("footer not restored: status=%s error=%q", loaded.Status, loaded.Error)
	}
	if len(loaded.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(loaded.Events))
	}
	if loaded.Events[1].Content != "Roses\nare red" {
		t.Errorf("multi-line content should survive, got %q", loaded.Events[1].Content)
	}
	if loaded.Events[2].Tasks[0].Name != "Edit" || loaded.Events[3].Lines[0] != "Here you go:" {
		t.Errorf("structured fields lost: %+v", loaded.Events[2:])
	}

	if seq := loaded.AddEvent(Event{Type: EventTaskStart}); seq != 5 {
		t.Errorf("sequence should continue after load, got %d", seq)
	}
}

func TestFileStore_JSONLLayout(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	sess := &Session{ID: "abc", Instance: "i", Objective: "o", Status: StatusComplete}
	sess.AddEvent(Event{Type: EventSeed, TaskID: "1", Task: "Develop a task list"})
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(store.Path("abc"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, event, footer; got %d lines", len(lines))
	}
	for i, want := range []string{`"_type":"header"`, `"_type":"event"`, `"_type":"footer"`} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d missing %s: %s", i, want, lines[i])
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(t.TempDir() + "/nope.jsonl"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileManager_UpdateAppends(t *testing.T) {
	mgr, _ := NewFileManager(t.TempDir())
	sess, _ := mgr.Create("BabyAGI", "Write a poem")
	path := mgr.Path(sess.ID)

	result := strings.Repeat("r", 4096)
	var prev int64
	for i := 0; i < 20; i++ {
		sess.AddEvent(Event{Type: EventTaskResult, TaskID: "1", Content: result})
		if err := mgr.Update(sess); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if growth := info.Size() - prev; i > 0 && growth > 2*int64(len(result)) {
			t.Fatalf("update %d grew the journal by %d bytes; expected one event", i, growth)
		}
		prev = info.Size()
		if len(sess.Events) != 0 {
			t.Fatalf("journaled events should be released, %d kept", len(sess.Events))
		}
	}

	loaded, err := mgr.Get(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Events) != 20 {
		t.Errorf("expected 20 events, got %d", len(loaded.Events))
	}
	if loaded.Status != StatusRunning {
		t.Errorf("journal without footer should read as running, got %q", loaded.Status)
	}

	sess.SetStatus(StatusComplete, nil)
	mgr.Update(sess)
	mgr.Update(sess)
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), `"_type":"footer"`); n != 1 {
		t.Errorf("expected one footer, got %d", n)
	}
}

func TestLoadFile_TornLastLine(t *testing.T) {
	mgr, _ := NewFileManager(t.TempDir())
	sess, _ := mgr.Create("BabyAGI", "Write a poem")
	sess.AddEvent(Event{Type: EventTaskStart, TaskID: "1", Task: "Draft"})
	mgr.Update(sess)

	f, err := os.OpenFile(mgr.Path(sess.ID), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"_type":"event","seq":2,"type":"task_res`)
	f.Close()

	loaded, err := mgr.Get(sess.ID)
	if err != nil {
		t.Fatalf("torn tail should be skipped: %v", err)
	}
	if len(loaded.Events) != 1 || loaded.Events[0].Task != "Draft" {
		t.Errorf("events before the torn line should survive: %+v", loaded.Events)
	}
}

func TestLoadFile_SaveDoesNotDuplicate(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	sess := &Session{ID: "abc", Instance: "i", Objective: "o"}
	sess.AddEvent(Event{Type: EventSeed, TaskID: "1"})
	store.Save(sess)

	loaded, err := store.Load("abc")
	if err != nil {
		t.Fatal(err)
	}
	loaded.AddEvent(Event{Type: EventTaskStart, TaskID: "1"})
	if err := store.Save(loaded); err != nil {
		t.Fatal(err)
	}
	again, _ := store.Load("abc")
	if len(again.Events) != 2 || again.Events[1].SeqID != 2 {
		t.Errorf("expected seed then task_start, got %+v", again.Events)
	}
}
