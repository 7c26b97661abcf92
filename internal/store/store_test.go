package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStartAndGetSession(t *testing.T) {
	s := openTestStore(t)
	started := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)

	sess := &Session{ID: "s-001", Tool: "specstory", StartedAt: started}
	if err := s.StartSession(sess); err != nil {
		t.Fatalf("start: %v", err)
	}

	got, err := s.GetSession("s-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil session")
	}
	if got.Tool != "specstory" {
		t.Errorf("tool = %q, want specstory", got.Tool)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.FinishedAt != nil || got.ExitCode != nil {
		t.Errorf("fresh session already finished: %+v", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetSession("nonexistent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestFinishSession(t *testing.T) {
	s := openTestStore(t)

	sess := &Session{ID: "s-done", Tool: "specstory"}
	if err := s.StartSession(sess); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.FinishSession("s-done", "/tmp/chat.md", 2, 7); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, _ := s.GetSession("s-done")
	if got.Target != "/tmp/chat.md" {
		t.Errorf("target = %q, want /tmp/chat.md", got.Target)
	}
	if got.ExitCode == nil || *got.ExitCode != 2 {
		t.Errorf("exit_code = %v, want 2", got.ExitCode)
	}
	if got.Stamped != 7 {
		t.Errorf("stamped = %d, want 7", got.Stamped)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at should be set")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sess := &Session{
			ID:        fmt.Sprintf("s-%d", i),
			Tool:      "specstory",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.StartSession(sess); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}

	sessions, err := s.ListSessions(3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	if sessions[0].ID != "s-4" {
		t.Errorf("first = %s, want s-4", sessions[0].ID)
	}
	if sessions[2].ID != "s-2" {
		t.Errorf("third = %s, want s-2", sessions[2].ID)
	}
}

func TestStartSessionDefaultsStartedAt(t *testing.T) {
	s := openTestStore(t)
	sess := &Session{ID: "s-now", Tool: "specstory"}
	if err := s.StartSession(sess); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.StartedAt.IsZero() {
		t.Error("StartedAt not defaulted")
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "nested", "deeper", "sessions.db")
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Close()
}

func TestMigrationIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAllTablesExist(t *testing.T) {
	s := openTestStore(t)
	tables := []string{"sessions", "schema_migrations"}
	for _, name := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
		if err != nil {
			t.Fatalf("check table %s: %v", name, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", name)
		}
	}
}
