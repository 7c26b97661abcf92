package ledger

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestStamp(t *testing.T) {
	in := time.Date(2024, 1, 1, 0, 0, 5, 999999999, time.UTC)
	if got := Stamp(in); got != "2024-01-01T00:00:05Z" {
		t.Errorf("Stamp = %q, want 2024-01-01T00:00:05Z", got)
	}
	// Non-UTC input renders in UTC.
	est := time.FixedZone("EST", -5*3600)
	in = time.Date(2024, 1, 1, 19, 0, 0, 0, est)
	if got := Stamp(in); got != "2024-01-02T00:00:00Z" {
		t.Errorf("Stamp = %q, want 2024-01-02T00:00:00Z", got)
	}
}

func TestPathFor(t *testing.T) {
	got := PathFor("/proj/.specstory/history/chat.md")
	want := filepath.Join("/proj", ".specstory", "timestamps", "chat.timestamps")
	if got != want {
		t.Errorf("PathFor = %q, want %q", got, want)
	}
}

func TestEnsurePreservesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timestamps", "chat.timestamps")

	if err := Ensure(path); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("ledger not created: %v", err)
	}

	if err := Append(path, Entry{Stamp: "2024-01-01T00:00:00Z", Snippet: "Hello"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Ensure(path); err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	lines, err := Lines(path)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("Ensure truncated ledger: %d lines, want 1", len(lines))
	}
}

func TestAppendIsAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.timestamps")

	if err := Append(path, Entry{Stamp: "2024-01-01T00:00:00Z", Snippet: "Hello"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	before, err := Lines(path)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}

	if err := Append(path, Entry{Stamp: "2024-01-01T00:00:05Z", Snippet: "Hi there"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	after, err := Lines(path)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}

	if len(after) != len(before)+1 {
		t.Fatalf("line count = %d, want %d", len(after), len(before)+1)
	}
	if !reflect.DeepEqual(after[:len(before)], before) {
		t.Errorf("existing lines changed: %v -> %v", before, after[:len(before)])
	}
	if after[len(after)-1] != "2024-01-01T00:00:05Z|Hi there" {
		t.Errorf("appended line = %q", after[len(after)-1])
	}
}

func TestLinesMissingFile(t *testing.T) {
	lines, err := Lines(filepath.Join(t.TempDir(), "absent.timestamps"))
	if err != nil {
		t.Fatalf("Lines on missing file: %v", err)
	}
	if lines != nil {
		t.Errorf("Lines = %v, want nil", lines)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want Entry
		ok   bool
	}{
		{"2024-01-01T00:00:00Z|Hello", Entry{"2024-01-01T00:00:00Z", "Hello"}, true},
		{"2024-01-01T00:00:00Z|a|b", Entry{"2024-01-01T00:00:00Z", "a|b"}, true},
		{"no separator here", Entry{}, false},
		{" 2024-01-01T00:00:00Z | padded ", Entry{"2024-01-01T00:00:00Z", "padded"}, true},
	}
	for _, c := range cases {
		got, ok := Parse(c.line)
		if ok != c.ok || got != c.want {
			t.Errorf("Parse(%q) = %+v, %v; want %+v, %v", c.line, got, ok, c.want, c.ok)
		}
	}
}

func TestIndexLastWriteWins(t *testing.T) {
	lines := []string{
		"2024-01-01T00:00:00Z|Hello",
		"garbage line",
		"2024-01-01T00:00:09Z|Hello",
		"2024-01-01T00:00:05Z|Hi there",
	}
	got := Index(lines)
	want := map[string]string{
		"Hello":    "2024-01-01T00:00:09Z",
		"Hi there": "2024-01-01T00:00:05Z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Index = %v, want %v", got, want)
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.timestamps")
	if err := Append(path, Entry{Stamp: "2024-01-01T00:00:00Z", Snippet: "noise"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	lines, err := Lines(path)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("after Clear: %d lines, want 0", len(lines))
	}
}
