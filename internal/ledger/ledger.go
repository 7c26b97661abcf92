// Package ledger reads and appends the per-session timestamp files. A ledger
// line is `<timestamp>|<snippet>`; records are append-only and are never
// rewritten or reordered once present. The one exception is Clear, which the
// merge pass uses to drop watcher noise from sessions that had no turns.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Ext is the ledger file extension.
const Ext = ".timestamps"

// DirName is the ledger directory name, a sibling of the history directory.
const DirName = "timestamps"

// Entry is one recorded (timestamp, snippet) pair.
type Entry struct {
	Stamp   string
	Snippet string
}

// Stamp renders t in the ledger timestamp layout: whole-second UTC with a
// trailing Z. Merge embeds these strings into headers verbatim, so the
// layout is part of the on-disk format.
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// PathFor returns the ledger path for a history file. The ledger lives in a
// "timestamps" directory beside the history directory and shares the history
// file's base name: <root>/history/chat.md -> <root>/timestamps/chat.timestamps.
func PathFor(historyFile string) string {
	historyFile = filepath.Clean(historyFile)
	historyDir := filepath.Dir(historyFile)
	root := filepath.Dir(historyDir)
	base := strings.TrimSuffix(filepath.Base(historyFile), filepath.Ext(historyFile))
	return filepath.Join(root, DirName, base+Ext)
}

// Ensure creates the ledger directory and an empty ledger file if missing.
// Existing content is left alone.
func Ensure(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	return f.Close()
}

// Lines returns the ledger's non-blank lines, trimmed, in file order. A
// missing ledger reads as empty. The line count is what the watcher compares
// against the number of observed snippets.
func Lines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var lines []string
	for _, ln := range strings.Split(string(data), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines, nil
}

// Parse splits one ledger line into an Entry. Lines without a separator are
// not records; callers skip them.
func Parse(line string) (Entry, bool) {
	parts := strings.SplitN(line, "|", 2)
	if len(parts) != 2 {
		return Entry{}, false
	}
	return Entry{
		Stamp:   strings.TrimSpace(parts[0]),
		Snippet: strings.TrimSpace(parts[1]),
	}, true
}

// Index builds the snippet-to-timestamp map from ledger lines. Later records
// for a duplicate snippet win; duplicate snippets are a documented
// limitation of the correlation key, not a supported case.
func Index(lines []string) map[string]string {
	m := make(map[string]string)
	for _, ln := range lines {
		if e, ok := Parse(ln); ok {
			m[e.Snippet] = e.Stamp
		}
	}
	return m
}

// Append writes records to the end of the ledger, creating it if needed.
func Append(path string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	defer f.Close()
	for _, e := range entries {
		if _, err := fmt.Fprintf(f, "%s|%s\n", e.Stamp, e.Snippet); err != nil {
			return fmt.Errorf("append ledger record: %w", err)
		}
	}
	return f.Close()
}

// Clear truncates the ledger to empty, creating it if needed.
func Clear(path string) error {
	return os.WriteFile(path, nil, 0644)
}
