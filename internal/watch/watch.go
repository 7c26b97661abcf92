// Package watch is the background half of the recorder: a cooperative,
// timer-driven loop that discovers the history file the wrapped tool is
// writing, then mirrors each newly observed snippet into that file's ledger
// stamped with arrival time. The loop is single-threaded; cancellation comes
// from the context, which the watcher process ties to SIGTERM.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mango-mice/sessiontap/internal/extract"
	"github.com/mango-mice/sessiontap/internal/ledger"
	"github.com/mango-mice/sessiontap/internal/logger"
	"github.com/mango-mice/sessiontap/internal/supervise"
)

// mtime slack distinguishing a touched file from snapshot jitter.
const epsilon = time.Microsecond

// Loop watches one history directory for one session.
type Loop struct {
	Dir           string           // history directory
	Ext           string           // history file extension
	Handle        supervise.Handle // handoff destination, provided by the supervisor
	PollInterval  time.Duration
	TargetTimeout time.Duration    // give up on discovery after this; 0 waits forever
	Now           func() time.Time // stamp clock, for tests
}

// Run publishes the watcher's pid, polls until a target history file
// appears, records it in the handoff, then keeps ledgers current until ctx
// is cancelled. Returns nil when discovery times out; recording is skipped
// for the session.
func (l *Loop) Run(ctx context.Context) error {
	if l.PollInterval == 0 {
		l.PollInterval = 100 * time.Millisecond
	}
	if l.Ext == "" {
		l.Ext = ".md"
	}
	if l.Now == nil {
		l.Now = time.Now
	}

	// Publish our pid before anything else so the supervisor can stop a
	// watcher that never finds a target.
	if err := l.Handle.Write(supervise.Record{ProcessID: os.Getpid()}); err != nil {
		return fmt.Errorf("write handoff: %w", err)
	}

	initial := l.snapshot()

	notify := newNotifier(l.Dir)
	defer notify.Close()

	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if l.TargetTimeout > 0 {
		timer := time.NewTimer(l.TargetTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var target string
	for target == "" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			logger.Info("no session activity, giving up", "dir", l.Dir, "after", l.TargetTimeout)
			return nil
		case <-ticker.C:
		case <-notify.Wake():
		}
		target = l.pickTarget(initial)
	}

	if err := ledger.Ensure(ledger.PathFor(target)); err != nil {
		logger.Warn("prepare target ledger", "err", err)
	}
	if err := l.Handle.Write(supervise.Record{ProcessID: os.Getpid(), TargetFile: target}); err != nil {
		return fmt.Errorf("update handoff: %w", err)
	}
	logger.Info("following session", "target", target, "pid", os.Getpid())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-notify.Wake():
		}
		if err := l.scan(); err != nil {
			logger.Warn("scan", "err", err)
		}
	}
}

// snapshot records the mtime of every existing history file so discovery can
// tell new activity from files that were already there.
func (l *Loop) snapshot() map[string]time.Time {
	initial := make(map[string]time.Time)
	for _, p := range l.listFiles() {
		if info, err := os.Stat(p); err == nil {
			initial[p] = info.ModTime()
		}
	}
	return initial
}

// pickTarget returns the file that became active since the snapshot: newly
// created, or mtime advanced past the snapshot by more than epsilon. With
// several candidates in one tick the most recently modified wins; equal
// mtimes break toward the lexicographically smallest path, so selection is
// reproducible for identical inputs.
func (l *Loop) pickTarget(initial map[string]time.Time) string {
	type candidate struct {
		path  string
		mtime time.Time
	}
	var candidates []candidate
	for _, p := range l.listFiles() {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		before, seen := initial[p]
		if !seen || info.ModTime().After(before.Add(epsilon)) {
			candidates = append(candidates, candidate{path: p, mtime: info.ModTime()})
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].mtime.Equal(candidates[j].mtime) {
			return candidates[i].mtime.After(candidates[j].mtime)
		}
		return candidates[i].path < candidates[j].path
	})
	return candidates[0].path
}

// scan brings every ledger up to date with its history file: one appended
// record per newly observed snippet, all stamped with this pass's time.
// Existing ledger lines are never touched. Files that cannot be read are
// skipped for the pass.
func (l *Loop) scan() error {
	files := l.listFiles()
	if len(files) == 0 {
		return nil
	}
	stamp := ledger.Stamp(l.Now())

	for _, md := range files {
		lpath := ledger.PathFor(md)
		if err := ledger.Ensure(lpath); err != nil {
			logger.Debug("ensure ledger", "file", md, "err", err)
			continue
		}

		lines, err := extract.ReadLines(md)
		if err != nil {
			logger.Debug("read history", "file", md, "err", err)
			continue
		}
		snippets := extract.ContentSnippets(lines)

		existing, err := ledger.Lines(lpath)
		if err != nil {
			logger.Debug("read ledger", "file", lpath, "err", err)
			continue
		}
		if len(existing) >= len(snippets) {
			continue
		}

		records := make([]ledger.Entry, 0, len(snippets)-len(existing))
		for _, s := range snippets[len(existing):] {
			records = append(records, ledger.Entry{Stamp: stamp, Snippet: s})
		}
		if err := ledger.Append(lpath, records...); err != nil {
			return fmt.Errorf("append %s: %w", lpath, err)
		}
		logger.Debug("recorded snippets", "file", md, "count", len(records))
	}
	return nil
}

// listFiles returns the history files, absolute, in lexical order.
func (l *Loop) listFiles() []string {
	matches, err := filepath.Glob(filepath.Join(l.Dir, "*"+l.Ext))
	if err != nil {
		return nil
	}
	var files []string
	for _, m := range matches {
		if abs, err := filepath.Abs(m); err == nil {
			files = append(files, abs)
		}
	}
	return files
}
