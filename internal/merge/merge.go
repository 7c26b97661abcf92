// Package merge reconciles a session's ledger into its history file:
// every header whose snippet has a recorded arrival time gets that time
// embedded in display form. Merge runs only after the watcher for the
// session has been confirmed stopped; it is the only writer then, which is
// what makes the ledger read-extend-rewrite sequence safe without locks.
package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mango-mice/sessiontap/internal/extract"
	"github.com/mango-mice/sessiontap/internal/ledger"
	"github.com/mango-mice/sessiontap/internal/logger"
)

// stampRe detects a display timestamp already embedded in a header,
// including the variant carrying a model-name suffix after a bullet. Such
// headers are never rewritten, which keeps merge idempotent and the suffix
// intact.
var stampRe = regexp.MustCompile(`\(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z(?:\s+\x{2022}\s+[^)]+)?\)`)

// Engine folds ledger timestamps into history headers.
type Engine struct {
	Now func() time.Time // backfill clock, for tests
}

// MergeFile reconciles one history file with its ledger. Ineligible files
// (no User turn with content) get their ledger cleared instead: whatever
// the watcher wrote for them was startup noise. The rewritten file replaces
// the original atomically.
func (e *Engine) MergeFile(mdPath string) error {
	abs, err := filepath.Abs(mdPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	lpath := ledger.PathFor(abs)
	if err := ledger.Ensure(lpath); err != nil {
		return err
	}

	lines, err := extract.ReadLines(abs)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if !eligible(lines) {
		if err := ledger.Clear(lpath); err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
		logger.Debug("no user content, ledger cleared", "file", abs)
		return nil
	}

	headers := extract.Headers(lines)

	existing, err := ledger.Lines(lpath)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	stamps := ledger.Index(existing)

	// Backfill: a content-bearing header the watcher never saw gets stamped
	// with the merge time. The append is the only ledger mutation here.
	var missing []ledger.Entry
	for _, h := range headers {
		if !h.HasContent {
			continue
		}
		if _, ok := stamps[h.Snippet]; !ok {
			missing = append(missing, ledger.Entry{Snippet: h.Snippet})
		}
	}
	if len(missing) > 0 {
		nowStamp := ledger.Stamp(e.now())
		for i := range missing {
			missing[i].Stamp = nowStamp
		}
		if err := ledger.Append(lpath, missing...); err != nil {
			return err
		}
		for _, m := range missing {
			stamps[m.Snippet] = m.Stamp
		}
		logger.Debug("backfilled ledger", "file", abs, "records", len(missing))
	}

	snippetAt := make(map[int]string, len(headers))
	for _, h := range headers {
		if h.HasContent {
			snippetAt[h.Line] = h.Snippet
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line
		if !extract.IsHeader(line) || stampRe.MatchString(line) {
			continue
		}
		snippet, ok := snippetAt[i]
		if !ok {
			continue
		}
		ts, ok := stamps[snippet]
		if !ok {
			continue
		}
		out[i] = fmt.Sprintf("_**%s (%s)**_", extract.BaseRole(line), ts)
	}

	return replaceFile(abs, strings.Join(out, "\n"))
}

// MergeAll reconciles every history file in dir. Files that fail are
// skipped so one bad file cannot block the rest.
func (e *Engine) MergeAll(dir, ext string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return fmt.Errorf("list history files: %w", err)
	}
	for _, md := range matches {
		if err := e.MergeFile(md); err != nil {
			logger.Warn("merge skipped", "file", md, "err", err)
		}
	}
	return nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// eligible reports whether the file holds a real interactive session: at
// least one User block followed by non-empty, non-separator content. A file
// the watcher initialized but no turns landed in is not eligible.
func eligible(lines []string) bool {
	inUser := false
	for _, line := range lines {
		if strings.HasPrefix(line, "_**") && strings.HasSuffix(line, "**_") {
			inUser = strings.HasPrefix(line, "_**User")
			continue
		}
		if inUser {
			s := strings.TrimSpace(line)
			if s != "" && s != extract.Separator {
				return true
			}
		}
	}
	return false
}

// replaceFile writes content to a temp sibling and renames it over path, so
// a crash mid-write never leaves a truncated history file.
func replaceFile(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
