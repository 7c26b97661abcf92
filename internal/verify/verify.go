// Package verify audits history files for timestamp coverage. It walks a
// project tree, finds every .specstory archive, and reports headers that
// carry content but never received a wall-clock stamp.
package verify

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mango-mice/sessiontap/internal/extract"
	"github.com/mango-mice/sessiontap/internal/ledger"
)

// stampRe accepts every stamp shape that has shipped: space or T date
// separator, optional seconds, optional Z, optional model suffix.
var stampRe = regexp.MustCompile(`\(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2})?Z?(?:\s+\x{2022}\s+[^)]+)?\)`)

// Dirs that never contain session archives and are not worth descending into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"vendor":       true,
}

// Missing is a content-bearing header without a timestamp.
type Missing struct {
	Line int    // 1-based
	Text string // header line, truncated for display
}

// FileResult is the audit outcome for one history file.
type FileResult struct {
	Path    string
	Source  string // wrapped, external, unknown
	Headers int
	Stamped int
	Missing []Missing
	Err     string // non-empty when the file could not be read
}

// OK reports whether the file is fully stamped.
func (f *FileResult) OK() bool {
	return f.Err == "" && len(f.Missing) == 0
}

// Report aggregates results for a whole tree.
type Report struct {
	Root  string
	Tool  string
	Dirs  []string
	Files []FileResult
}

// OK reports whether every history file passed.
func (r *Report) OK() bool {
	for i := range r.Files {
		if !r.Files[i].OK() {
			return false
		}
	}
	return true
}

// Run audits every history file under root. tool is the wrapped binary
// name, used only to classify file provenance.
func Run(root, tool string) (*Report, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	rep := &Report{Root: abs, Tool: tool}

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep going
		}
		if !d.IsDir() || path == abs {
			return nil
		}
		name := d.Name()
		if name == ".specstory" {
			rep.Dirs = append(rep.Dirs, path)
			rep.scanDir(path)
			return filepath.SkipDir
		}
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}
	return rep, nil
}

// scanDir audits the history files of one .specstory dir.
func (r *Report) scanDir(dir string) {
	files, err := filepath.Glob(filepath.Join(dir, "history", "*.md"))
	if err != nil {
		return
	}
	for _, file := range files {
		r.Files = append(r.Files, examine(file, r.Tool))
	}
}

// examine audits one history file. Headers count only User and Agent
// lines, the same definition the extractor uses, so the auditor can never
// flag a header the watcher would not stamp.
func examine(path, tool string) FileResult {
	res := FileResult{Path: path}
	lines, err := extract.ReadLines(path)
	if err != nil {
		res.Err = err.Error()
		res.Source = "unknown"
		return res
	}
	for _, h := range extract.Headers(lines) {
		res.Headers++
		text := lines[h.Line]
		if stampRe.MatchString(text) {
			res.Stamped++
			continue
		}
		if h.HasContent {
			res.Missing = append(res.Missing, Missing{Line: h.Line + 1, Text: truncate(text, 50)})
		}
	}
	res.Source = classify(path, tool, lines, res.Headers, res.Stamped)
	return res
}

// classify guesses where a history file came from: a generator comment near
// the top, then a populated ledger, then historical stamp coverage.
func classify(path, tool string, lines []string, headers, stamped int) string {
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, line := range lines[:limit] {
		if strings.Contains(line, "<!--") && strings.Contains(strings.ToLower(line), strings.ToLower(tool)) {
			return "wrapped"
		}
	}
	if entries, err := ledger.Lines(ledger.PathFor(path)); err == nil && len(entries) > 0 {
		return "wrapped"
	}
	if headers > 0 && float64(stamped)/float64(headers) > 0.8 {
		return "wrapped"
	}
	if headers > 0 {
		return "external"
	}
	return "unknown"
}

// Print writes the human-readable report.
func (r *Report) Print(w io.Writer) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Session timestamp verification")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Root: %s\n", r.Root)
	fmt.Fprintf(w, "Found %d history file(s) in %d .specstory dir(s)\n\n", len(r.Files), len(r.Dirs))

	valid := 0
	for i := range r.Files {
		f := &r.Files[i]
		rel := r.relPath(f.Path)
		switch {
		case f.Err != "":
			fmt.Fprintf(w, "✗ %s (unreadable: %s)\n", rel, f.Err)
		case len(f.Missing) > 0:
			fmt.Fprintf(w, "✗ %s (%d header(s) missing timestamps)\n", rel, len(f.Missing))
			for j, m := range f.Missing {
				if j == 5 {
					fmt.Fprintf(w, "  ... and %d more\n", len(f.Missing)-5)
					break
				}
				fmt.Fprintf(w, "    line %d: %s\n", m.Line, m.Text)
			}
		default:
			valid++
			fmt.Fprintf(w, "✓ %s (%d/%d headers stamped, %s)\n", rel, f.Stamped, f.Headers, f.Source)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d/%d files fully stamped\n", valid, len(r.Files))
}

func (r *Report) relPath(path string) string {
	if rel, err := filepath.Rel(r.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
