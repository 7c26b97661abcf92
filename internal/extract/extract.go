// Package extract locates role headers and their content snippets in a
// session history file. Both the watcher and the merge pass call into this
// one implementation; the snippet is the correlation key between them, so
// the two sides must see byte-identical results for the same input.
package extract

import (
	"os"
	"strings"
)

// Separator is the divider line the history format places between turns.
const Separator = "---"

// Header is one role-tagged turn marker found in a history file.
type Header struct {
	Line       int    // index into the scanned lines
	Text       string // raw header line
	Snippet    string // first meaningful content line after the header
	HasContent bool   // false when the body is empty or separator-only
}

// IsHeader reports whether line is a role header. Matching is on the raw
// line; an indented header is not a header.
func IsHeader(line string) bool {
	return strings.HasPrefix(line, "_**") && strings.HasSuffix(line, "**_") &&
		(strings.Contains(line, "User") || strings.Contains(line, "Agent"))
}

// BaseRole returns the role name from a header line, dropping any
// parenthesized suffix: "_**User (2024-01-01T12:00:00Z)**_" yields "User".
func BaseRole(line string) string {
	content := strings.TrimSuffix(strings.TrimPrefix(line, "_**"), "**_")
	if strings.Contains(content, "(") && strings.Contains(content, ")") {
		content = strings.SplitN(content, "(", 2)[0]
	}
	return strings.TrimSpace(content)
}

// Headers scans lines and returns every role header in source order with its
// derived snippet. A header whose body yields nothing, only separators, or
// only its own text comes back with HasContent false and must never
// correlate to a ledger entry.
func Headers(lines []string) []Header {
	var headers []Header
	for i, line := range lines {
		if !IsHeader(line) {
			continue
		}
		snippet := firstMeaningfulAfter(lines, i)
		headers = append(headers, Header{
			Line:       i,
			Text:       line,
			Snippet:    snippet,
			HasContent: snippet != "" && snippet != line && snippet != Separator,
		})
	}
	return headers
}

// ContentSnippets returns the snippets for headers that have content, in
// source order. This is the sequence the watcher mirrors into the ledger.
func ContentSnippets(lines []string) []string {
	var snippets []string
	for _, h := range Headers(lines) {
		if h.HasContent {
			snippets = append(snippets, h.Snippet)
		}
	}
	return snippets
}

// firstMeaningfulAfter returns the first non-blank, non-separator line after
// start, trimmed. Falls back to the header's own text when the body has
// nothing meaningful, which Headers then classifies as no content.
func firstMeaningfulAfter(lines []string, start int) string {
	for j := start + 1; j < len(lines); j++ {
		content := strings.TrimSpace(lines[j])
		if content == "" || content == Separator {
			continue
		}
		return content
	}
	return strings.TrimSpace(lines[start])
}

// ReadLines reads a history file into lines with endings normalized to LF.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n"), nil
}
