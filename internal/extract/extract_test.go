package extract

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIsHeader(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"_**User**_", true},
		{"_**Agent**_", true},
		{"_**User (2024-01-01T12:00:00Z)**_", true},
		{"_**Agent (gpt-4)**_", true},
		{"  _**User**_", false},
		{"_**User**_  ", false},
		{"_**Narrator**_", false},
		{"**User**", false},
		{"", false},
		{"Hello User", false},
	}
	for _, c := range cases {
		if got := IsHeader(c.line); got != c.want {
			t.Errorf("IsHeader(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestBaseRole(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"_**User**_", "User"},
		{"_**Agent**_", "Agent"},
		{"_**User (2024-01-01T12:00:00Z)**_", "User"},
		{"_**Agent (2024-01-01T00:00:00Z • claude)**_", "Agent"},
		{"_** User **_", "User"},
	}
	for _, c := range cases {
		if got := BaseRole(c.line); got != c.want {
			t.Errorf("BaseRole(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestHeadersBasic(t *testing.T) {
	lines := []string{
		"_**User**_",
		"",
		"Hello",
		"",
		"---",
		"",
		"_**Agent**_",
		"",
		"Hi there",
	}
	got := Headers(lines)
	want := []Header{
		{Line: 0, Text: "_**User**_", Snippet: "Hello", HasContent: true},
		{Line: 6, Text: "_**Agent**_", Snippet: "Hi there", HasContent: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Headers = %+v, want %+v", got, want)
	}
}

func TestHeadersSeparatorOnlyBody(t *testing.T) {
	lines := []string{
		"_**User**_",
		"",
		"---",
		"",
	}
	got := Headers(lines)
	if len(got) != 1 {
		t.Fatalf("got %d headers, want 1", len(got))
	}
	if got[0].HasContent {
		t.Errorf("separator-only body: HasContent = true, want false")
	}
}

func TestHeadersAtEOF(t *testing.T) {
	lines := []string{"intro", "_**Agent**_"}
	got := Headers(lines)
	if len(got) != 1 {
		t.Fatalf("got %d headers, want 1", len(got))
	}
	if got[0].HasContent {
		t.Errorf("empty body at EOF: HasContent = true, want false")
	}
	if got[0].Snippet != "_**Agent**_" {
		t.Errorf("fallback snippet = %q, want header text", got[0].Snippet)
	}
}

func TestHeadersSkipBlanksBeforeContent(t *testing.T) {
	lines := []string{
		"_**User**_",
		"",
		"",
		"---",
		"  indented reply  ",
	}
	got := Headers(lines)
	if len(got) != 1 {
		t.Fatalf("got %d headers, want 1", len(got))
	}
	if got[0].Snippet != "indented reply" {
		t.Errorf("snippet = %q, want %q", got[0].Snippet, "indented reply")
	}
	if !got[0].HasContent {
		t.Error("HasContent = false, want true")
	}
}

func TestHeadersBodyEqualToHeader(t *testing.T) {
	// A body line that repeats the header text is not usable as a key.
	lines := []string{
		"_**User**_",
		"_**User**_",
	}
	got := Headers(lines)
	if len(got) != 2 {
		t.Fatalf("got %d headers, want 2", len(got))
	}
	if got[0].HasContent {
		t.Error("first header: HasContent = true, want false")
	}
}

func TestContentSnippetsOrder(t *testing.T) {
	lines := []string{
		"_**User**_",
		"first question",
		"---",
		"_**Agent**_",
		"the answer",
		"---",
		"_**User**_",
		"second question",
	}
	got := ContentSnippets(lines)
	want := []string{"first question", "the answer", "second question"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentSnippets = %v, want %v", got, want)
	}
}

func TestContentSnippetsBodylessHeader(t *testing.T) {
	// Snippet scanning skips only blank and separator lines, so a header
	// with an empty body picks up the following header line as its snippet
	// and still counts as content-bearing.
	lines := []string{
		"_**User**_",
		"first question",
		"---",
		"_**Agent**_",
		"---",
		"_**User**_",
		"second question",
	}
	got := ContentSnippets(lines)
	want := []string{"first question", "_**User**_", "second question"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentSnippets = %v, want %v", got, want)
	}
}

func TestReadLinesNormalizesEndings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.md")
	if err := os.WriteFile(path, []byte("a\r\nb\rc\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadLines(path)
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	want := []string{"a", "b", "c", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadLines = %q, want %q", got, want)
	}
}

func TestReadLinesMissingFile(t *testing.T) {
	if _, err := ReadLines(filepath.Join(t.TempDir(), "absent.md")); err == nil {
		t.Error("ReadLines on missing file: err = nil, want error")
	}
}
