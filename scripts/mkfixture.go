//go:build ignore

// Mkfixture: generate a sample .specstory tree for trying out the wrapper.
// Usage: go run mkfixture.go /path/to/project
// Writes a history file with one stamped and one unstamped header plus a
// matching ledger, so merge and verify have something to chew on.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const session = `<!-- Generated by specstory -->
# Demo session

_**User (2026-08-23T14:03:21Z)**_

How do I profile a Go program?

---

_**Agent**_

Start with pprof. Import net/http/pprof, then hit /debug/pprof while the
program runs.

---
`

const entries = `2026-08-23T14:03:21Z|How do I profile a Go program?
2026-08-23T14:03:29Z|Start with pprof. Import net/http/pprof, then hit /debug/pprof while the
`

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: go run mkfixture.go /path/to/project")
		os.Exit(1)
	}
	root := os.Args[1]
	hist := filepath.Join(root, ".specstory", "history")
	ledgers := filepath.Join(root, ".specstory", "timestamps")
	for _, d := range []string{hist, ledgers} {
		if err := os.MkdirAll(d, 0755); err != nil {
			die(err)
		}
	}

	name := "2026-08-23-demo-session"
	if err := os.WriteFile(filepath.Join(hist, name+".md"), []byte(session), 0644); err != nil {
		die(err)
	}
	if err := os.WriteFile(filepath.Join(ledgers, name+".timestamps"), []byte(entries), 0644); err != nil {
		die(err)
	}

	fmt.Printf("fixture written under %s\n", filepath.Join(root, ".specstory"))
	fmt.Println("try: sessiontap merge; sessiontap verify")
}

func die(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
