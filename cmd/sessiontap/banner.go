package main

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiCyan  = "\033[36m"
	ansiGreen = "\033[32m"
	ansiReset = "\033[0m"
)

// showBanner prints the recording notice shown at the start of an
// interactive session.
func showBanner(w io.Writer, tool, ledgerDir string) {
	lines := []string{
		fmt.Sprintf("%s with real timestamps", tool),
		fmt.Sprintf("Timestamps are saved to %s", ledgerDir),
	}

	width := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > width {
			width = n
		}
	}

	bar := strings.Repeat("═", width+4)
	fmt.Fprintf(w, "%s╔%s╗%s\n", ansiCyan, bar, ansiReset)
	for _, l := range lines {
		pad := strings.Repeat(" ", width-len([]rune(l)))
		fmt.Fprintf(w, "%s║%s  %s%s%s  %s║%s\n", ansiCyan, ansiReset, ansiGreen, l, pad, ansiCyan, ansiReset)
	}
	fmt.Fprintf(w, "%s╚%s╝%s\n", ansiCyan, bar, ansiReset)
}
