package config

import (
	"os"
	"path/filepath"
)

// GetProjectDir walks up from the working directory looking for the session
// base directory or a repository root. Falls back to the working directory
// so the tool still works in a bare folder.
func GetProjectDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for {
		// Check for .specstory directory
		baseDir := filepath.Join(dir, ".specstory")
		if _, err := os.Stat(baseDir); err == nil {
			return dir, nil
		}

		// Check for .git directory (project root)
		gitDir := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitDir); err == nil {
			return dir, nil
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory, use current working directory
			return wd, nil
		}
		dir = parent
	}
}

// EnsureLayout creates the ledger directory. The history directory belongs
// to the wrapped tool and is never created here.
func EnsureLayout(c *Config) error {
	return os.MkdirAll(c.LedgerDir(), 0755)
}
