// Package realbin locates the real wrapped binary. The wrapper is often
// installed under the tool's own name, so every search path has to exclude
// the wrapper itself or a session would recurse into it.
package realbin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mango-mice/sessiontap/internal/logger"
)

// Finder resolves the path of the real tool binary.
//
// Search order: the configured override, then the environment variables
// (<TOOL>_ORIGINAL, <TOOL>_REAL, ORIGINAL_<TOOL>), then a Homebrew
// <tool>-real shim (created or repaired as needed), then a PATH scan that
// skips the wrapper's own directory.
type Finder struct {
	Tool     string // wrapped binary name
	Override string // explicit path from config; checked first
	SelfPath string // wrapper's own executable; defaults to os.Executable()
}

// Find returns the absolute path of the real binary.
func (f *Finder) Find() (string, error) {
	if f.Tool == "" {
		return "", fmt.Errorf("tool name not configured")
	}
	self := f.self()

	if f.Override != "" {
		if p, ok := f.resolve(f.Override, self); ok {
			return p, nil
		}
		logger.Warn("configured real binary unusable, falling back", "path", f.Override)
	}

	for _, key := range f.envKeys() {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if p, ok := f.resolve(val, self); ok {
			return p, nil
		}
	}

	if p, ok := f.viaBrew(); ok {
		return p, nil
	}

	if p, ok := f.searchPath(f.Tool, self); ok {
		return p, nil
	}

	return "", fmt.Errorf("real %s binary not found (set %s_REAL or install it)", f.Tool, EnvVar(f.Tool))
}

// envKeys lists the override variables in precedence order.
func (f *Finder) envKeys() []string {
	name := EnvVar(f.Tool)
	return []string{name + "_ORIGINAL", name + "_REAL", "ORIGINAL_" + name}
}

// EnvVar is the tool name as it appears in override variable names.
func EnvVar(tool string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(tool) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// resolve turns an override value into a usable path. Absolute paths are
// validated in place; bare names are resolved on PATH minus the wrapper's
// directory.
func (f *Finder) resolve(val, self string) (string, bool) {
	val = expandUser(val)
	if filepath.IsAbs(val) {
		if isExecutable(val) && !sameFile(val, self) {
			return val, true
		}
		return "", false
	}
	return f.searchPath(val, self)
}

// searchPath finds name on PATH, skipping the wrapper's directory and any
// candidate that is the wrapper itself.
func (f *Finder) searchPath(name, self string) (string, bool) {
	selfDir := filepath.Dir(self)
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" || dir == selfDir {
			continue
		}
		candidate := filepath.Join(dir, name)
		if !isExecutable(candidate) {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if sameFile(abs, self) {
			continue
		}
		return abs, true
	}
	return "", false
}

// viaBrew resolves through Homebrew: a <tool>-real shim if one is healthy,
// otherwise the current keg, recreating the shim so later upgrades keep
// working. No brew means no result, silently.
func (f *Finder) viaBrew() (string, bool) {
	prefix, err := brewOutput("--prefix")
	if err != nil {
		return "", false
	}
	shim := filepath.Join(prefix, "bin", f.Tool+"-real")

	if fi, err := os.Lstat(shim); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			return shim, true
		}
		if _, err := os.Stat(shim); err == nil {
			return shim, true
		}
		// Broken symlink, repoint it below.
	}

	keg, err := brewOutput("--prefix", f.Tool)
	if err != nil {
		return "", false
	}
	target := filepath.Join(keg, "bin", f.Tool)

	os.Remove(shim)
	if err := os.Symlink(target, shim); err != nil {
		logger.Debug("brew shim update failed", "shim", shim, "err", err)
		return "", false
	}
	return shim, true
}

func (f *Finder) self() string {
	if f.SelfPath != "" {
		return f.SelfPath
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		return resolved
	}
	return exe
}

func brewOutput(args ...string) (string, error) {
	out, err := exec.Command("brew", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}

// sameFile reports whether two paths name the wrapper binary, following
// symlinks so a renamed or linked install is still caught.
func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return false
	}
	return ra == rb
}
