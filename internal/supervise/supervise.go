// Package supervise owns the watcher's lifecycle from the foreground side:
// spawn it detached, wait for its handoff record, and stop it with
// escalation. Stopping is idempotent; a watcher that never started, already
// exited, or left a corrupt record is a no-op, not an error.
package supervise

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mango-mice/sessiontap/internal/logger"
)

// Supervisor manages one detached watcher process for one session run.
type Supervisor struct {
	Handle      Handle
	Grace       time.Duration // between SIGTERM and the liveness probe
	HandoffWait time.Duration // bounded wait for the handoff record
	Exe         string        // defaults to the current executable
	Args        []string      // watcher invocation, including the handoff path

	cmd  *exec.Cmd
	exit chan error
}

// Start creates the empty handoff placeholder, then spawns the watcher in
// its own session so it outlives the foreground process. The child's stdio
// is detached; the watcher logs to its own file.
func (s *Supervisor) Start() error {
	if len(s.Args) == 0 {
		return fmt.Errorf("watcher command not configured")
	}
	if s.Exe == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate own executable: %w", err)
		}
		s.Exe = exe
	}

	if err := s.Handle.Create(); err != nil {
		return err
	}

	cmd := exec.Command(s.Exe, s.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		s.Handle.Remove()
		return fmt.Errorf("spawn watcher: %w", err)
	}

	s.cmd = cmd
	s.exit = make(chan error, 1)
	go func() {
		// Reap so a watcher that exits early never lingers as a zombie.
		s.exit <- cmd.Wait()
	}()

	logger.Debug("watcher spawned", "pid", cmd.Process.Pid, "handoff", s.Handle.Path)
	return nil
}

// Pid returns the spawned watcher's pid, or 0 before Start.
func (s *Supervisor) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Wait blocks until the handoff record is populated or the configured wait
// passes. Nil means no watcher is available, which is not fatal.
func (s *Supervisor) Wait() *Record {
	return s.Handle.Wait(s.HandoffWait)
}

// Stop terminates the watcher: SIGTERM to its process group, a grace period,
// a liveness probe, then SIGKILL if it is still there. The handoff record is
// removed afterward. Safe to call repeatedly and against a watcher that
// already exited.
func (s *Supervisor) Stop() error {
	rec := s.Handle.Wait(s.HandoffWait)
	if rec == nil {
		return s.Handle.Remove()
	}

	signalGroup(rec.ProcessID, unix.SIGTERM)
	time.Sleep(s.Grace)

	if err := unix.Kill(rec.ProcessID, 0); err != nil {
		// Already gone.
		return s.Handle.Remove()
	}

	logger.Debug("watcher ignored SIGTERM, killing", "pid", rec.ProcessID)
	signalGroup(rec.ProcessID, unix.SIGKILL)
	return s.Handle.Remove()
}

// signalGroup signals the process group, falling back to the process itself
// when the group is unavailable. A process that is already gone is fine.
func signalGroup(pid int, sig syscall.Signal) {
	if err := unix.Kill(-pid, sig); err != nil {
		if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
			logger.Debug("signal watcher", "pid", pid, "err", err)
		}
	}
}
