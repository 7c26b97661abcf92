package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/mango-mice/sessiontap/internal/supervise"
)

func TestStopOneMissingHandoff(t *testing.T) {
	stopped, err := stopOne(filepath.Join(t.TempDir(), "absent.handoff"), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("stopOne: %v", err)
	}
	if stopped {
		t.Error("missing handoff reported as a stopped watcher")
	}
}

func TestStopOneEmptyPlaceholder(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sessiontap-stale.handoff")
	if err := os.WriteFile(p, nil, 0644); err != nil {
		t.Fatalf("write placeholder: %v", err)
	}
	stopped, err := stopOne(p, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("stopOne: %v", err)
	}
	if stopped {
		t.Error("empty placeholder reported as a stopped watcher")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("placeholder not swept")
	}
}

func TestStopOneRecordedWatcher(t *testing.T) {
	cmd := exec.Command("sleep", "300")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	exit := make(chan error, 1)
	go func() { exit <- cmd.Wait() }()
	t.Cleanup(func() { cmd.Process.Kill() })

	h := supervise.Handle{Path: filepath.Join(t.TempDir(), "watcher.handoff")}
	if err := h.Write(supervise.Record{ProcessID: cmd.Process.Pid}); err != nil {
		t.Fatalf("write handoff: %v", err)
	}

	stopped, err := stopOne(h.Path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("stopOne: %v", err)
	}
	if !stopped {
		t.Error("recorded watcher reported as no watcher")
	}

	select {
	case <-exit:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher process did not exit")
	}
	if _, err := os.Stat(h.Path); !os.IsNotExist(err) {
		t.Error("handoff not removed after stop")
	}
}
