package supervise

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is the handoff payload: the watcher's process identity plus the
// history file it is following. TargetFile is empty until discovery.
type Record struct {
	ProcessID  int    `json:"processId"`
	TargetFile string `json:"targetFile"`
}

// Handle is the handoff location agreed between supervisor and watcher. The
// supervisor creates it empty before spawning and hands the path to the
// watcher on its command line; the watcher writes its pid at startup and
// fills in the target when it finds one; the supervisor removes the file
// when the watcher is stopped.
type Handle struct {
	Path string
}

// NewHandle returns a handle at a fresh path under the system temp dir.
func NewHandle() Handle {
	return Handle{Path: filepath.Join(os.TempDir(), fmt.Sprintf("sessiontap-%s.handoff", uuid.NewString()))}
}

// Create writes the empty placeholder, letting callers distinguish a watcher
// that is still starting from one that never started.
func (h Handle) Create() error {
	f, err := os.OpenFile(h.Path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create handoff record: %w", err)
	}
	return f.Close()
}

// Write populates the record.
func (h Handle) Write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode handoff record: %w", err)
	}
	if err := os.WriteFile(h.Path, data, 0644); err != nil {
		return fmt.Errorf("write handoff record: %w", err)
	}
	return nil
}

// Read returns the populated record. A missing, empty, or unparseable
// handle reads as nil: there is nothing to stop. A bare integer is accepted
// as a pid-only record.
func (h Handle) Read() (*Record, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(text), &rec); err == nil && rec.ProcessID != 0 {
		return &rec, nil
	}
	if pid, err := strconv.Atoi(text); err == nil {
		return &Record{ProcessID: pid}, nil
	}
	return nil, nil
}

// Wait polls until the record is populated or the timeout passes, returning
// nil on timeout. Read errors end the wait early; a watcher that cannot be
// identified cannot be stopped either way.
func (h Handle) Wait(timeout time.Duration) *Record {
	deadline := time.Now().Add(timeout)
	for {
		rec, err := h.Read()
		if err != nil || rec != nil {
			return rec
		}
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Remove deletes the handle file. Already gone is fine.
func (h Handle) Remove() error {
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
