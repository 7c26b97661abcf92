package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/logger"
	"github.com/mango-mice/sessiontap/internal/supervise"
)

func stopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop running watchers",
		Long: "Stops the watcher a handoff file points to, gracefully then forcibly.\n" +
			"With no flag every leftover handoff in the temp directory is swept,\n" +
			"which cleans up after sessions that crashed before teardown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			handoff, _ := cmd.Flags().GetString("handoff")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			paths := []string{handoff}
			if handoff == "" {
				paths, err = filepath.Glob(filepath.Join(os.TempDir(), "sessiontap-*.handoff"))
				if err != nil {
					return fmt.Errorf("scan handoff files: %w", err)
				}
			}
			if len(paths) == 0 {
				fmt.Println("no watchers found")
				return nil
			}

			for _, p := range paths {
				stopped, err := stopOne(p, cfg.Grace())
				if err != nil {
					logger.Warn("stop failed", "handoff", p, "err", err)
					continue
				}
				if stopped {
					fmt.Printf("stopped %s\n", filepath.Base(p))
				} else {
					fmt.Printf("no watcher (%s)\n", filepath.Base(p))
				}
			}
			return nil
		},
	}
	cmd.Flags().String("handoff", "", "stop only the watcher with this handoff file")
	return cmd
}

// stopOne stops the watcher a handoff file points to. The bool reports
// whether a watcher record was there to stop; a missing or empty handoff is
// cleaned up without claiming a stop.
func stopOne(p string, grace time.Duration) (bool, error) {
	h := supervise.Handle{Path: p}
	rec, err := h.Read()
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, h.Remove()
	}
	sup := &supervise.Supervisor{Handle: h, Grace: grace}
	return true, sup.Stop()
}
