package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/logger"
	"github.com/mango-mice/sessiontap/internal/supervise"
	"github.com/mango-mice/sessiontap/internal/watch"
)

// watchCmd is the re-exec target for the background watcher. The run
// command spawns it in its own session; it is not meant to be invoked by
// hand, but doing so is harmless.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "watch",
		Short:  "Watch a history directory and record snippet arrival times",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rootDir, _ := cmd.Flags().GetString("root")
			handoff, _ := cmd.Flags().GetString("handoff")
			return runWatcher(rootDir, handoff)
		},
	}
	cmd.Flags().String("root", "", "project root (default: walk up from cwd)")
	cmd.Flags().String("handoff", "", "handoff file the supervisor is reading")
	return cmd
}

func runWatcher(rootDir, handoff string) error {
	if handoff == "" {
		return fmt.Errorf("watch: --handoff is required")
	}

	var cfg *config.Config
	var err error
	if rootDir != "" {
		cfg, err = config.LoadFrom(rootDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := config.EnsureLayout(cfg); err != nil {
		return fmt.Errorf("prepare layout: %w", err)
	}
	// The watcher is detached from the terminal; its log goes to a file.
	if err := logger.InitFile(cfg.Logging.Level, cfg.WatcherLog()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	loop := &watch.Loop{
		Dir:           cfg.HistoryDir(),
		Ext:           cfg.History.Ext,
		Handle:        supervise.Handle{Path: handoff},
		PollInterval:  cfg.Poll(),
		TargetTimeout: cfg.TargetTimeout(),
	}

	logger.Info("watcher starting", "dir", loop.Dir, "pid", os.Getpid())
	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("watcher stopped")
		return nil
	}
	if err != nil {
		logger.Error("watcher failed", "err", err)
	}
	return err
}
