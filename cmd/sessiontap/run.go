package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/ledger"
	"github.com/mango-mice/sessiontap/internal/logger"
	"github.com/mango-mice/sessiontap/internal/merge"
	"github.com/mango-mice/sessiontap/internal/realbin"
	"github.com/mango-mice/sessiontap/internal/store"
	"github.com/mango-mice/sessiontap/internal/supervise"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [tool args...]",
		Short: "Run the wrapped tool with timestamp recording",
		Long: "Starts the history watcher, runs the real tool with the given arguments\n" +
			"passed through verbatim, then merges the recorded timestamps into the\n" +
			"session files the tool wrote. Exits with the tool's exit status.",
		// Everything after "run" belongs to the wrapped tool, including flags.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(args)
		},
	}
}

func runSession(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := config.EnsureLayout(cfg); err != nil {
		return fmt.Errorf("prepare layout: %w", err)
	}

	if len(args) > 0 && args[0] == "run" && term.IsTerminal(int(os.Stdout.Fd())) {
		showBanner(os.Stdout, cfg.Tool.Name, cfg.LedgerDir())
	}

	handle := supervise.NewHandle()
	sup := &supervise.Supervisor{
		Handle:      handle,
		Grace:       cfg.Grace(),
		HandoffWait: cfg.HandoffWait(),
		Args:        []string{"watch", "--root", cfg.Root, "--handoff", handle.Path},
	}
	watcherUp := true
	if err := sup.Start(); err != nil {
		// The session still runs; it just won't be stamped.
		logger.Warn("watcher failed to start", "err", err)
		watcherUp = false
	}

	finder := &realbin.Finder{Tool: cfg.Tool.Name, Override: cfg.Tool.Real}
	realBin, err := finder.Find()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: could not find the real %s binary\n", cfg.Tool.Name)
		fmt.Fprintf(os.Stderr, "This wrapper needs the original %s to function.\n", cfg.Tool.Name)
		fmt.Fprintf(os.Stderr, "Try: export %s_REAL=/path/to/real/%s\n", realbin.EnvVar(cfg.Tool.Name), cfg.Tool.Name)
		if watcherUp {
			if err := sup.Stop(); err != nil {
				logger.Warn("watcher stop failed", "err", err)
			}
		}
		os.Exit(1)
	}

	var st *store.Store
	sessID := uuid.NewString()
	if !cfg.Index.Disabled {
		if s, err := store.Open(cfg.IndexPath()); err != nil {
			logger.Debug("session index unavailable", "err", err)
		} else {
			st = s
			if err := st.StartSession(&store.Session{ID: sessID, Tool: cfg.Tool.Name}); err != nil {
				logger.Debug("session index start failed", "err", err)
			}
		}
	}

	// SIGTERM is forwarded to the tool; Ctrl-C reaches it directly through
	// the foreground process group, and the wrapper stays alive to merge.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	signal.Ignore(os.Interrupt)

	tool := exec.CommandContext(ctx, realBin, args...)
	tool.Stdin = os.Stdin
	tool.Stdout = os.Stdout
	tool.Stderr = os.Stderr
	tool.Cancel = func() error {
		return tool.Process.Signal(syscall.SIGTERM)
	}

	logger.Info("session starting", "tool", realBin, "args", strings.Join(args, " "))
	exitCode := exitStatus(tool.Run())
	logger.Info("session ended", "exit", exitCode)

	// Let the watcher observe the tool's final writes.
	time.Sleep(5 * cfg.Poll())

	target := ""
	if rec, err := sup.Handle.Read(); err == nil && rec != nil {
		target = rec.TargetFile
	}

	if watcherUp {
		if err := sup.Stop(); err != nil {
			logger.Warn("watcher stop failed", "err", err)
		}
	}

	// Give the filesystem a moment to settle after the watcher's last pass.
	time.Sleep(2 * cfg.Poll())

	eng := &merge.Engine{}
	if err := eng.MergeAll(cfg.HistoryDir(), cfg.History.Ext); err != nil {
		logger.Warn("merge failed", "err", err)
	}

	if st != nil {
		stamped := 0
		if target != "" {
			if lines, err := ledger.Lines(ledger.PathFor(target)); err == nil {
				stamped = len(lines)
			}
		}
		if err := st.FinishSession(sessID, target, exitCode, stamped); err != nil {
			logger.Debug("session index finish failed", "err", err)
		}
		st.Close()
	}

	os.Exit(exitCode)
	return nil
}

// exitStatus maps the tool's termination to our own exit code. Signal
// deaths use the shell convention of 128 plus the signal number.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "sessiontap: %v\n", err)
	return 1
}
