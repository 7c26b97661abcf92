package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/ledger"
	"github.com/mango-mice/sessiontap/internal/realbin"
	"github.com/mango-mice/sessiontap/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, layout, and real-binary discovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Println("sessiontap doctor")
			fmt.Println()

			fmt.Println("project:")
			fmt.Printf("  %-12s %s\n", "root", cfg.Root)
			cfgFile := filepath.Join(cfg.Root, config.FileName)
			if _, err := os.Stat(cfgFile); err == nil {
				fmt.Printf("  %-12s %s\n", "config", cfgFile)
			} else {
				fmt.Printf("  %-12s defaults (no %s)\n", "config", config.FileName)
			}
			fmt.Println()

			fmt.Println("layout:")
			fmt.Printf("  %-12s %s\n", "history", describeDir(cfg.HistoryDir(), "*"+cfg.History.Ext))
			fmt.Printf("  %-12s %s\n", "ledgers", describeDir(cfg.LedgerDir(), "*"+ledger.Ext))
			fmt.Println()

			fmt.Println("tool:")
			finder := &realbin.Finder{Tool: cfg.Tool.Name, Override: cfg.Tool.Real}
			if path, err := finder.Find(); err == nil {
				fmt.Printf("  %-12s %s\n", cfg.Tool.Name, path)
			} else {
				fmt.Printf("  %-12s not found (%v)\n", cfg.Tool.Name, err)
			}
			if path, err := exec.LookPath("brew"); err == nil {
				fmt.Printf("  %-12s %s\n", "brew", path)
			} else {
				fmt.Printf("  %-12s not found\n", "brew")
			}
			fmt.Println()

			fmt.Println("runtime:")
			handoffs, _ := filepath.Glob(filepath.Join(os.TempDir(), "sessiontap-*.handoff"))
			if len(handoffs) == 0 {
				fmt.Printf("  %-12s none\n", "watchers")
			} else {
				fmt.Printf("  %-12s %d leftover handoff file(s), run 'sessiontap stop'\n", "watchers", len(handoffs))
			}
			if cfg.Index.Disabled {
				fmt.Printf("  %-12s disabled\n", "index")
			} else if st, err := store.Open(cfg.IndexPath()); err == nil {
				n := 0
				if sessions, err := st.ListSessions(1000); err == nil {
					n = len(sessions)
				}
				st.Close()
				fmt.Printf("  %-12s %s (%d session(s))\n", "index", cfg.IndexPath(), n)
			} else {
				fmt.Printf("  %-12s unavailable (%v)\n", "index", err)
			}

			return nil
		},
	}
}

func describeDir(dir, pattern string) string {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Sprintf("%s (missing)", dir)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))
	return fmt.Sprintf("%s (%d file(s))", dir, len(matches))
}
