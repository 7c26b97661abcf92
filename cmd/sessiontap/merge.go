package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/logger"
	"github.com/mango-mice/sessiontap/internal/merge"
)

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [file]",
		Short: "Merge recorded timestamps into history files",
		Long: "Rewrites conversation headers with the arrival times recorded in the\n" +
			"ledger. With no argument every history file in the project is merged.\n" +
			"Merging is idempotent; run it as often as you like.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			eng := &merge.Engine{}
			if len(args) == 1 {
				return eng.MergeFile(args[0])
			}
			return eng.MergeAll(cfg.HistoryDir(), cfg.History.Ext)
		},
	}
}
