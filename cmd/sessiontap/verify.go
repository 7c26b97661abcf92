package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/verify"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [root]",
		Short: "Check history files for timestamp coverage",
		Long: "Walks the tree, finds every .specstory archive, and reports headers\n" +
			"that have content but never received a timestamp. Exits non-zero when\n" +
			"any file is incompletely stamped.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := config.Default().Tool.Name
			root := "."
			if cfg, err := config.Load(); err == nil {
				tool = cfg.Tool.Name
				root = cfg.Root
			}
			if len(args) == 1 {
				root = args[0]
			}

			rep, err := verify.Run(root, tool)
			if err != nil {
				return err
			}
			rep.Print(os.Stdout)
			if !rep.OK() {
				os.Exit(1)
			}
			return nil
		},
	}
}
