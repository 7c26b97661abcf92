package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mango-mice/sessiontap/internal/config"
	"github.com/mango-mice/sessiontap/internal/store"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			st, err := store.Open(cfg.IndexPath())
			if err != nil {
				return fmt.Errorf("open session index: %w", err)
			}
			defer st.Close()

			sessions, err := st.ListSessions(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions recorded")
				return nil
			}

			fmt.Printf("%-20s %-10s %-6s %-8s %s\n", "STARTED", "TOOL", "EXIT", "STAMPED", "TARGET")
			for _, s := range sessions {
				exit := "?"
				if s.ExitCode != nil {
					exit = strconv.Itoa(*s.ExitCode)
				}
				target := "-"
				if s.Target != "" {
					target = filepath.Base(s.Target)
				}
				fmt.Printf("%-20s %-10s %-6s %-8d %s\n",
					s.StartedAt.Format("2006-01-02 15:04:05"), s.Tool, exit, s.Stamped, target)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Max sessions to show")
	return cmd
}
