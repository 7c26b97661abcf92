package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

func main() {
	root := &cobra.Command{
		Use:   "sessiontap",
		Short: "sessiontap — wall-clock timestamps for recorded agent sessions",
		Long: "Wraps a session-recording tool, watches the markdown history it writes,\n" +
			"and stamps every conversation header with the wall-clock time it appeared.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		runCmd(),
		watchCmd(),
		mergeCmd(),
		stopCmd(),
		verifyCmd(),
		sessionsCmd(),
		doctorCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
