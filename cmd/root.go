// Package cmd implements the scheduler-service CLI: operator tooling
// (jobs/dlq subcommands talking straight to the Coordinator) plus the
// serve/migrate commands that run the actual service, mirroring the
// teacher's cobra command-group layout (cmd/cron_cmd.go, cmd/config_cmd.go).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler-service",
		Short: "HTTP job scheduler: persistent, retrying, webhook-style dispatch",
	}
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(jobsCmd())
	cmd.AddCommand(dlqCmd())
	return cmd
}

// Execute runs the CLI, exiting non-zero on error.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
