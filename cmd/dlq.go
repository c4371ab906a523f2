package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func dlqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and clear the dead-letter queue",
	}
	cmd.AddCommand(dlqListCmd())
	cmd.AddCommand(dlqReactivateCmd())
	cmd.AddCommand(dlqCompleteCmd())
	cmd.AddCommand(dlqDeleteCmd())
	return cmd
}

func dlqListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs that failed permanently",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, closeFn, err := dialCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			jobs, err := coordinator.ListDLQ(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(jobs, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			if len(jobs) == 0 {
				fmt.Println("Dead-letter queue is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tNAME\tTARGET\tERROR\n")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", j.ID.String()[:8], j.Name, j.Target, j.ErrorMessage)
			}
			tw.Flush()
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func dlqReactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate [jobId]",
		Short: "Return a dead-lettered job to ACTIVE and compute its next run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			coordinator, closeFn, err := dialCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := coordinator.Reactivate(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Job %s reactivated, status=%s\n", job.ID, job.Status)
			return nil
		},
	}
}

func dlqCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [jobId]",
		Short: "Acknowledge a dead-lettered job without retrying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			coordinator, closeFn, err := dialCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := coordinator.Complete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Job %s marked complete, status=%s\n", job.ID, job.Status)
			return nil
		},
	}
}

func dlqDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [jobId]",
		Short: "Permanently remove a dead-lettered job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			coordinator, closeFn, err := dialCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := coordinator.DeleteDLQ(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Removed job %s from the dead-letter queue\n", id)
			return nil
		},
	}
}
