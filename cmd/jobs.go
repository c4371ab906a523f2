package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage scheduled jobs",
	}
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsGetCmd())
	cmd.AddCommand(jobsDeleteCmd())
	cmd.AddCommand(jobsRunCmd())
	cmd.AddCommand(jobsToggleCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	var jsonOutput bool
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, closeFn, err := dialCoordinator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			filter := store.Filter{}
			if status != "" {
				filter.Status = store.Status(status)
			}
			jobs, err := coordinator.ListAll(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printJobs(jobs, jsonOutput)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (ACTIVE, INACTIVE, FAILED)")
	return cmd
}

func jobsGetCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "get [jobId]",
		Short: "Show one job",
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

			job, err := coordinator.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printJobs([]*store.Job{job}, jsonOutput)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func jobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [jobId]",
		Short: "Delete a job",
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

			if _, err := coordinator.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted job %s\n", id)
			return nil
		},
	}
}

func jobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [jobId]",
		Short: "Dispatch a job immediately, outside its schedule",
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

			if err := coordinator.RunNow(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Queued immediate run for job %s\n", id)
			return nil
		},
	}
}

func jobsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [jobId] [ACTIVE|INACTIVE]",
		Short: "Change a job's status",
		Args:  cobra.ExactArgs(2),
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

			job, err := coordinator.ToggleStatus(cmd.Context(), id, store.Status(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("Job %s status=%s\n", job.ID, job.Status)
			return nil
		},
	}
}

func printJobs(jobs []*store.Job, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(jobs, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs scheduled.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tSTATUS\tSCHEDULE\tLAST RUN\tNEXT RUN\n")
	for _, j := range jobs {
		schedule := scheduleSummary(j)

		lastRun := "never"
		if j.LastRun != nil {
			lastRun = j.LastRun.Format(time.DateTime)
		}
		nextRun := "-"
		if j.NextRun != nil {
			nextRun = j.NextRun.Format(time.DateTime)
		}

		idShort := j.ID.String()[:8]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			idShort, j.Name, styledStatus(j.Status), schedule, lastRun, nextRun)
	}
	tw.Flush()
}

func scheduleSummary(j *store.Job) string {
	switch j.ScheduleType {
	case store.ScheduleCron:
		return j.CronExpression
	case store.ScheduleSpecificTime:
		if j.SpecificTime != nil {
			return j.SpecificTime.Format(time.DateTime)
		}
		return "specific time"
	case store.ScheduleRecurring:
		return fmt.Sprintf("every %d %s", j.IntervalValue, j.IntervalUnit)
	default:
		return string(j.ScheduleType)
	}
}
