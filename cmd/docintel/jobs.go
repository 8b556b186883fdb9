package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docintel/internal/jobs"
)

var (
	jobsStatus string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (Started, Completed, Aborted)")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Service.Jobs(cmd.Context(), jobs.Status(jobsStatus), jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(list) == 0 {
		cmd.Println("No jobs found.")
		return nil
	}
	for _, j := range list {
		end := "-"
		if j.EndTime != nil {
			end = j.EndTime.Format(time.RFC3339)
		}
		cmd.Printf("%6d  %-10s %-20s %s  %s\n", j.ID, j.Status, j.Name, j.StartTime.Format(time.RFC3339), end)
	}
	return nil
}
