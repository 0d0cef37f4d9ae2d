package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridgeline-services/fieldops/internal/model"
	"github.com/ridgeline-services/fieldops/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Type:  model.RunType(runType),
			Limit: limit,
		})
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs found")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-9s  %-11s  %4d/%-4d  %s  %s\n",
				r.ID, r.Type, r.Status,
				r.ItemsProcessed, r.TotalItems,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Message,
			)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show progress for a pipeline run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		printRun(run)
		return nil
	},
}

func printRun(r *model.PipelineRun) {
	fmt.Printf("Run:       %s (%s)\n", r.ID, r.Type)
	fmt.Printf("Status:    %s\n", r.Status)
	fmt.Printf("Message:   %s\n", r.Message)
	fmt.Printf("Progress:  %d/%d processed, %d succeeded, %d skipped, %d failed\n",
		r.ItemsProcessed, r.TotalItems, r.Succeeded, r.Skipped, r.Failed)
	if r.TotalBatches > 0 {
		fmt.Printf("Batch:     %d/%d\n", r.CurrentBatch, r.TotalBatches)
	}
	if r.InitiatedBy != "" {
		fmt.Printf("Initiated: %s\n", r.InitiatedBy)
	}
	fmt.Printf("Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	if r.CompletedAt != nil {
		fmt.Printf("Completed: %s\n", r.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if r.Error != "" {
		fmt.Printf("Error:     %s\n", r.Error)
	}
}

func init() {
	runsCmd.Flags().String("type", "", "filter by run type: sync, calculate")
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statusCmd)
}
