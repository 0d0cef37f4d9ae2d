package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sessionTTL converts the configured minutes to a duration.
func sessionTTL() time.Duration {
	return time.Duration(cfg.Invoicing.SessionTTLMins) * time.Minute
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync invoices from the invoicing provider into the local mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		zap.L().With(zap.String("command", "sync")).Info("starting invoice sync")

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		initiatedBy, _ := cmd.Flags().GetString("initiated-by")

		result, err := e.syncer.SyncInvoices(ctx, initiatedBy)
		if err != nil {
			return err
		}

		if !result.Success {
			fmt.Printf("Sync failed (run %s); see run status for detail\n", result.RunID)
			return nil
		}

		fmt.Printf("Synced %d invoices in %dms (run %s)\n", result.TotalSynced, result.DurationMs, result.RunID)
		for _, e := range result.Errors {
			fmt.Println("  error:", e)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("initiated-by", "", "user reference recorded on the run")
	rootCmd.AddCommand(syncCmd)
}
