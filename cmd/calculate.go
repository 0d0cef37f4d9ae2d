package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgeline-services/fieldops/internal/taxcalc"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute state and county tax for synced invoices",
	Long: `Compute taxes for invoices in the local mirror.

Only invoices without a settled result are processed: new invoices, plus
invoices previously skipped as unpaid that have since been paid. Use
--customers with --include to restrict the run to specific customer ids, or
without --include to exclude them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		zap.L().With(zap.String("command", "calculate")).Info("starting tax calculation")

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		initiatedBy, _ := cmd.Flags().GetString("initiated-by")
		filters := parseCalcFilters(cmd)

		result, err := e.calculator.CalculateTaxes(ctx, initiatedBy, filters)
		if err != nil {
			return err
		}

		if !result.Success {
			fmt.Printf("Calculation failed (run %s); see run status for detail\n", result.RunID)
			return nil
		}

		fmt.Printf("Processed %d of %d invoices in %dms (run %s)\n",
			result.ProcessedInvoices, result.TotalInvoices, result.DurationMs, result.RunID)
		fmt.Printf("  counted %d, skipped %d, failed %d\n",
			result.CountedInvoices, result.SkippedInvoices, result.FailedInvoices)
		for _, e := range result.Errors {
			fmt.Println("  error:", e)
		}
		return nil
	},
}

func parseCalcFilters(cmd *cobra.Command) taxcalc.Filters {
	customersStr, _ := cmd.Flags().GetString("customers")
	includeMode, _ := cmd.Flags().GetBool("include")

	var filters taxcalc.Filters
	if customersStr != "" {
		for _, id := range strings.Split(customersStr, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				filters.CustomerIDs = append(filters.CustomerIDs, id)
			}
		}
		filters.IncludeMode = includeMode
	}
	return filters
}

func init() {
	calculateCmd.Flags().String("customers", "", "comma-separated external customer ids")
	calculateCmd.Flags().Bool("include", false, "treat --customers as an allow list instead of a deny list")
	calculateCmd.Flags().String("initiated-by", "", "user reference recorded on the run")
	rootCmd.AddCommand(calculateCmd)
}
