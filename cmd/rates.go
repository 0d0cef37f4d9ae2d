package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgeline-services/fieldops/internal/rates"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the county tax rate reference table",
}

var ratesLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load county rates from an .xlsx or .yaml file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rows, err := rates.LoadFile(args[0])
		if err != nil {
			return err
		}
		for i := range rows {
			rows[i].County = rates.Canonical(rows[i].County)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertCountyRates(ctx, rows)
		if err != nil {
			return err
		}

		zap.L().Info("rates loaded", zap.String("file", args[0]), zap.Int64("rows", n))
		fmt.Printf("Loaded %d county rates from %s\n", n, args[0])
		return nil
	},
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the county tax rate table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.ListCountyRates(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("Rate table is empty; run 'fieldops rates load'")
			return nil
		}

		fmt.Printf("%-24s %8s %8s %8s\n", "COUNTY", "STATE", "COUNTY", "TOTAL")
		for _, r := range rows {
			fmt.Printf("%-24s %8.4f %8.4f %8.4f\n", r.County, r.StateRate, r.CountyRate, r.TotalRate)
		}
		return nil
	},
}

func init() {
	ratesCmd.AddCommand(ratesLoadCmd)
	ratesCmd.AddCommand(ratesListCmd)
	rootCmd.AddCommand(ratesCmd)
}
