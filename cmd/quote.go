package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridgeline-services/fieldops/internal/taxcalc"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote tax for a single invoice synchronously",
	Long: `Quote state and county tax for a draft invoice that is not in the
mirror yet. Provide --county to skip geocoding, or --address to geocode.
With neither, the configured default county rate is used and flagged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		subtotal, _ := cmd.Flags().GetFloat64("subtotal")
		address, _ := cmd.Flags().GetString("address")
		county, _ := cmd.Flags().GetString("county")

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		quote, err := e.calculator.QuoteTax(ctx, taxcalc.QuoteInput{
			Subtotal: subtotal,
			Address:  address,
			County:   county,
		})
		if err != nil {
			return err
		}

		fmt.Printf("County: %s\n", quote.County)
		if quote.UsedDefaultRate {
			fmt.Println("  (default county rate: no county override and no geocodable address)")
		}
		fmt.Printf("State tax:  %.2f\n", quote.StateTaxAmount)
		fmt.Printf("County tax: %.2f\n", quote.CountyTaxAmount)
		fmt.Printf("Total tax:  %.2f\n", quote.TotalTaxAmount)
		return nil
	},
}

func init() {
	quoteCmd.Flags().Float64("subtotal", 0, "invoice subtotal (required)")
	quoteCmd.Flags().String("address", "", "billing address to geocode")
	quoteCmd.Flags().String("county", "", "county override, skips geocoding")
	_ = quoteCmd.MarkFlagRequired("subtotal")
	rootCmd.AddCommand(quoteCmd)
}
