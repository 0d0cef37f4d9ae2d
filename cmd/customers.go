package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridgeline-services/fieldops/internal/model"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Manage the customer allow/deny lists used by tax calculation",
}

var excludeCmd = &cobra.Command{
	Use:   "exclude <external-customer-id>",
	Short: "Exclude a customer from tax calculation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reason, _ := cmd.Flags().GetString("reason")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.AddCustomerExclusion(ctx, model.CustomerExclusion{
			ExternalCustomerID: args[0],
			Reason:             reason,
		}); err != nil {
			return err
		}
		fmt.Printf("Excluded customer %s\n", args[0])
		return nil
	},
}

var unexcludeCmd = &cobra.Command{
	Use:   "unexclude <external-customer-id>",
	Short: "Remove a customer from the exclusion list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.RemoveCustomerExclusion(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed exclusion for customer %s\n", args[0])
		return nil
	},
}

var includeCmd = &cobra.Command{
	Use:   "include <external-customer-id>",
	Short: "Add a customer to the inclusion allow list",
	Long: `Add a customer to the inclusion list. When the list is non-empty,
calculation runs without an explicit --customers filter only process listed
customers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reason, _ := cmd.Flags().GetString("reason")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.AddCustomerInclusion(ctx, model.CustomerInclusion{
			ExternalCustomerID: args[0],
			Reason:             reason,
		}); err != nil {
			return err
		}
		fmt.Printf("Included customer %s\n", args[0])
		return nil
	},
}

var unincludeCmd = &cobra.Command{
	Use:   "uninclude <external-customer-id>",
	Short: "Remove a customer from the inclusion list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.RemoveCustomerInclusion(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed inclusion for customer %s\n", args[0])
		return nil
	},
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customer exclusions and inclusions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		exclusions, err := st.ListCustomerExclusions(ctx)
		if err != nil {
			return err
		}
		inclusions, err := st.ListCustomerInclusions(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Exclusions (%d):\n", len(exclusions))
		for _, e := range exclusions {
			fmt.Printf("  %s  %s\n", e.ExternalCustomerID, e.Reason)
		}
		fmt.Printf("Inclusions (%d):\n", len(inclusions))
		for _, i := range inclusions {
			fmt.Printf("  %s  %s\n", i.ExternalCustomerID, i.Reason)
		}
		return nil
	},
}

func init() {
	excludeCmd.Flags().String("reason", "", "why the customer is excluded")
	includeCmd.Flags().String("reason", "", "why the customer is included")
	customersCmd.AddCommand(excludeCmd)
	customersCmd.AddCommand(unexcludeCmd)
	customersCmd.AddCommand(includeCmd)
	customersCmd.AddCommand(unincludeCmd)
	customersCmd.AddCommand(customersListCmd)
	rootCmd.AddCommand(customersCmd)
}
