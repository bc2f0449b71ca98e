package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// sweepSubscriptionsCmd is meant to run from cron.
func sweepSubscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-subscriptions",
		Short: "Warn artisans about expiring subscriptions and downgrade expired ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.app.Service.Subscription.SweepExpirations(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func reconcileRefundsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reconcile-refunds",
		Short: "Retry refunds for cancelled bookings that are still marked paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.app.Service.Payment.ReconcileRefunds(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum bookings to process")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
