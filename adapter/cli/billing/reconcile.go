package billing

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/adapter/cli"
)

var reconcileLimit int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Backfill subscriptions for every user missing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.RequireApp()
		if err != nil {
			return err
		}

		report, err := c.RegistrationService.ReconcileMissing(cmd.Context(), reconcileLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Assigned: %d\n", len(report.Assigned))
		for _, sub := range report.Assigned {
			fmt.Fprintf(out, "  user %d: %s (order %d)\n", sub.UserID, sub.Tier, sub.RegistrationOrder)
		}

		if len(report.Failed) == 0 {
			return nil
		}
		failed := make([]int64, 0, len(report.Failed))
		for id := range report.Failed {
			failed = append(failed, id)
		}
		sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })

		fmt.Fprintf(out, "Failed: %d\n", len(failed))
		for _, id := range failed {
			fmt.Fprintf(out, "  user %d: %v\n", id, report.Failed[id])
		}
		return fmt.Errorf("%d users could not be reconciled", len(failed))
	},
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileLimit, "limit", 500, "maximum users to process")
}
