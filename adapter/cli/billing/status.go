package billing

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/adapter/cli"
)

var statusUserID int64

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a user's subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if statusUserID < 1 {
			return errors.New("--user is required")
		}

		summary, err := c.SubscriptionService.GetSubscriptionSummary(cmd.Context(), statusUserID)
		if err != nil {
			return err
		}
		if summary.Subscription == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No subscription found.")
			return nil
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int64Var(&statusUserID, "user", 0, "user ID")
}
