package billing

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/adapter/cli"
)

var backfillUserID int64

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Assign a subscription to a user registered before billing existed",
	Long: `Assign a subscription to an existing user. The registration order is the
number of users with an ID up to and including this one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if backfillUserID < 1 {
			return errors.New("--user is required")
		}

		sub, err := c.RegistrationService.AssignSubscriptionToExistingUser(cmd.Context(), backfillUserID)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Backfilled %s tier (order %d) for user %d\n", sub.Tier, sub.RegistrationOrder, sub.UserID)
		return nil
	},
}

func init() {
	backfillCmd.Flags().Int64Var(&backfillUserID, "user", 0, "user ID")
}
