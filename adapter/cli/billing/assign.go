package billing

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/adapter/cli"
	billingApp "github.com/sledgehq/sledge/internal/billing/application"
)

var (
	assignUserID int64
	assignOrder  int64
	assignPromo  string
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a subscription to a user",
	Long: `Assign a subscription to a user. Without --order the next registration
order is taken from the counter.

Examples:
  sledge billing assign --user 12
  sledge billing assign --user 12 --order 7 --promo LAUNCH`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if assignUserID < 1 {
			return errors.New("--user is required")
		}
		if assignOrder < 0 {
			return errors.New("--order must be positive")
		}

		sub, err := c.RegistrationService.AssignSubscriptionToUser(cmd.Context(), assignUserID, billingApp.AssignOptions{
			RegistrationOrder: assignOrder,
			PromoCode:         optionalString(assignPromo),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s tier (order %d) to user %d\n", sub.Tier, sub.RegistrationOrder, sub.UserID)
		return nil
	},
}

func init() {
	assignCmd.Flags().Int64Var(&assignUserID, "user", 0, "user ID")
	assignCmd.Flags().Int64Var(&assignOrder, "order", 0, "explicit registration order")
	assignCmd.Flags().StringVar(&assignPromo, "promo", "", "promo code")
}
