package billing

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/adapter/cli"
	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
)

var (
	setStatusUserID      int64
	setStatusValue       string
	setStatusStripeSub   string
	setStatusStripeCust  string
	setStatusCancelAtEnd bool
)

var setStatusCmd = &cobra.Command{
	Use:   "set-status",
	Short: "Apply a billing status change",
	Long: `Apply a status change by user ID or by provider subscription ID.

Examples:
  sledge billing set-status --user 12 --status active --stripe-subscription sub_123
  sledge billing set-status --stripe-subscription sub_123 --status past_due`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.RequireApp()
		if err != nil {
			return err
		}

		status, ok := billingDomain.ParseStatus(setStatusValue)
		if !ok {
			return fmt.Errorf("unknown status %q", setStatusValue)
		}

		patch := billingDomain.SubscriptionPatch{
			StripeCustomerID:     optionalString(setStatusStripeCust),
			StripeSubscriptionID: optionalString(setStatusStripeSub),
		}
		if cmd.Flags().Changed("cancel-at-period-end") {
			cancel := setStatusCancelAtEnd
			patch.CancelAtPeriodEnd = &cancel
		}

		var sub *billingDomain.Subscription
		switch {
		case setStatusUserID > 0:
			patch.Status = &status
			sub, err = c.SubscriptionService.UpdateSubscriptionByUserID(cmd.Context(), setStatusUserID, patch)
		case setStatusStripeSub != "":
			sub, err = c.SubscriptionService.UpdateSubscriptionStatus(cmd.Context(), setStatusStripeSub, status, patch)
		default:
			return errors.New("--user or --stripe-subscription is required")
		}
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), summarize(c.SubscriptionService, sub))
		return nil
	},
}

func init() {
	setStatusCmd.Flags().Int64Var(&setStatusUserID, "user", 0, "user ID")
	setStatusCmd.Flags().StringVar(&setStatusValue, "status", "", "new status")
	setStatusCmd.Flags().StringVar(&setStatusStripeSub, "stripe-subscription", "", "provider subscription ID")
	setStatusCmd.Flags().StringVar(&setStatusStripeCust, "stripe-customer", "", "provider customer ID")
	setStatusCmd.Flags().BoolVar(&setStatusCancelAtEnd, "cancel-at-period-end", false, "cancel when the current period ends")
	_ = setStatusCmd.MarkFlagRequired("status")
}
