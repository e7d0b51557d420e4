// Package billing holds the sledge billing commands.
package billing

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	billingApp "github.com/sledgehq/sledge/internal/billing/application"
	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
)

// Cmd is the billing command group.
var Cmd = &cobra.Command{
	Use:   "billing",
	Short: "Manage registration-order subscriptions",
	Long:  `Inspect and assign subscriptions, start trials, and apply status changes.`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(assignCmd)
	Cmd.AddCommand(backfillCmd)
	Cmd.AddCommand(reconcileCmd)
	Cmd.AddCommand(trialCmd)
	Cmd.AddCommand(setStatusCmd)
}

func printSummary(out io.Writer, s billingApp.SubscriptionSummary) {
	sub := s.Subscription
	fmt.Fprintf(out, "User: %d\n", sub.UserID)
	fmt.Fprintf(out, "Registration order: %d\n", sub.RegistrationOrder)
	fmt.Fprintf(out, "Tier: %s\n", sub.Tier)
	fmt.Fprintf(out, "Status: %s\n", sub.Status)
	fmt.Fprintf(out, "Active access: %t\n", s.HasActiveAccess)
	fmt.Fprintf(out, "Payment setup required: %t\n", s.RequiresPaymentSetup)
	if s.PriceCents > 0 {
		fmt.Fprintf(out, "Price: $%d.%02d\n", s.PriceCents/100, s.PriceCents%100)
	}
	if sub.TrialEnd != nil {
		fmt.Fprintf(out, "Trial ends: %s\n", sub.TrialEnd.Local().Format(time.RFC1123))
	}
	if s.DaysRemainingInTrial != nil {
		fmt.Fprintf(out, "Trial days remaining: %d\n", *s.DaysRemainingInTrial)
	}
	if sub.CurrentPeriodEnd != nil {
		fmt.Fprintf(out, "Renews: %s\n", sub.CurrentPeriodEnd.Local().Format(time.RFC1123))
	}
	printOptional(out, "Stripe customer", sub.StripeCustomerID)
	printOptional(out, "Stripe subscription", sub.StripeSubscriptionID)
	printOptional(out, "Promo code", sub.PromoCode)
}

func printOptional(out io.Writer, label string, v *string) {
	if v != nil && *v != "" {
		fmt.Fprintf(out, "%s: %s\n", label, *v)
	}
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func summarize(svc *billingApp.SubscriptionService, sub *billingDomain.Subscription) billingApp.SubscriptionSummary {
	return svc.SummarizeNow(sub)
}
