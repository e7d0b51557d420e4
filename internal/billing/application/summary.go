package application

import (
	"context"
	"time"

	"github.com/sledgehq/sledge/internal/billing/domain"
)

// SubscriptionSummary is a subscription together with the policy
// decisions derived from it at a point in time.
type SubscriptionSummary struct {
	Subscription         *domain.Subscription `json:"subscription"`
	HasActiveAccess      bool                 `json:"has_active_access"`
	RequiresPaymentSetup bool                 `json:"requires_payment_setup"`
	DaysRemainingInTrial *int                 `json:"days_remaining_in_trial"`
	PriceCents           int64                `json:"price_cents"`
}

// Summarize evaluates the tier policy for sub. sub may be nil.
func (s *SubscriptionService) Summarize(sub *domain.Subscription, now time.Time) SubscriptionSummary {
	summary := SubscriptionSummary{
		Subscription:         sub,
		HasActiveAccess:      s.policy.HasActiveAccess(sub, now),
		RequiresPaymentSetup: s.policy.RequiresPaymentSetup(sub),
	}
	if sub != nil {
		summary.DaysRemainingInTrial = domain.DaysRemainingInTrial(sub.TrialEnd, now)
		summary.PriceCents = s.policy.TierPricing(sub.Tier)
	}
	return summary
}

// SummarizeNow is Summarize at the service clock's current instant.
func (s *SubscriptionService) SummarizeNow(sub *domain.Subscription) SubscriptionSummary {
	return s.Summarize(sub, s.now())
}

// GetSubscriptionSummary loads and summarizes the user's subscription.
// The summary of a user without a subscription denies access.
func (s *SubscriptionService) GetSubscriptionSummary(ctx context.Context, userID int64) (SubscriptionSummary, error) {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return SubscriptionSummary{}, classify("get subscription", userID, err)
	}
	return s.SummarizeNow(sub), nil
}
