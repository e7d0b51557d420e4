package domain

import (
	"strconv"
	"time"

	"github.com/sledgehq/sledge/internal/shared/domain"
)

// SubscriptionStatus mirrors the payment provider's subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

// ParseStatus accepts only the known status strings.
func ParseStatus(s string) (SubscriptionStatus, bool) {
	status := SubscriptionStatus(s)
	return status, status.IsValid()
}

// IsValid reports whether s is a known status.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue,
		SubscriptionCanceled, SubscriptionUnpaid, SubscriptionIncomplete:
		return true
	default:
		return false
	}
}

// Subscription binds a user to a tier through its registration order.
// RegistrationOrder and UserID never change after creation.
type Subscription struct {
	domain.EventRecorder `json:"-"`

	ID                   int64              `json:"id"`
	UserID               int64              `json:"user_id"`
	RegistrationOrder    int64              `json:"registration_order"`
	Tier                 Tier               `json:"tier"`
	Status               SubscriptionStatus `json:"status"`
	TrialStart           *time.Time         `json:"trial_start,omitempty"`
	TrialEnd             *time.Time         `json:"trial_end,omitempty"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	StripeCustomerID     *string            `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty"`
	StripePriceID        *string            `json:"stripe_price_id,omitempty"`
	PromoCode            *string            `json:"promo_code,omitempty"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NewSubscription builds the initial state for a freshly assigned order.
// Free tiers start active; paid tiers start incomplete until a payment
// method is attached. No trial dates are set either way.
func NewSubscription(policy *TierPolicy, userID, registrationOrder int64, promoCode *string, now time.Time) *Subscription {
	tier := policy.DetermineTier(registrationOrder)
	status := SubscriptionIncomplete
	if policy.IsFree(tier) {
		status = SubscriptionActive
	}

	return &Subscription{
		UserID:            userID,
		RegistrationOrder: registrationOrder,
		Tier:              tier,
		Status:            status,
		StripePriceID:     policy.StripePriceID(tier),
		PromoCode:         promoCode,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// AggregateID is the subscription ID as used in events.
func (s *Subscription) AggregateID() string {
	return strconv.FormatInt(s.ID, 10)
}

// RecordCreated raises SubscriptionCreated. Call after the row has an ID.
func (s *Subscription) RecordCreated() {
	s.AddDomainEvent(NewSubscriptionCreated(s))
}

// StartTrial moves an incomplete paid subscription to trialing. It
// reports false and changes nothing for any other state.
func (s *Subscription) StartTrial(policy *TierPolicy, now time.Time) bool {
	if s.Status != SubscriptionIncomplete || policy.IsFree(s.Tier) {
		return false
	}

	start := now
	s.Status = SubscriptionTrialing
	s.TrialStart = &start
	s.TrialEnd = policy.CalculateTrialEnd(s.Tier, start)
	s.UpdatedAt = now
	s.AddDomainEvent(NewTrialStarted(s))
	return true
}

// SubscriptionPatch carries provider-driven field updates. Nil fields are
// left untouched.
type SubscriptionPatch struct {
	Status               *SubscriptionStatus
	TrialStart           *time.Time
	TrialEnd             *time.Time
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	StripeCustomerID     *string
	StripeSubscriptionID *string
	StripePriceID        *string
	CancelAtPeriodEnd    *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p SubscriptionPatch) IsEmpty() bool {
	return p == SubscriptionPatch{}
}

// Validate rejects unknown statuses.
func (p SubscriptionPatch) Validate() error {
	if p.Status != nil && !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Apply copies the set fields onto s and reports whether the status changed.
func (s *Subscription) Apply(p SubscriptionPatch, now time.Time) (statusChanged bool) {
	if p.Status != nil && *p.Status != s.Status {
		s.AddDomainEvent(NewStatusChanged(s, s.Status, *p.Status))
		s.Status = *p.Status
		statusChanged = true
	}
	if p.TrialStart != nil {
		s.TrialStart = p.TrialStart
	}
	if p.TrialEnd != nil {
		s.TrialEnd = p.TrialEnd
	}
	if p.CurrentPeriodStart != nil {
		s.CurrentPeriodStart = p.CurrentPeriodStart
	}
	if p.CurrentPeriodEnd != nil {
		s.CurrentPeriodEnd = p.CurrentPeriodEnd
	}
	if p.StripeCustomerID != nil {
		s.StripeCustomerID = p.StripeCustomerID
	}
	if p.StripeSubscriptionID != nil {
		s.StripeSubscriptionID = p.StripeSubscriptionID
	}
	if p.StripePriceID != nil {
		s.StripePriceID = p.StripePriceID
	}
	if p.CancelAtPeriodEnd != nil {
		s.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	s.UpdatedAt = now
	return statusChanged
}
