package domain

import (
	"time"

	"github.com/sledgehq/sledge/internal/shared/domain"
)

const (
	AggregateType = "subscription"

	RoutingKeySubscriptionCreated = "billing.subscription.created"
	RoutingKeyTrialStarted        = "billing.subscription.trial_started"
	RoutingKeyStatusChanged       = "billing.subscription.status_changed"
)

// SubscriptionCreated is raised once per user when a subscription row is
// inserted.
type SubscriptionCreated struct {
	domain.BaseEvent
	SubscriptionID    int64              `json:"subscription_id"`
	UserID            int64              `json:"user_id"`
	RegistrationOrder int64              `json:"registration_order"`
	Tier              Tier               `json:"tier"`
	Status            SubscriptionStatus `json:"status"`
	PromoCode         *string            `json:"promo_code,omitempty"`
}

func NewSubscriptionCreated(s *Subscription) *SubscriptionCreated {
	return &SubscriptionCreated{
		BaseEvent:         domain.NewBaseEvent(s.AggregateID(), AggregateType, RoutingKeySubscriptionCreated),
		SubscriptionID:    s.ID,
		UserID:            s.UserID,
		RegistrationOrder: s.RegistrationOrder,
		Tier:              s.Tier,
		Status:            s.Status,
		PromoCode:         s.PromoCode,
	}
}

type TrialStarted struct {
	domain.BaseEvent
	SubscriptionID int64      `json:"subscription_id"`
	UserID         int64      `json:"user_id"`
	Tier           Tier       `json:"tier"`
	TrialStart     time.Time  `json:"trial_start"`
	TrialEnd       *time.Time `json:"trial_end,omitempty"`
}

func NewTrialStarted(s *Subscription) *TrialStarted {
	e := &TrialStarted{
		BaseEvent:      domain.NewBaseEvent(s.AggregateID(), AggregateType, RoutingKeyTrialStarted),
		SubscriptionID: s.ID,
		UserID:         s.UserID,
		Tier:           s.Tier,
		TrialEnd:       s.TrialEnd,
	}
	if s.TrialStart != nil {
		e.TrialStart = *s.TrialStart
	}
	return e
}

type StatusChanged struct {
	domain.BaseEvent
	SubscriptionID int64              `json:"subscription_id"`
	UserID         int64              `json:"user_id"`
	From           SubscriptionStatus `json:"from"`
	To             SubscriptionStatus `json:"to"`
}

func NewStatusChanged(s *Subscription, from, to SubscriptionStatus) *StatusChanged {
	return &StatusChanged{
		BaseEvent:      domain.NewBaseEvent(s.AggregateID(), AggregateType, RoutingKeyStatusChanged),
		SubscriptionID: s.ID,
		UserID:         s.UserID,
		From:           from,
		To:             to,
	}
}
