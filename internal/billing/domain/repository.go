package domain

import "context"

// RegistrationCounterRepository persists the registration counter row.
type RegistrationCounterRepository interface {
	// Get returns the first counter row, or nil when none exists.
	Get(ctx context.Context) (*RegistrationCounter, error)
	// Init inserts the counter row with a zero count. A concurrent insert
	// surfaces as a unique violation.
	Init(ctx context.Context, id int64) error
	// Increment atomically bumps the counter and returns the new value.
	Increment(ctx context.Context, id int64) (int64, error)
}

// SubscriptionRepository persists subscriptions. Finders return nil, nil
// when nothing matches.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	FindByUserID(ctx context.Context, userID int64) (*Subscription, error)
	FindByRegistrationOrder(ctx context.Context, order int64) (*Subscription, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Subscription, error)
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error)
	// Update writes every mutable column of sub, matched by its ID.
	Update(ctx context.Context, sub *Subscription) error
}
