package persistence

import (
	"context"
	"fmt"

	"github.com/sledgehq/sledge/internal/billing/domain"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
)

const subscriptionColumns = `id, user_id, registration_order, tier, status,
	trial_start, trial_end, current_period_start, current_period_end,
	stripe_customer_id, stripe_subscription_id, stripe_price_id, promo_code,
	cancel_at_period_end, created_at, updated_at`

// SubscriptionRepository implements domain.SubscriptionRepository on
// either supported driver.
type SubscriptionRepository struct {
	conn database.Connection
}

// NewSubscriptionRepository creates a subscription repository.
func NewSubscriptionRepository(conn database.Connection) *SubscriptionRepository {
	return &SubscriptionRepository{conn: conn}
}

// Create inserts sub and sets its ID. A duplicate user or registration
// order is reported as a conflict.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		INSERT INTO subscriptions (
			user_id, registration_order, tier, status,
			trial_start, trial_end, current_period_start, current_period_end,
			stripe_customer_id, stripe_subscription_id, stripe_price_id, promo_code,
			cancel_at_period_end, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		sub.UserID, sub.RegistrationOrder, string(sub.Tier), string(sub.Status),
		utcPtr(sub.TrialStart), utcPtr(sub.TrialEnd), utcPtr(sub.CurrentPeriodStart), utcPtr(sub.CurrentPeriodEnd),
		sub.StripeCustomerID, sub.StripeSubscriptionID, sub.StripePriceID, sub.PromoCode,
		sub.CancelAtPeriodEnd, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
	).Scan(&sub.ID)
	if database.IsUniqueViolation(err) {
		return &sharedDomain.Error{
			Kind:   sharedDomain.ErrConflict,
			Op:     "create subscription",
			UserID: sub.UserID,
			Err:    fmt.Errorf("user or registration order %d already taken: %w", sub.RegistrationOrder, err),
		}
	}
	return err
}

func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return r.findOne(ctx, `user_id = ?`, userID)
}

func (r *SubscriptionRepository) FindByRegistrationOrder(ctx context.Context, order int64) (*domain.Subscription, error) {
	return r.findOne(ctx, `registration_order = ?`, order)
}

// FindByStripeCustomerID returns the oldest subscription of the customer.
func (r *SubscriptionRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return r.findOne(ctx, `stripe_customer_id = ?`, customerID)
}

func (r *SubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	return r.findOne(ctx, `stripe_subscription_id = ?`, subscriptionID)
}

// Update overwrites the mutable columns of the row with sub.ID. Identity
// columns (user, registration order, created_at) are never written.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE subscriptions SET
			tier = ?, status = ?,
			trial_start = ?, trial_end = ?, current_period_start = ?, current_period_end = ?,
			stripe_customer_id = ?, stripe_subscription_id = ?, stripe_price_id = ?, promo_code = ?,
			cancel_at_period_end = ?, updated_at = ?
		WHERE id = ?`,
		string(sub.Tier), string(sub.Status),
		utcPtr(sub.TrialStart), utcPtr(sub.TrialEnd), utcPtr(sub.CurrentPeriodStart), utcPtr(sub.CurrentPeriodEnd),
		sub.StripeCustomerID, sub.StripeSubscriptionID, sub.StripePriceID, sub.PromoCode,
		sub.CancelAtPeriodEnd, sub.UpdatedAt.UTC(), sub.ID,
	)
	if database.IsUniqueViolation(err) {
		return &sharedDomain.Error{Kind: sharedDomain.ErrConflict, Op: "update subscription", UserID: sub.UserID, Err: err}
	}
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sharedDomain.NotFound("update subscription", sub.UserID, fmt.Sprintf("subscription %d does not exist", sub.ID))
	}
	return nil
}

func (r *SubscriptionRepository) findOne(ctx context.Context, where string, arg any) (*domain.Subscription, error) {
	sub, err := scanSubscription(database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+where+` ORDER BY id LIMIT 1`, arg))
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func scanSubscription(row database.Row) (*domain.Subscription, error) {
	var (
		sub          domain.Subscription
		tier, status string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.RegistrationOrder, &tier, &status,
		&sub.TrialStart, &sub.TrialEnd, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.StripeCustomerID, &sub.StripeSubscriptionID, &sub.StripePriceID, &sub.PromoCode,
		&sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Tier = domain.Tier(tier)
	// Unknown statuses are kept verbatim; the access policy denies them.
	sub.Status = domain.SubscriptionStatus(status)
	return &sub, nil
}
