package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/billing/domain"
	"github.com/sledgehq/sledge/internal/billing/infrastructure/persistence"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
)

func newSubscription(userID, order int64) *domain.Subscription {
	now := time.Now().UTC().Truncate(time.Second)
	price := "price_std"
	return &domain.Subscription{
		UserID:            userID,
		RegistrationOrder: order,
		Tier:              domain.TierStandard,
		Status:            domain.SubscriptionIncomplete,
		StripePriceID:     &price,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestSubscriptionRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	insertUser(t, conn, 5)
	repo := persistence.NewSubscriptionRepository(conn)

	sub := newSubscription(5, 5)
	require.NoError(t, repo.Create(ctx, sub))
	assert.NotZero(t, sub.ID)

	found, err := repo.FindByUserID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, sub.ID, found.ID)
	assert.Equal(t, int64(5), found.RegistrationOrder)
	assert.Equal(t, domain.TierStandard, found.Tier)
	assert.Equal(t, domain.SubscriptionIncomplete, found.Status)
	assert.Nil(t, found.TrialStart)
	assert.Nil(t, found.StripeSubscriptionID)
	require.NotNil(t, found.StripePriceID)
	assert.Equal(t, "price_std", *found.StripePriceID)
	assert.False(t, found.CancelAtPeriodEnd)
	assert.True(t, sub.CreatedAt.Equal(found.CreatedAt))

	byOrder, err := repo.FindByRegistrationOrder(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, byOrder)
	assert.Equal(t, sub.ID, byOrder.ID)
}

func TestSubscriptionRepository_FindMissing(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewSubscriptionRepository(openTestDB(t))

	sub, err := repo.FindByUserID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = repo.FindByStripeCustomerID(ctx, "cus_missing")
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = repo.FindByStripeSubscriptionID(ctx, "sub_missing")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepository_DuplicatesAreConflicts(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	insertUser(t, conn, 1)
	insertUser(t, conn, 2)
	repo := persistence.NewSubscriptionRepository(conn)

	require.NoError(t, repo.Create(ctx, newSubscription(1, 1)))

	err := repo.Create(ctx, newSubscription(2, 1))
	assert.ErrorIs(t, err, sharedDomain.ErrConflict, "registration order reused")

	err = repo.Create(ctx, newSubscription(1, 2))
	assert.ErrorIs(t, err, sharedDomain.ErrConflict, "second subscription for user")
}

func TestSubscriptionRepository_Update(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	insertUser(t, conn, 3)
	repo := persistence.NewSubscriptionRepository(conn)

	sub := newSubscription(3, 3)
	require.NoError(t, repo.Create(ctx, sub))

	trialStart := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	trialEnd := trialStart.AddDate(0, 0, 30)
	customer := "cus_123"
	stripeSub := "sub_123"
	sub.Status = domain.SubscriptionTrialing
	sub.TrialStart = &trialStart
	sub.TrialEnd = &trialEnd
	sub.StripeCustomerID = &customer
	sub.StripeSubscriptionID = &stripeSub
	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, sub))

	found, err := repo.FindByStripeSubscriptionID(ctx, "sub_123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.SubscriptionTrialing, found.Status)
	require.NotNil(t, found.TrialEnd)
	assert.True(t, trialEnd.Equal(*found.TrialEnd))
	assert.True(t, found.CancelAtPeriodEnd)
	assert.Equal(t, int64(3), found.RegistrationOrder)

	byCustomer, err := repo.FindByStripeCustomerID(ctx, "cus_123")
	require.NoError(t, err)
	require.NotNil(t, byCustomer)
	assert.Equal(t, sub.ID, byCustomer.ID)
}

func TestSubscriptionRepository_UpdateMissingRow(t *testing.T) {
	repo := persistence.NewSubscriptionRepository(openTestDB(t))
	sub := newSubscription(8, 8)
	sub.ID = 404

	err := repo.Update(context.Background(), sub)
	assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
}

func TestSubscriptionRepository_UnknownStatusIsReadVerbatim(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	insertUser(t, conn, 4)
	repo := persistence.NewSubscriptionRepository(conn)

	sub := newSubscription(4, 4)
	require.NoError(t, repo.Create(ctx, sub))
	_, err := conn.Exec(ctx, `UPDATE subscriptions SET status = 'paused' WHERE id = ?`, sub.ID)
	require.NoError(t, err)

	found, err := repo.FindByUserID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatus("paused"), found.Status)
	assert.False(t, found.Status.IsValid())
}
