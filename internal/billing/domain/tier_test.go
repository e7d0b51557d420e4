package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/billing/domain"
)

func twoTierPolicy(t *testing.T) *domain.TierPolicy {
	t.Helper()
	policy, err := domain.NewDefaultTierPolicy(100, domain.StandardTerms("price_std"))
	require.NoError(t, err)
	return policy
}

func TestDefaultPolicy_EveryOrderIsStandard(t *testing.T) {
	policy, err := domain.NewDefaultTierPolicy(0, domain.StandardTerms(""))
	require.NoError(t, err)

	for _, order := range []int64{-3, 0, 1, 5, 1_000_000} {
		assert.Equal(t, domain.TierStandard, policy.DetermineTier(order), "order %d", order)
	}
	assert.Equal(t, int64(29900), policy.TierPricing(domain.TierStandard))
	assert.Nil(t, policy.StripePriceID(domain.TierStandard))
}

func TestDetermineTier_RangesAreContiguous(t *testing.T) {
	policy := twoTierPolicy(t)

	tests := []struct {
		order int64
		want  domain.Tier
	}{
		{0, domain.TierFree},
		{1, domain.TierFree},
		{100, domain.TierFree},
		{101, domain.TierStandard},
		{1 << 40, domain.TierStandard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.DetermineTier(tt.order), "order %d", tt.order)
	}

	// Same input, same answer.
	for range 3 {
		assert.Equal(t, domain.TierFree, policy.DetermineTier(42))
	}
}

func TestNewTierPolicy_Validation(t *testing.T) {
	terms := map[domain.Tier]domain.TierTerms{
		domain.TierFree:     {Free: true},
		domain.TierStandard: domain.StandardTerms(""),
	}

	tests := []struct {
		name   string
		ranges []domain.TierRange
	}{
		{"empty", nil},
		{"bounded last range", []domain.TierRange{{Tier: domain.TierFree, UpTo: 10}}},
		{"unbounded middle range", []domain.TierRange{{Tier: domain.TierFree}, {Tier: domain.TierStandard}}},
		{"overlap", []domain.TierRange{{Tier: domain.TierFree, UpTo: 10}, {Tier: domain.TierFree, UpTo: 10}, {Tier: domain.TierStandard}}},
		{"unknown tier", []domain.TierRange{{Tier: "gold"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewTierPolicy(tt.ranges, terms)
			assert.ErrorIs(t, err, domain.ErrInvalidTierPolicy)
		})
	}
}

func TestCalculateTrialEnd(t *testing.T) {
	policy := twoTierPolicy(t)
	start := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	end := policy.CalculateTrialEnd(domain.TierStandard, start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC), *end)

	assert.Nil(t, policy.CalculateTrialEnd(domain.TierFree, start))
	assert.Nil(t, policy.CalculateTrialEnd("unknown", start))
}

func TestPricing_UnknownTier(t *testing.T) {
	policy := twoTierPolicy(t)
	assert.Equal(t, int64(0), policy.TierPricing("gold"))
	assert.Nil(t, policy.StripePriceID("gold"))
	require.NotNil(t, policy.StripePriceID(domain.TierStandard))
	assert.Equal(t, "price_std", *policy.StripePriceID(domain.TierStandard))
}

func TestHasActiveAccess(t *testing.T) {
	policy := twoTierPolicy(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		sub  *domain.Subscription
		want bool
	}{
		{"nil", nil, false},
		{"free tier ignores status", &domain.Subscription{Tier: domain.TierFree, Status: domain.SubscriptionCanceled}, true},
		{"active", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionActive}, true},
		{"trialing open ended", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionTrialing}, true},
		{"trialing before end", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionTrialing, TrialEnd: &future}, true},
		{"trialing at end", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionTrialing, TrialEnd: &now}, false},
		{"trialing after end", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionTrialing, TrialEnd: &past}, false},
		{"past due", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionPastDue}, false},
		{"canceled", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionCanceled}, false},
		{"unpaid", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionUnpaid}, false},
		{"incomplete", &domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionIncomplete}, false},
		{"unknown status", &domain.Subscription{Tier: domain.TierStandard, Status: "paused"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.HasActiveAccess(tt.sub, now))
		})
	}
}

func TestRequiresPaymentSetup(t *testing.T) {
	policy := twoTierPolicy(t)
	stripeID := "sub_123"
	empty := ""

	assert.False(t, policy.RequiresPaymentSetup(&domain.Subscription{Tier: domain.TierFree}))
	assert.True(t, policy.RequiresPaymentSetup(&domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionActive}))
	assert.True(t, policy.RequiresPaymentSetup(&domain.Subscription{Tier: domain.TierStandard, StripeSubscriptionID: &empty}))
	assert.False(t, policy.RequiresPaymentSetup(&domain.Subscription{Tier: domain.TierStandard, Status: domain.SubscriptionPastDue, StripeSubscriptionID: &stripeID}))
	assert.True(t, policy.RequiresPaymentSetup(nil))
}

func intPtr(v int) *int { return &v }

func TestDaysRemainingInTrial(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name     string
		trialEnd *time.Time
		want     *int
	}{
		{"no trial", nil, nil},
		{"exactly 30 days", at(30 * 24 * time.Hour), intPtr(30)},
		{"partial day rounds up", at(36 * time.Hour), intPtr(2)},
		{"one minute left", at(time.Minute), intPtr(1)},
		{"ended", at(-48 * time.Hour), intPtr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DaysRemainingInTrial(tt.trialEnd, now))
		})
	}
}
