package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Tier is a pricing tier derived from a registration order.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
)

// DefaultTrialDays is the trial length of the standard tier.
const DefaultTrialDays = 30

// DefaultStandardPriceCents is the standard monthly price in minor units.
const DefaultStandardPriceCents int64 = 29900

var (
	ErrInvalidStatus     = errors.New("invalid subscription status")
	ErrInvalidTierPolicy = errors.New("invalid tier policy")
)

// TierRange maps registration orders up to and including UpTo onto Tier.
// UpTo of zero marks the unbounded last range.
type TierRange struct {
	Tier Tier
	UpTo int64
}

// TierTerms are the commercial terms of a tier.
type TierTerms struct {
	Free          bool
	TrialDays     int
	PriceCents    int64
	StripePriceID string
}

// TierPolicy is the pure mapping from registration order to tier, trial and
// access decisions. Time is always passed in.
type TierPolicy struct {
	ranges []TierRange
	terms  map[Tier]TierTerms
}

// NewTierPolicy validates that ranges are contiguous, strictly increasing
// and end with an unbounded range, and that every tier has terms.
func NewTierPolicy(ranges []TierRange, terms map[Tier]TierTerms) (*TierPolicy, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no tier ranges", ErrInvalidTierPolicy)
	}

	var prev int64
	for i, r := range ranges {
		last := i == len(ranges)-1
		switch {
		case r.Tier == "":
			return nil, fmt.Errorf("%w: range %d has no tier", ErrInvalidTierPolicy, i)
		case last && r.UpTo != 0:
			return nil, fmt.Errorf("%w: last range must be unbounded", ErrInvalidTierPolicy)
		case !last && r.UpTo <= prev:
			return nil, fmt.Errorf("%w: range %d upper bound %d does not exceed %d", ErrInvalidTierPolicy, i, r.UpTo, prev)
		}
		if _, ok := terms[r.Tier]; !ok {
			return nil, fmt.Errorf("%w: no terms for tier %q", ErrInvalidTierPolicy, r.Tier)
		}
		prev = r.UpTo
	}

	copied := make(map[Tier]TierTerms, len(terms))
	for tier, t := range terms {
		if t.TrialDays < 0 || t.PriceCents < 0 {
			return nil, fmt.Errorf("%w: negative terms for tier %q", ErrInvalidTierPolicy, tier)
		}
		copied[tier] = t
	}

	return &TierPolicy{
		ranges: append([]TierRange(nil), ranges...),
		terms:  copied,
	}, nil
}

// NewDefaultTierPolicy builds the two-tier policy: orders 1..freeMax are
// free, everything after is standard. freeMax of zero disables the free
// tier.
func NewDefaultTierPolicy(freeMax int64, standard TierTerms) (*TierPolicy, error) {
	terms := map[Tier]TierTerms{
		TierFree:     {Free: true},
		TierStandard: standard,
	}
	if freeMax <= 0 {
		return NewTierPolicy([]TierRange{{Tier: TierStandard}}, terms)
	}
	return NewTierPolicy([]TierRange{
		{Tier: TierFree, UpTo: freeMax},
		{Tier: TierStandard},
	}, terms)
}

// StandardTerms returns the default standard tier terms.
func StandardTerms(stripePriceID string) TierTerms {
	return TierTerms{
		TrialDays:     DefaultTrialDays,
		PriceCents:    DefaultStandardPriceCents,
		StripePriceID: stripePriceID,
	}
}

// DetermineTier returns the tier of a registration order. Orders below 1
// fall into the first range.
func (p *TierPolicy) DetermineTier(order int64) Tier {
	for _, r := range p.ranges {
		if r.UpTo == 0 || order <= r.UpTo {
			return r.Tier
		}
	}
	return p.ranges[len(p.ranges)-1].Tier
}

// IsFree reports whether tier carries no charge and needs no payment setup.
func (p *TierPolicy) IsFree(tier Tier) bool {
	return p.terms[tier].Free
}

// CalculateTrialEnd returns start plus the tier's trial length, or nil
// when the tier has no trial.
func (p *TierPolicy) CalculateTrialEnd(tier Tier, start time.Time) *time.Time {
	days := p.terms[tier].TrialDays
	if days <= 0 {
		return nil
	}
	end := start.AddDate(0, 0, days)
	return &end
}

// TierPricing returns the tier price in minor units. Unknown tiers cost 0.
func (p *TierPolicy) TierPricing(tier Tier) int64 {
	return p.terms[tier].PriceCents
}

// StripePriceID returns the provider price ID of tier, if configured.
func (p *TierPolicy) StripePriceID(tier Tier) *string {
	id := p.terms[tier].StripePriceID
	if id == "" {
		return nil
	}
	return &id
}

// HasActiveAccess decides product access. Unknown statuses are denied.
func (p *TierPolicy) HasActiveAccess(sub *Subscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	if p.IsFree(sub.Tier) {
		return true
	}

	switch sub.Status {
	case SubscriptionActive:
		return true
	case SubscriptionTrialing:
		return sub.TrialEnd == nil || now.Before(*sub.TrialEnd)
	default:
		// past_due, canceled, unpaid, incomplete and unknown statuses
		return false
	}
}

// RequiresPaymentSetup is true for paid subscriptions with no provider
// subscription attached, whatever their status.
func (p *TierPolicy) RequiresPaymentSetup(sub *Subscription) bool {
	if sub == nil {
		return true
	}
	if p.IsFree(sub.Tier) {
		return false
	}
	return sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == ""
}

// DaysRemainingInTrial rounds the time left up to whole days, never below 0.
func DaysRemainingInTrial(trialEnd *time.Time, now time.Time) *int {
	if trialEnd == nil {
		return nil
	}
	days := int(math.Ceil(trialEnd.Sub(now).Hours() / 24))
	days = max(days, 0)
	return &days
}
