package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sledgehq/sledge/internal/billing/domain"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/pkg/observability"
)

const opAssign = "assign subscription"

// UserDirectory is the slice of the user store that assignment needs.
type UserDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	// CountUpTo counts users whose id is at most userID.
	CountUpTo(ctx context.Context, userID int64) (int64, error)
	// ListWithoutSubscription returns up to limit user ids, oldest first.
	ListWithoutSubscription(ctx context.Context, limit int) ([]int64, error)
}

// AssignOptions tunes AssignSubscriptionToUser. A zero RegistrationOrder
// allocates a fresh one.
type AssignOptions struct {
	RegistrationOrder int64
	PromoCode         *string
}

// ReconcileReport lists the outcome of a reconciliation pass.
type ReconcileReport struct {
	Assigned []*domain.Subscription
	Failed   map[int64]error
}

// RegistrationService ties new and existing users to registration orders.
type RegistrationService struct {
	allocator     OrderAllocator
	subscriptions *SubscriptionService
	users         UserDirectory
	logger        *slog.Logger
	metrics       observability.Metrics
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(
	allocator OrderAllocator,
	subscriptions *SubscriptionService,
	users UserDirectory,
	logger *slog.Logger,
	metrics observability.Metrics,
) *RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &RegistrationService{
		allocator:     allocator,
		subscriptions: subscriptions,
		users:         users,
		logger:        logger,
		metrics:       metrics,
	}
}

// AssignSubscriptionToUser gives userID a subscription. Every failure is
// returned as an internal error naming the user; a conflict stays
// detectable with errors.Is.
func (s *RegistrationService) AssignSubscriptionToUser(ctx context.Context, userID int64, opts AssignOptions) (*domain.Subscription, error) {
	order := opts.RegistrationOrder
	if order == 0 {
		next, err := s.allocator.NextRegistrationOrder(ctx)
		if err != nil {
			return nil, s.fail(ctx, userID, err)
		}
		order = next
	}

	sub, err := s.subscriptions.CreateSubscription(ctx, userID, order, opts.PromoCode)
	if err != nil {
		return nil, s.fail(ctx, userID, err)
	}
	return sub, nil
}

// AssignSubscriptionToExistingUser backfills a user registered before
// subscriptions existed. The order is the user's position by id, so the
// counter is not consumed.
func (s *RegistrationService) AssignSubscriptionToExistingUser(ctx context.Context, userID int64) (*domain.Subscription, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, userID, err)
	}
	if !exists {
		return nil, s.fail(ctx, userID, sharedDomain.NotFound("backfill subscription", userID, "user does not exist"))
	}

	order, err := s.users.CountUpTo(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, userID, err)
	}
	return s.AssignSubscriptionToUser(ctx, userID, AssignOptions{RegistrationOrder: order})
}

// ReconcileMissing backfills up to limit users that have no subscription.
// Individual failures are collected and do not stop the pass.
func (s *RegistrationService) ReconcileMissing(ctx context.Context, limit int) (ReconcileReport, error) {
	report := ReconcileReport{Failed: make(map[int64]error)}
	if limit <= 0 {
		return report, sharedDomain.InvalidArgument("reconcile subscriptions", fmt.Sprintf("invalid limit %d", limit))
	}

	userIDs, err := s.users.ListWithoutSubscription(ctx, limit)
	if err != nil {
		return report, sharedDomain.Internal("reconcile subscriptions", 0, err)
	}

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sub, err := s.AssignSubscriptionToExistingUser(ctx, userID)
		if err != nil {
			report.Failed[userID] = err
			continue
		}
		report.Assigned = append(report.Assigned, sub)
	}

	s.logger.InfoContext(ctx, "reconciliation finished",
		"candidates", len(userIDs),
		"assigned", len(report.Assigned),
		"failed", len(report.Failed),
	)
	return report, nil
}

func (s *RegistrationService) fail(ctx context.Context, userID int64, err error) error {
	s.metrics.Counter(observability.MetricAssignmentFailures, 1)
	s.logger.ErrorContext(ctx, "subscription assignment failed", "user_id", userID, observability.ErrorKey, err)
	return sharedDomain.Internal(opAssign, userID, err)
}
