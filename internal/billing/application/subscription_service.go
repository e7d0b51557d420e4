package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sledgehq/sledge/internal/billing/domain"
	sharedApplication "github.com/sledgehq/sledge/internal/shared/application"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/outbox"
	"github.com/sledgehq/sledge/pkg/observability"
)

// SubscriptionService owns the subscription lifecycle. Every write runs in
// a unit of work together with its outbox messages.
type SubscriptionService struct {
	subscriptions domain.SubscriptionRepository
	outboxRepo    outbox.Repository
	uow           sharedApplication.UnitOfWork
	policy        *domain.TierPolicy
	logger        *slog.Logger
	metrics       observability.Metrics
	now           func() time.Time
}

// NewSubscriptionService creates a SubscriptionService. outboxRepo, uow,
// logger and metrics may be nil.
func NewSubscriptionService(
	subscriptions domain.SubscriptionRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	policy *domain.TierPolicy,
	logger *slog.Logger,
	metrics observability.Metrics,
) *SubscriptionService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &SubscriptionService{
		subscriptions: subscriptions,
		outboxRepo:    outboxRepo,
		uow:           uow,
		policy:        policy,
		logger:        logger,
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Policy returns the tier policy the service assigns with.
func (s *SubscriptionService) Policy() *domain.TierPolicy {
	return s.policy
}

// CreateSubscription creates the user's subscription for order. It is
// idempotent per user: an existing subscription is returned unchanged.
// An order already held by another user is a conflict and is not retried.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, userID, order int64, promoCode *string) (*domain.Subscription, error) {
	const op = "create subscription"
	if userID < 1 {
		return nil, sharedDomain.InvalidArgument(op, fmt.Sprintf("invalid user id %d", userID))
	}
	if order < 1 {
		return nil, sharedDomain.InvalidArgument(op, fmt.Sprintf("invalid registration order %d", order))
	}

	return sharedApplication.WithUnitOfWorkResult(ctx, s.uow, func(txCtx context.Context) (*domain.Subscription, error) {
		existing, err := s.subscriptions.FindByUserID(txCtx, userID)
		if err != nil {
			return nil, sharedDomain.Internal(op, userID, err)
		}
		if existing != nil {
			s.logger.DebugContext(ctx, "subscription already exists", "user_id", userID, "subscription_id", existing.ID)
			return existing, nil
		}

		taken, err := s.subscriptions.FindByRegistrationOrder(txCtx, order)
		if err != nil {
			return nil, sharedDomain.Internal(op, userID, err)
		}
		if taken != nil {
			s.metrics.Counter(observability.MetricSubscriptionConflicts, 1)
			return nil, sharedDomain.Conflict(op, userID, fmt.Sprintf(
				"registration order %d already assigned to user %d: race condition or data inconsistency", order, taken.UserID))
		}

		sub := domain.NewSubscription(s.policy, userID, order, promoCode, s.now())
		if err := s.subscriptions.Create(txCtx, sub); err != nil {
			if errors.Is(err, sharedDomain.ErrConflict) {
				s.metrics.Counter(observability.MetricSubscriptionConflicts, 1)
			}
			return nil, classify(op, userID, err)
		}
		sub.RecordCreated()
		if err := s.saveEvents(txCtx, userID, sub); err != nil {
			return nil, err
		}

		s.metrics.Counter(observability.MetricSubscriptionsCreated, 1, observability.T("tier", string(sub.Tier)))
		s.logger.InfoContext(ctx, "subscription created",
			"user_id", userID,
			"subscription_id", sub.ID,
			"registration_order", order,
			"tier", sub.Tier,
			"status", sub.Status,
		)
		return sub, nil
	})
}

// StartTrialPeriod moves an incomplete paid subscription into its trial.
// Any other subscription is returned unchanged.
func (s *SubscriptionService) StartTrialPeriod(ctx context.Context, userID int64) (*domain.Subscription, error) {
	const op = "start trial"
	return sharedApplication.WithUnitOfWorkResult(ctx, s.uow, func(txCtx context.Context) (*domain.Subscription, error) {
		sub, err := s.subscriptions.FindByUserID(txCtx, userID)
		if err != nil {
			return nil, sharedDomain.Internal(op, userID, err)
		}
		if sub == nil {
			return nil, sharedDomain.NotFound(op, userID, "user has no subscription")
		}
		if !sub.StartTrial(s.policy, s.now()) {
			return sub, nil
		}

		if err := s.subscriptions.Update(txCtx, sub); err != nil {
			return nil, classify(op, userID, err)
		}
		if err := s.saveEvents(txCtx, userID, sub); err != nil {
			return nil, err
		}

		s.metrics.Counter(observability.MetricTrialsStarted, 1, observability.T("tier", string(sub.Tier)))
		s.logger.InfoContext(ctx, "trial started", "user_id", userID, "subscription_id", sub.ID, "trial_end", sub.TrialEnd)
		return sub, nil
	})
}

func (s *SubscriptionService) GetSubscriptionByUserID(ctx context.Context, userID int64) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, classify("get subscription", userID, err)
	}
	return sub, nil
}

func (s *SubscriptionService) GetSubscriptionByStripeCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		return nil, classify("get subscription", 0, err)
	}
	return sub, nil
}

func (s *SubscriptionService) GetSubscriptionByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, classify("get subscription", 0, err)
	}
	return sub, nil
}

// UpdateSubscriptionStatus applies a provider update addressed by the
// provider's subscription ID. status overrides patch.Status.
func (s *SubscriptionService) UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, status domain.SubscriptionStatus, patch domain.SubscriptionPatch) (*domain.Subscription, error) {
	const op = "update subscription status"
	patch.Status = &status
	return s.update(ctx, op, patch, func(txCtx context.Context) (*domain.Subscription, error) {
		sub, err := s.subscriptions.FindByStripeSubscriptionID(txCtx, stripeSubscriptionID)
		if err != nil {
			return nil, sharedDomain.Internal(op, 0, err)
		}
		if sub == nil {
			return nil, sharedDomain.NotFound(op, 0, fmt.Sprintf("no subscription with provider id %q", stripeSubscriptionID))
		}
		return sub, nil
	})
}

// UpdateSubscriptionByUserID applies patch to the user's subscription.
// Concurrent updates are last write wins.
func (s *SubscriptionService) UpdateSubscriptionByUserID(ctx context.Context, userID int64, patch domain.SubscriptionPatch) (*domain.Subscription, error) {
	const op = "update subscription"
	return s.update(ctx, op, patch, func(txCtx context.Context) (*domain.Subscription, error) {
		sub, err := s.subscriptions.FindByUserID(txCtx, userID)
		if err != nil {
			return nil, sharedDomain.Internal(op, userID, err)
		}
		if sub == nil {
			return nil, sharedDomain.NotFound(op, userID, "user has no subscription")
		}
		return sub, nil
	})
}

func (s *SubscriptionService) update(
	ctx context.Context,
	op string,
	patch domain.SubscriptionPatch,
	load func(context.Context) (*domain.Subscription, error),
) (*domain.Subscription, error) {
	if err := patch.Validate(); err != nil {
		return nil, sharedDomain.InvalidArgument(op, fmt.Sprintf("%v %q", err, *patch.Status))
	}

	return sharedApplication.WithUnitOfWorkResult(ctx, s.uow, func(txCtx context.Context) (*domain.Subscription, error) {
		sub, err := load(txCtx)
		if err != nil {
			return nil, err
		}

		from := sub.Status
		statusChanged := sub.Apply(patch, s.now())
		if err := s.subscriptions.Update(txCtx, sub); err != nil {
			return nil, classify(op, sub.UserID, err)
		}
		if err := s.saveEvents(txCtx, sub.UserID, sub); err != nil {
			return nil, err
		}

		if statusChanged {
			s.metrics.Counter(observability.MetricStatusChanges, 1, observability.T("to", string(sub.Status)))
			s.logger.InfoContext(ctx, "subscription status changed",
				"user_id", sub.UserID, "subscription_id", sub.ID, "from", from, "to", sub.Status)
		}
		return sub, nil
	})
}

func (s *SubscriptionService) saveEvents(ctx context.Context, userID int64, sub *domain.Subscription) error {
	events := sub.PullDomainEvents()
	if s.outboxRepo == nil || len(events) == 0 {
		return nil
	}

	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, userID))
	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return sharedDomain.Internal("record subscription events", userID, err)
	}
	if err := s.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return sharedDomain.Internal("record subscription events", userID, err)
	}
	return nil
}

// classify leaves already classified errors alone and marks the rest
// internal.
func classify(op string, userID int64, err error) error {
	var classified *sharedDomain.Error
	if errors.As(err, &classified) {
		return err
	}
	return sharedDomain.Internal(op, userID, err)
}
