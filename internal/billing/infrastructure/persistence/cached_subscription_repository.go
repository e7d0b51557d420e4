package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sledgehq/sledge/internal/billing/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	"github.com/sledgehq/sledge/pkg/observability"
)

const (
	subscriptionKeyPrefix = "sledge:subscription:user:"

	// DefaultSubscriptionCacheTTL bounds how stale a cached row can get
	// when a read that started before a commit fills the cache after it.
	DefaultSubscriptionCacheTTL = 5 * time.Minute
)

// CachedSubscriptionRepository is a read-through Redis cache in front of
// FindByUserID. Redis failures are logged and fall through to next.
// Writes inside a transaction invalidate the entry once it commits.
type CachedSubscriptionRepository struct {
	next    domain.SubscriptionRepository
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewCachedSubscriptionRepository wraps next with a cache on client.
func NewCachedSubscriptionRepository(
	next domain.SubscriptionRepository,
	client *redis.Client,
	ttl time.Duration,
	logger *slog.Logger,
	metrics observability.Metrics,
) *CachedSubscriptionRepository {
	if ttl <= 0 {
		ttl = DefaultSubscriptionCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CachedSubscriptionRepository{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func subscriptionKey(userID int64) string {
	return subscriptionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *CachedSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	if err := r.next.Create(ctx, sub); err != nil {
		return err
	}
	r.invalidateAfterCommit(ctx, sub.UserID)
	return nil
}

func (r *CachedSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	if err := r.next.Update(ctx, sub); err != nil {
		return err
	}
	r.invalidateAfterCommit(ctx, sub.UserID)
	return nil
}

// FindByUserID serves from the cache outside transactions. Reads inside a
// transaction may see uncommitted rows, so they neither use nor fill it.
func (r *CachedSubscriptionRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Subscription, error) {
	if _, inTx := database.TxInfoFromContext(ctx); inTx {
		return r.next.FindByUserID(ctx, userID)
	}

	key := subscriptionKey(userID)
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var sub domain.Subscription
		if jsonErr := json.Unmarshal(data, &sub); jsonErr == nil {
			r.metrics.Counter(observability.MetricSubscriptionCacheHits, 1)
			return &sub, nil
		}
		r.logger.Warn("discarding undecodable cached subscription", "key", key)
		r.invalidate(ctx, userID)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("subscription cache read failed", "key", key, observability.ErrorKey, err)
	}
	r.metrics.Counter(observability.MetricSubscriptionCacheMisses, 1)

	sub, err := r.next.FindByUserID(ctx, userID)
	if err != nil || sub == nil {
		return sub, err
	}

	if data, err := json.Marshal(sub); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("subscription cache write failed", "key", key, observability.ErrorKey, err)
		}
	}
	return sub, nil
}

func (r *CachedSubscriptionRepository) FindByRegistrationOrder(ctx context.Context, order int64) (*domain.Subscription, error) {
	return r.next.FindByRegistrationOrder(ctx, order)
}

func (r *CachedSubscriptionRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return r.next.FindByStripeCustomerID(ctx, customerID)
}

func (r *CachedSubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	return r.next.FindByStripeSubscriptionID(ctx, subscriptionID)
}

func (r *CachedSubscriptionRepository) invalidateAfterCommit(ctx context.Context, userID int64) {
	database.AfterCommit(ctx, func(ctx context.Context) {
		r.invalidate(ctx, userID)
	})
}

func (r *CachedSubscriptionRepository) invalidate(ctx context.Context, userID int64) {
	if err := r.client.Del(ctx, subscriptionKey(userID)).Err(); err != nil {
		r.logger.Warn("subscription cache invalidation failed", "user_id", userID, observability.ErrorKey, err)
	}
}
