package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	billingApp "github.com/sledgehq/sledge/internal/billing/application"
	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
	billingPersistence "github.com/sledgehq/sledge/internal/billing/infrastructure/persistence"
	identityApp "github.com/sledgehq/sledge/internal/identity/application"
	identityPersistence "github.com/sledgehq/sledge/internal/identity/infrastructure/persistence"
	sharedApplication "github.com/sledgehq/sledge/internal/shared/application"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	_ "github.com/sledgehq/sledge/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/sledgehq/sledge/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/sledgehq/sledge/internal/shared/infrastructure/eventbus"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/migrations"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/outbox"
	"github.com/sledgehq/sledge/pkg/config"
	"github.com/sledgehq/sledge/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	// Database
	DB       database.Connection
	DBDriver database.Driver

	// Redis, nil when the cache is disabled or unreachable in development.
	RedisClient *redis.Client

	// Repositories
	CounterRepo      billingDomain.RegistrationCounterRepository
	SubscriptionRepo billingDomain.SubscriptionRepository
	UserRepo         *identityPersistence.UserRepository
	OutboxRepo       outbox.Repository
	UnitOfWork       sharedApplication.UnitOfWork

	// Services
	TierPolicy          *billingDomain.TierPolicy
	Allocator           *billingApp.Allocator
	SubscriptionService *billingApp.SubscriptionService
	RegistrationService *billingApp.RegistrationService
	IdentityService     *identityApp.Service
}

// NewContainer connects to the configured database and wires all services.
// SQLite databases are migrated on open.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics observability.Metrics) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	policy, err := cfg.TierPolicy()
	if err != nil {
		return nil, fmt.Errorf("tier policy: %w", err)
	}

	conn, err := database.Open(ctx, cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to database", "driver", conn.Driver())

	if conn.Driver() == database.DriverSQLite {
		applied, err := migrations.Run(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", "count", len(applied))
		}
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Health:     observability.NewHealthRegistry(),
		DB:         conn,
		DBDriver:   conn.Driver(),
		TierPolicy: policy,
	}
	c.Health.Register("database", observability.PingChecker("database", true, conn.Ping))

	if err := c.connectRedis(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.UnitOfWork = database.NewUnitOfWork(conn)
	c.OutboxRepo = outbox.NewSQLRepository(conn)
	c.CounterRepo = billingPersistence.NewCounterRepository(conn)
	c.UserRepo = identityPersistence.NewUserRepository(conn)

	var subscriptions billingDomain.SubscriptionRepository = billingPersistence.NewSubscriptionRepository(conn)
	if c.RedisClient != nil {
		subscriptions = billingPersistence.NewCachedSubscriptionRepository(
			subscriptions, c.RedisClient, cfg.SubscriptionCacheTTL, logger, metrics)
	}
	c.SubscriptionRepo = subscriptions

	c.Allocator = billingApp.NewAllocator(c.CounterRepo, logger, metrics)
	c.SubscriptionService = billingApp.NewSubscriptionService(
		c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, policy, logger, metrics)
	c.RegistrationService = billingApp.NewRegistrationService(
		c.Allocator, c.SubscriptionService, c.UserRepo, logger, metrics)
	c.IdentityService = identityApp.NewService(
		c.UserRepo, c.RegistrationService, c.OutboxRepo, c.UnitOfWork, logger)

	return c, nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, subscription cache disabled", observability.ErrorKey, err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, subscription cache disabled", observability.ErrorKey, err)
		return nil
	}

	c.RedisClient = client
	c.Health.Register("redis", observability.PingChecker("redis", false, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	c.Logger.Info("connected to Redis")
	return nil
}

// NewPublisher connects to RabbitMQ behind a circuit breaker. Development
// falls back to a publisher that only logs.
func (c *Container) NewPublisher() (eventbus.Publisher, error) {
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		if c.Config.IsDevelopment() {
			c.Logger.Warn("RabbitMQ not available, using noop publisher", observability.ErrorKey, err)
			return eventbus.NewNoopPublisher(c.Logger), nil
		}
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return eventbus.NewBreakerPublisher(publisher, eventbus.DefaultBreakerConfig(), c.Logger), nil
}

// NewOutboxProcessor builds the outbox worker loop around publisher.
func (c *Container) NewOutboxProcessor(publisher eventbus.Publisher) *outbox.Processor {
	cfg := outbox.DefaultProcessorConfig()
	if c.Config.OutboxPollInterval > 0 {
		cfg.PollInterval = c.Config.OutboxPollInterval
	}
	if c.Config.OutboxBatchSize > 0 {
		cfg.BatchSize = c.Config.OutboxBatchSize
	}
	if c.Config.OutboxMaxRetries > 0 {
		cfg.MaxRetries = c.Config.OutboxMaxRetries
	}
	return outbox.NewProcessor(c.OutboxRepo, publisher, cfg, c.Logger, c.Metrics)
}

// Close releases all connections.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Error("failed to close Redis", observability.ErrorKey, err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Error("failed to close database", observability.ErrorKey, err)
		}
	}
}
