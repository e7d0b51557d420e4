package application_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/billing/application"
	"github.com/sledgehq/sledge/internal/billing/domain"
	"github.com/sledgehq/sledge/internal/billing/infrastructure/persistence"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	_ "github.com/sledgehq/sledge/internal/shared/infrastructure/database/sqlite"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/migrations"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/outbox"
	"github.com/sledgehq/sledge/pkg/observability"
)

type harness struct {
	conn         database.Connection
	outbox       *outbox.SQLRepository
	metrics      *observability.InMemoryMetrics
	allocator    *application.Allocator
	subs         *application.SubscriptionService
	registration *application.RegistrationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	conn, err := database.Open(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "billing.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_, err = migrations.Run(ctx, conn)
	require.NoError(t, err)

	policy, err := domain.NewDefaultTierPolicy(0, domain.StandardTerms("price_std"))
	require.NoError(t, err)

	metrics := observability.NewInMemoryMetrics()
	outboxRepo := outbox.NewSQLRepository(conn)
	allocator := application.NewAllocator(persistence.NewCounterRepository(conn), nil, metrics)
	subs := application.NewSubscriptionService(
		persistence.NewSubscriptionRepository(conn),
		outboxRepo,
		database.NewUnitOfWork(conn),
		policy, nil, metrics,
	)

	return &harness{
		conn:         conn,
		outbox:       outboxRepo,
		metrics:      metrics,
		allocator:    allocator,
		subs:         subs,
		registration: application.NewRegistrationService(allocator, subs, sqlUsers{conn: conn}, nil, metrics),
	}
}

func (h *harness) addUsers(t *testing.T, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := h.conn.Exec(context.Background(),
			`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			id, fmt.Sprintf("user%d@example.com", id), "x", time.Now().UTC())
		require.NoError(t, err)
	}
}

func (h *harness) routingKeys(t *testing.T) []string {
	t.Helper()
	msgs, err := h.outbox.GetUnpublished(context.Background(), 100)
	require.NoError(t, err)
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		keys = append(keys, m.RoutingKey)
	}
	return keys
}

// sqlUsers reads the users table directly.
type sqlUsers struct {
	conn database.Connection
}

func (u sqlUsers) Exists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := u.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&n)
	return n > 0, err
}

func (u sqlUsers) CountUpTo(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := u.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE id <= ?`, userID).Scan(&n)
	return n, err
}

func (u sqlUsers) ListWithoutSubscription(ctx context.Context, limit int) ([]int64, error) {
	rows, err := u.conn.Query(ctx, `
		SELECT u.id FROM users u
		LEFT JOIN subscriptions s ON s.user_id = u.id
		WHERE s.id IS NULL ORDER BY u.id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
