package persistence_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/identity/domain"
	"github.com/sledgehq/sledge/internal/identity/infrastructure/persistence"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	_ "github.com/sledgehq/sledge/internal/shared/infrastructure/database/sqlite"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/migrations"
)

func setupUserRepo(t *testing.T) (*persistence.UserRepository, database.Connection) {
	t.Helper()
	ctx := context.Background()
	conn, err := database.Open(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "identity.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = migrations.Run(ctx, conn)
	require.NoError(t, err)
	return persistence.NewUserRepository(conn), conn
}

func createUser(t *testing.T, repo *persistence.UserRepository, address string) *domain.User {
	t.Helper()
	email, err := domain.NewEmail(address)
	require.NoError(t, err)
	user := domain.NewUser(email, "$2a$10$hash", time.Now().UTC())
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo, _ := setupUserRepo(t)
	ctx := context.Background()

	user := createUser(t, repo, "Ada@Example.com")
	assert.Equal(t, int64(1), user.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ada@example.com", byID.Email.String())
	assert.Equal(t, "$2a$10$hash", byID.PasswordHash)

	byEmail, err := repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := repo.FindByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo, _ := setupUserRepo(t)
	createUser(t, repo, "dup@example.com")

	email, _ := domain.NewEmail("DUP@example.com")
	err := repo.Create(context.Background(), domain.NewUser(email, "x", time.Now()))
	assert.ErrorIs(t, err, sharedDomain.ErrConflict)
}

func TestUserRepository_DirectoryQueries(t *testing.T) {
	repo, conn := setupUserRepo(t)
	ctx := context.Background()

	for _, address := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createUser(t, repo, address)
	}
	now := time.Now().UTC()
	_, err := conn.Exec(ctx, `
		INSERT INTO subscriptions (user_id, registration_order, tier, status, created_at, updated_at)
		VALUES (2, 2, 'standard', 'incomplete', ?, ?)`, now, now)
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, 3)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, 4)
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := repo.CountUpTo(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ids, err := repo.ListWithoutSubscription(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	ids, err = repo.ListWithoutSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}
