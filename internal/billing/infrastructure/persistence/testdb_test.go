package persistence_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	_ "github.com/sledgehq/sledge/internal/shared/infrastructure/database/sqlite"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/migrations"
)

func openTestDB(t *testing.T) database.Connection {
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
	return conn
}

func insertUser(t *testing.T, conn database.Connection, id int64) {
	t.Helper()
	_, err := conn.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, fmt.Sprintf("user%d@example.com", id), "x", time.Now().UTC())
	require.NoError(t, err)
}
