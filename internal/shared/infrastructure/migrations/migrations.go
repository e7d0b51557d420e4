package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

const versionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Files lists the embedded .up.sql migrations for a driver in apply order.
func Files(driver database.Driver) ([]string, error) {
	entries, err := fs.ReadDir(files, driver.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations for %s: %w", driver, err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Run applies pending migrations through an open connection and returns
// the versions it applied.
func Run(ctx context.Context, conn database.Connection) ([]string, error) {
	return apply(ctx, conn.Driver(), conn)
}

// RunPostgres applies the PostgreSQL migrations over a short-lived
// database/sql connection using lib/pq, so DDL never shares the pgx pool.
func RunPostgres(ctx context.Context, url string) ([]string, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres for migrations: %w", err)
	}
	defer db.Close()

	return apply(ctx, database.DriverPostgres, sqlxExecutor{db: db})
}

func apply(ctx context.Context, driver database.Driver, exec database.Executor) ([]string, error) {
	names, err := Files(driver)
	if err != nil {
		return nil, err
	}

	if _, err := exec.Exec(ctx, versionTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []string
	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")

		var found string
		err := exec.QueryRow(ctx, `SELECT version FROM schema_migrations WHERE version = ?`, version).Scan(&found)
		if err == nil {
			continue
		}
		if !database.IsNoRows(err) {
			return applied, fmt.Errorf("failed to check migration %s: %w", version, err)
		}

		script, err := files.ReadFile(driver.String() + "/" + name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := exec.Exec(ctx, string(script)); err != nil {
			return applied, fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := exec.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		applied = append(applied, version)
	}
	return applied, nil
}

// sqlxExecutor adapts a lib/pq sqlx.DB to database.Executor, rebinding
// ? placeholders for the driver.
type sqlxExecutor struct {
	db *sqlx.DB
}

func (e sqlxExecutor) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return e.db.ExecContext(ctx, e.db.Rebind(query), args...)
}

func (e sqlxExecutor) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return e.db.QueryRowContext(ctx, e.db.Rebind(query), args...)
}

func (e sqlxExecutor) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return e.db.QueryContext(ctx, e.db.Rebind(query), args...)
}
