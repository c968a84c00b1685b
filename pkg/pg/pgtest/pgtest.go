// Package pgtest provides a migrated Postgres pool for integration tests.
// Tests are skipped unless TEST_PG_CONN_URL is set.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wealthcrm/migrations"
	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/pg"
)

const EnvConnURL = "TEST_PG_CONN_URL"

// Pool connects, applies migrations and truncates the given tables.
// The pool is closed when the test finishes.
func Pool(t *testing.T, truncate ...string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvConnURL)
	if dsn == "" {
		t.Skipf("%s not set, skipping postgres integration test", EnvConnURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := pg.Config{
		ConnectionString: dsn,
		MaxOpenConns:     10,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		RetryInterval:    time.Second,
		MigrationsTable:  "notification_schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, migrations.FS, logger.Discard()))

	for _, table := range truncate {
		_, err := pool.Exec(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err)
	}
	return pool
}
