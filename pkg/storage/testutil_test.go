package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-cron/pkg/core"
)

// newTestStorage creates a migrated storage for each test.
// When TEST_DATABASE_URL is set it connects to PostgreSQL and empties the
// instance table before and after the test; otherwise it opens a fresh
// in-memory SQLite database whose pool is pinned to one connection.
func newTestStorage(t *testing.T) *GormStorage {
	t.Helper()
	ctx := context.Background()

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db, err := OpenPostgres(dsn, MaxOpenConns(4), MaxIdleConns(1))
		require.NoError(t, err, "open postgres test db")

		s := NewGormStorage(db)
		require.NoError(t, s.Migrate(ctx), "migrate schema")
		_, err = s.Clear(ctx)
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = s.Clear(ctx)
			_ = sqlDB.Close()
		})
		return s
	}

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err, "open in-memory sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewGormStorage(db)
	require.NoError(t, s.Migrate(ctx), "migrate schema")
	return s
}

// skipIfNotPostgres skips the test when TEST_DATABASE_URL is not set.
func skipIfNotPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL-specific test")
	}
}

// baseTime is a fixed minute used across tests.
var baseTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// newTestInstance builds a pending instance for code at baseTime+offset.
func newTestInstance(code string, offset time.Duration) *core.JobInstance {
	return &core.JobInstance{
		Code:        code,
		Status:      core.StatusPending,
		CreatedAt:   baseTime,
		ScheduledAt: baseTime.Add(offset),
	}
}

// insert saves inst and fails the test on error.
func insert(t *testing.T, s *GormStorage, inst *core.JobInstance) *core.JobInstance {
	t.Helper()
	require.NoError(t, s.Save(context.Background(), inst))
	require.NotEmpty(t, inst.ID)
	return inst
}
