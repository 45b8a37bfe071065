package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()

	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 1*time.Minute, cfg.ConnMaxIdleTime)
}

func TestPoolOptions(t *testing.T) {
	cfg := PoolConfig{}

	MaxOpenConns(50).applyPool(&cfg)
	assert.Equal(t, 50, cfg.MaxOpenConns)

	MaxIdleConns(20).applyPool(&cfg)
	assert.Equal(t, 20, cfg.MaxIdleConns)

	ConnMaxLifetime(10 * time.Minute).applyPool(&cfg)
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxLifetime)

	ConnMaxIdleTime(2 * time.Minute).applyPool(&cfg)
	assert.Equal(t, 2*time.Minute, cfg.ConnMaxIdleTime)
}

func TestPoolConfig_OptionsSkipsZeroFields(t *testing.T) {
	opts := PoolConfig{MaxOpenConns: 7, ConnMaxIdleTime: time.Second}.Options()
	require.Len(t, opts, 2)

	cfg := DefaultPoolConfig()
	for _, o := range opts {
		o.applyPool(&cfg)
	}
	assert.Equal(t, 7, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, time.Second, cfg.ConnMaxIdleTime)
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = ConfigurePool(db,
		MaxOpenConns(30),
		MaxIdleConns(15),
		ConnMaxLifetime(7*time.Minute),
		ConnMaxIdleTime(90*time.Second),
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	stats := sqlDB.Stats()
	assert.Equal(t, 30, stats.MaxOpenConnections)
	// MaxIdleConns and timeouts aren't exposed via Stats()
}

func TestConfigurePool_DefaultValues(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, ConfigurePool(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
}

func TestNewGormStorageWithPool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	storage, err := NewGormStorageWithPool(db,
		MaxOpenConns(8),
		MaxIdleConns(4),
	)
	require.NoError(t, err)
	require.NotNil(t, storage)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 8, sqlDB.Stats().MaxOpenConnections)
}

func TestOpenSQLite_MemoryIsPinned(t *testing.T) {
	db, err := OpenSQLite(":memory:", MaxOpenConns(10))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpenSQLite_File(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cron.db")
	db, err := OpenSQLite(dsn, MaxOpenConns(3))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
	assert.True(t, NewGormStorage(db).IsSQLite())
}

func TestOpenSQLite_EmptyDSN(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestIsMemoryDSN(t *testing.T) {
	assert.True(t, IsMemoryDSN(":memory:"))
	assert.True(t, IsMemoryDSN("file:test?mode=memory&cache=shared"))
	assert.False(t, IsMemoryDSN("cron.db"))
}
