package storage

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int `mapstructure:"maxOpenConns"`

	// MaxIdleConns is the maximum number of connections in the idle pool.
	// Default: 2
	MaxIdleConns int `mapstructure:"maxIdleConns"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	// Default: 5 minutes
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	// Default: 1 minute
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
}

// DefaultPoolConfig returns defaults for a short-lived cycle process.
// A cycle runs its stages sequentially, so a handful of connections is
// enough even when several cycles overlap.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// Options converts the config into pool options. Zero fields are skipped so
// they keep their defaults.
func (c PoolConfig) Options() []PoolOption {
	var opts []PoolOption
	if c.MaxOpenConns > 0 {
		opts = append(opts, MaxOpenConns(c.MaxOpenConns))
	}
	if c.MaxIdleConns > 0 {
		opts = append(opts, MaxIdleConns(c.MaxIdleConns))
	}
	if c.ConnMaxLifetime > 0 {
		opts = append(opts, ConnMaxLifetime(c.ConnMaxLifetime))
	}
	if c.ConnMaxIdleTime > 0 {
		opts = append(opts, ConnMaxIdleTime(c.ConnMaxIdleTime))
	}
	return opts
}

// PoolOption configures connection pool settings.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

// MaxOpenConns sets the maximum number of open connections.
func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.MaxOpenConns = n
	})
}

// MaxIdleConns sets the maximum number of idle connections.
// Should be less than or equal to MaxOpenConns.
func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.MaxIdleConns = n
	})
}

// ConnMaxLifetime sets the maximum connection lifetime.
func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.ConnMaxLifetime = d
	})
}

// ConnMaxIdleTime sets the maximum idle time for connections.
func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.ConnMaxIdleTime = d
	})
}

// ConfigurePool applies pool configuration to a GORM database connection.
// Returns an error if the underlying *sql.DB cannot be retrieved.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) error {
	config := DefaultPoolConfig()
	for _, opt := range opts {
		opt.applyPool(&config)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying *sql.DB")
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	return nil
}

// NewGormStorageWithPool creates a new GORM-backed storage with connection pooling configured.
//
// Example:
//
//	storage, err := NewGormStorageWithPool(db,
//	    MaxOpenConns(8),
//	    MaxIdleConns(4),
//	)
func NewGormStorageWithPool(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	if err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return NewGormStorage(db), nil
}

// Open opens the database named by dsn. URLs with a postgres:// or
// postgresql:// scheme and key=value strings naming a host select
// PostgreSQL; anything else is a sqlite path or DSN.
func Open(dsn string, opts ...PoolOption) (*gorm.DB, error) {
	if IsPostgresDSN(dsn) {
		return OpenPostgres(dsn, opts...)
	}
	return OpenSQLite(dsn, opts...)
}

// IsPostgresDSN reports whether dsn addresses a PostgreSQL server.
func IsPostgresDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return true
	}
	return strings.Contains(dsn, "host=") && strings.Contains(dsn, "dbname=")
}

// OpenPostgres opens a PostgreSQL database with gorm logging silenced and
// the pool configured.
func OpenPostgres(dsn string, opts ...PoolOption) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return db, nil
}

// IsMemoryDSN reports whether dsn names an in-memory sqlite database.
func IsMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// OpenSQLite opens a sqlite database with gorm logging silenced and the
// pool configured. An in-memory database exists per connection, so its
// pool is pinned to a single connection.
func OpenSQLite(dsn string, opts ...PoolOption) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage: empty sqlite dsn")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %q", dsn)
	}

	if IsMemoryDSN(dsn) {
		opts = append(opts, MaxOpenConns(1), MaxIdleConns(1), ConnMaxLifetime(0), ConnMaxIdleTime(0))
	}
	if err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return db, nil
}
