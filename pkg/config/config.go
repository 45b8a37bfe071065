// Package config loads the cronhelper configuration with viper.
//
// Configuration lives under the cron_helper key of a yaml, toml or json
// file. Every value can be overridden from the environment with the
// CRONHELPER_ prefix and dots replaced by underscores, for example
// CRONHELPER_CRON_HELPER_OPTIONS_SCHEDULEAHEAD. The database DSN and the
// API token also have the short forms CRONHELPER_DB_DSN and
// CRONHELPER_API_HASH.
//
// Viper folds key case, so job codes are read in lower case.
package config

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-cron/pkg/logging"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
	"github.com/jdziat/simple-durable-cron/pkg/service"
	"github.com/jdziat/simple-durable-cron/pkg/storage"
)

// RootKey is the top-level configuration key.
const RootKey = "cron_helper"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CRONHELPER"

// Config is the complete cronhelper configuration.
type Config struct {
	DB      DBConfig                      `mapstructure:"db"`
	Options service.Options               `mapstructure:"options"`
	Log     LogConfig                     `mapstructure:"log"`
	API     APIConfig                     `mapstructure:"api"`
	Jobs    map[string]registry.JobConfig `mapstructure:"jobs"`
}

// DBConfig selects the database and its pool. A postgres:// URL selects
// PostgreSQL; any other DSN is a sqlite path.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	storage.PoolConfig `mapstructure:",squash"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// APIConfig configures the status API listener.
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}

type document struct {
	CronHelper Config `mapstructure:"cron_helper"`
}

// SetDefaults registers the default value of every option.
func SetDefaults(v *viper.Viper) {
	d := service.DefaultOptions()
	p := storage.DefaultPoolConfig()

	v.SetDefault(RootKey+".db.dsn", "cronhelper.db")
	v.SetDefault(RootKey+".db.maxOpenConns", p.MaxOpenConns)
	v.SetDefault(RootKey+".db.maxIdleConns", p.MaxIdleConns)
	v.SetDefault(RootKey+".db.connMaxLifetime", p.ConnMaxLifetime)
	v.SetDefault(RootKey+".db.connMaxIdleTime", p.ConnMaxIdleTime)

	v.SetDefault(RootKey+".options.scheduleAhead", d.ScheduleAhead)
	v.SetDefault(RootKey+".options.scheduleLifetime", d.ScheduleLifetime)
	v.SetDefault(RootKey+".options.maxRunningTime", d.MaxRunningTime)
	v.SetDefault(RootKey+".options.successLogLifetime", d.SuccessLogLifetime)
	v.SetDefault(RootKey+".options.failureLogLifetime", d.FailureLogLifetime)
	v.SetDefault(RootKey+".options.emitEvents", d.EmitEvents)
	v.SetDefault(RootKey+".options.allowJsonApi", d.AllowJSONAPI)
	v.SetDefault(RootKey+".options.jsonApiSecurityHash", d.JSONAPISecurityHash)

	v.SetDefault(RootKey+".log.level", "info")
	v.SetDefault(RootKey+".log.json", false)

	v.SetDefault(RootKey+".api.listen", ":8089")
}

// newViper returns a viper instance with defaults and environment binding.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(RootKey+".db.dsn", EnvPrefix+"_DB_DSN")
	_ = v.BindEnv(RootKey+".options.jsonApiSecurityHash", EnvPrefix+"_API_HASH")

	SetDefaults(v)
	return v
}

// Load reads the configuration. With an empty path it looks for a
// cronhelper.{yaml,toml,json} in the working directory and in
// /etc/cronhelper, falling back to defaults when none exists.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cronhelper")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/cronhelper")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	return decode(v)
}

// LoadReader reads the configuration from r in the given format
// ("yaml", "toml" or "json").
func LoadReader(r io.Reader, format string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrapf(err, "read %s config", format)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg := &doc.CronHelper
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Job definitions are validated when
// the registry is built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.DSN) == "" {
		return errors.New("db.dsn cannot be empty")
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		return errors.New("db pool sizes must be >= 0")
	}
	if err := c.Options.Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// Logger builds the configured logger.
func (c *Config) Logger() (*zap.SugaredLogger, error) {
	return logging.New(c.Log.Level, c.Log.JSON)
}

// OpenStorage opens the configured database.
func (c *Config) OpenStorage() (*storage.GormStorage, error) {
	db, err := storage.Open(c.DB.DSN, c.DB.PoolConfig.Options()...)
	if err != nil {
		return nil, err
	}
	return storage.NewGormStorage(db), nil
}

// Registry builds the job registry from the jobs section.
func (c *Config) Registry(opts ...registry.Option) (*registry.Registry, error) {
	return registry.FromConfig(c.Jobs, opts...)
}
