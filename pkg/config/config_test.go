package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-cron/pkg/service"
	"github.com/jdziat/simple-durable-cron/pkg/task"
)

const sampleYAML = `
cron_helper:
  db:
    dsn: ":memory:"
    maxOpenConns: 2
    connMaxLifetime: 90s
  options:
    scheduleAhead: 60
    scheduleLifetime: 5
    maxRunningTime: 30
    emitEvents: true
  log:
    level: debug
  jobs:
    job1:
      frequency: "0 20 * * *"
      task:
        type: route
        options:
          routeName: cron_job1
      args: [first]
    job2:
      frequency: "0 0 1 * *"
      task:
        type: callback
        options:
          className: YourClass
          methodName: doAction
    job3:
      frequency: "*/5 * * * *"
      task:
        type: external
        options:
          command: /var/www/renbo/bin/export_dump.sh
`

func TestLoadReader_YAML(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader(sampleYAML), "yaml")
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DB.DSN)
	assert.Equal(t, 2, cfg.DB.MaxOpenConns)
	assert.Equal(t, 90*time.Second, cfg.DB.ConnMaxLifetime)

	assert.Equal(t, 60, cfg.Options.ScheduleAhead)
	assert.Equal(t, 5, cfg.Options.ScheduleLifetime)
	assert.Equal(t, 30, cfg.Options.MaxRunningTime)
	assert.Equal(t, 1440, cfg.Options.SuccessLogLifetime, "defaults fill unset options")
	assert.Equal(t, 2880, cfg.Options.FailureLogLifetime)
	assert.True(t, cfg.Options.EmitEvents)
	assert.False(t, cfg.Options.AllowJSONAPI)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":8089", cfg.API.Listen)

	require.Len(t, cfg.Jobs, 3)
	assert.Equal(t, "0 20 * * *", cfg.Jobs["job1"].Frequency)
	assert.Equal(t, "route", cfg.Jobs["job1"].Task.Type)
	assert.Len(t, cfg.Jobs["job1"].Args, 1)
}

func TestConfig_Registry(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader(sampleYAML), "yaml")
	require.NoError(t, err)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Count())

	job2, err := reg.Get("job2")
	require.NoError(t, err)
	cb, ok := job2.Task.(*task.Callback)
	require.True(t, ok)
	assert.Equal(t, "YourClass", cb.ClassName(), "option keys survive viper's case folding")
	assert.Equal(t, "doAction", cb.MethodName())
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "cronhelper.db", cfg.DB.DSN)
	assert.Equal(t, service.DefaultOptions(), cfg.Options)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Jobs)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cron.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Jobs, 3)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cron.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	t.Setenv("CRONHELPER_DB_DSN", "override.db")
	t.Setenv("CRONHELPER_CRON_HELPER_OPTIONS_SCHEDULEAHEAD", "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override.db", cfg.DB.DSN)
	assert.Equal(t, 15, cfg.Options.ScheduleAhead)
}

func TestLoadReader_TOML(t *testing.T) {
	doc := `
[cron_helper.options]
scheduleAhead = 120
allowJsonApi = true
jsonApiSecurityHash = "s3cret"

[cron_helper.jobs.nightly]
frequency = "30 2 * * *"
args = ["full"]

[cron_helper.jobs.nightly.task]
type = "route"

[cron_helper.jobs.nightly.task.options]
routeName = "nightly"
`
	cfg, err := LoadReader(strings.NewReader(doc), "toml")
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Options.ScheduleAhead)
	assert.True(t, cfg.Options.AllowJSONAPI)
	assert.Equal(t, "s3cret", cfg.Options.JSONAPISecurityHash)
	assert.Equal(t, "30 2 * * *", cfg.Jobs["nightly"].Frequency)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"negative option": "cron_helper:\n  options:\n    scheduleLifetime: -1\n",
		"api without hash": "cron_helper:\n  options:\n    allowJsonApi: true\n",
		"empty dsn":        "cron_helper:\n  db:\n    dsn: \"\"\n",
		"bad log level":    "cron_helper:\n  log:\n    level: loud\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(doc), "yaml")
			assert.Error(t, err)
		})
	}
}

func TestConfig_OpenStorage(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader(sampleYAML), "yaml")
	require.NoError(t, err)

	s, err := cfg.OpenStorage()
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections, "in-memory databases use one connection")
}

func TestConfig_Logger(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader(sampleYAML), "yaml")
	require.NoError(t, err)

	l, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, l)
}
