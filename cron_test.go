package cron_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cron "github.com/jdziat/simple-durable-cron"
	"github.com/jdziat/simple-durable-cron/pkg/core"
)

// setupTestStorage creates an in-memory SQLite storage for use in tests.
func setupTestStorage(t *testing.T) *cron.GormStorage {
	t.Helper()
	store, err := cron.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return store
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestFacadeNew_RequiresStorageAndRegistry(t *testing.T) {
	_, err := cron.New(nil, cron.NewRegistry())
	assert.Error(t, err)

	_, err = cron.New(setupTestStorage(t), nil)
	assert.Error(t, err)
}

func TestFacadeNew_DefaultOptions(t *testing.T) {
	svc, err := cron.New(setupTestStorage(t), cron.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, cron.DefaultOptions(), svc.Options())
}

func TestFacadeNew_OptionHelpers(t *testing.T) {
	svc, err := cron.New(setupTestStorage(t), cron.NewRegistry(),
		cron.ScheduleAhead(60),
		cron.ScheduleLifetime(5),
		cron.MaxRunningTime(30),
		cron.SuccessLogLifetime(10),
		cron.FailureLogLifetime(20),
		cron.EmitEvents(true),
	)
	require.NoError(t, err)

	opts := svc.Options()
	assert.Equal(t, 60, opts.ScheduleAhead)
	assert.Equal(t, 5, opts.ScheduleLifetime)
	assert.Equal(t, 30, opts.MaxRunningTime)
	assert.Equal(t, 10, opts.SuccessLogLifetime)
	assert.Equal(t, 20, opts.FailureLogLifetime)
	assert.True(t, opts.EmitEvents)
}

func TestFacadeOpenSQLite_EmptyDSN(t *testing.T) {
	_, err := cron.OpenSQLite("")
	assert.Error(t, err)

	_, err = cron.Open("")
	assert.Error(t, err)
}

func TestFacadeOpen_SQLite(t *testing.T) {
	store, err := cron.Open(":memory:")
	require.NoError(t, err)
	assert.True(t, store.IsSQLite())

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	_ = sqlDB.Close()
}

// ---------------------------------------------------------------------------
// Task descriptors
// ---------------------------------------------------------------------------

func TestFacadeTaskDescriptors(t *testing.T) {
	reg := cron.NewRegistry()

	require.NoError(t, reg.Register("a", "0 20 * * *", cron.RouteTask("cron_a")))
	require.NoError(t, reg.Register("b", "0 0 1 * *", cron.CallbackTask("YourClass", "doAction")))
	require.NoError(t, reg.Register("c", "*/5 * * * *", cron.ExternalTask("/bin/true")))

	for code, kind := range map[string]string{"a": "route", "b": "callback", "c": "external"} {
		def, err := reg.Get(code)
		require.NoError(t, err)
		assert.Equal(t, kind, string(def.Task.Kind()))
	}
}

func TestFacadeErrors(t *testing.T) {
	reg := cron.NewRegistry()
	require.NoError(t, reg.Register("a", "", cron.RouteTask("a")))

	err := reg.Register("a", "", cron.RouteTask("a"))
	assert.True(t, errors.Is(err, cron.ErrAlreadyRegistered))

	err = reg.Register("b", "not cron", cron.RouteTask("b"))
	assert.True(t, errors.Is(err, cron.ErrInvalidFrequency))

	err = reg.Register("c", "", cron.TaskDescriptor{Type: "ftp"})
	assert.True(t, errors.Is(err, cron.ErrInvalidTaskDescriptor))

	_, err = reg.Get("zzz")
	assert.True(t, errors.Is(err, cron.ErrJobNotFound))

	_, err = cron.ParseSchedule("@daily")
	assert.True(t, errors.Is(err, cron.ErrInvalidFrequency))
}

// ---------------------------------------------------------------------------
// End to end
// ---------------------------------------------------------------------------

func TestFacade_FullCycle(t *testing.T) {
	store := setupTestStorage(t)
	clock := core.NewFixedClock(time.Date(2024, 1, 1, 19, 58, 30, 0, time.UTC))

	binder := cron.NewBinder()
	var calls atomic.Int32
	var gotArg string
	require.NoError(t, binder.BindRoute("cron_job1", func(ctx context.Context, arg string) error {
		calls.Add(1)
		gotArg = arg
		return nil
	}))

	reg, err := cron.RegistryFromConfig(map[string]cron.JobConfig{
		"job1": {Frequency: "0 20 * * *", Task: cron.RouteTask("cron_job1"), Args: []any{"first"}},
	}, cron.WithBinder(binder))
	require.NoError(t, err)

	var hooks []cron.Hook
	svc, err := cron.New(store, reg,
		cron.WithClock(clock),
		cron.ScheduleAhead(60),
		cron.WithObserver(func(_ context.Context, e cron.Event) { hooks = append(hooks, e.Hook) }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Run(ctx))

	pending, err := store.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), pending[0].ScheduledAt)
	assert.Equal(t, int32(0), calls.Load(), "not due yet")

	clock.Set(time.Date(2024, 1, 1, 20, 0, 10, 0, time.UTC))
	require.NoError(t, svc.Run(ctx))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "first", gotArg)

	inst, err := store.GetInstance(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, cron.StatusSuccess, inst.Status)
	assert.NotNil(t, inst.FinishedAt)

	assert.Contains(t, hooks, cron.HookRunPre)
	assert.Contains(t, hooks, cron.HookProcessJobPost)
	assert.Equal(t, cron.HookRunPost, hooks[len(hooks)-1])
}

func TestFacade_Trigger(t *testing.T) {
	store := setupTestStorage(t)
	reg := cron.NewRegistry()
	require.NoError(t, reg.Register("manual", "", cron.RouteTask("manual")))

	clock := core.NewFixedClock(time.Date(2024, 1, 1, 9, 30, 45, 0, time.UTC))
	svc, err := cron.New(store, reg, cron.WithClock(clock))
	require.NoError(t, err)

	inst, err := svc.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, cron.StatusPending, inst.Status)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), inst.ScheduledAt)

	_, err = svc.Trigger(context.Background(), "manual")
	assert.True(t, errors.Is(err, cron.ErrDuplicateInstance))
}
