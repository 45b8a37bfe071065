package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
	"github.com/jdziat/simple-durable-cron/pkg/storage"
	"github.com/jdziat/simple-durable-cron/pkg/task"
)

// at builds a UTC time on 2024-01-01.
func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

// newTestStorage opens a migrated in-memory sqlite storage.
func newTestStorage(t *testing.T) *storage.GormStorage {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := storage.NewGormStorage(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// fastRetry keeps retry tests quick.
var fastRetry = RetryConfig{
	MaxAttempts:       4,
	InitialBackoff:    time.Millisecond,
	MaxBackoff:        5 * time.Millisecond,
	BackoffMultiplier: 2.0,
}

// routeJob describes a route task bound to name.
func routeJob(name string) task.Descriptor {
	return task.Descriptor{Type: "route", Options: map[string]string{"routeName": name}}
}

// counter is a route target that records its invocations.
type counter struct {
	calls atomic.Int32
	mu    sync.Mutex
	args  [][]string
	err   error
}

func (c *counter) handle(args []string) error {
	c.calls.Add(1)
	c.mu.Lock()
	c.args = append(c.args, args)
	c.mu.Unlock()
	return c.err
}

// fixture wires a registry, a fixed clock and sqlite storage.
type fixture struct {
	store  *storage.GormStorage
	reg    *registry.Registry
	binder *task.Binder
	clock  *core.FixedClock
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	binder := task.NewBinder()
	return &fixture{
		store:  newTestStorage(t),
		reg:    registry.New(registry.WithBinder(binder)),
		binder: binder,
		clock:  core.NewFixedClock(now),
	}
}

// route registers code with frequency and returns its counter.
func (f *fixture) route(t *testing.T, code, frequency string, args ...any) *counter {
	t.Helper()
	c := &counter{}
	require.NoError(t, f.binder.BindRoute(code, c.handle))
	require.NoError(t, f.reg.Register(code, frequency, routeJob(code), args...))
	return c
}

func (f *fixture) service(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithClock(f.clock), WithRetry(fastRetry)}
	svc, err := New(f.store, f.reg, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

// seed inserts an instance directly.
func (f *fixture) seed(t *testing.T, inst *core.JobInstance) *core.JobInstance {
	t.Helper()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = inst.ScheduledAt
	}
	require.NoError(t, f.store.Save(context.Background(), inst))
	return inst
}

func (f *fixture) get(t *testing.T, id string) *core.JobInstance {
	t.Helper()
	inst, err := f.store.GetInstance(context.Background(), id)
	require.NoError(t, err)
	return inst
}

func (f *fixture) all(t *testing.T) []*core.JobInstance {
	t.Helper()
	list, err := f.store.GetScheduledSince(context.Background(), time.Time{})
	require.NoError(t, err)
	return list
}

var errStorage = errors.New("storage unavailable")

// faultyStorage wraps a real storage and injects failures.
type faultyStorage struct {
	core.Storage

	mu           sync.Mutex
	listErr      error
	saveFailures int
	saveCalls    int
	claimLoses   bool
	removeErrFor string
	claims       int
}

func (s *faultyStorage) GetPending(ctx context.Context) ([]*core.JobInstance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Storage.GetPending(ctx)
}

func (s *faultyStorage) GetScheduledSince(ctx context.Context, from time.Time) ([]*core.JobInstance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Storage.GetScheduledSince(ctx, from)
}

func (s *faultyStorage) Save(ctx context.Context, inst *core.JobInstance) error {
	s.mu.Lock()
	s.saveCalls++
	fail := s.saveFailures > 0
	if fail {
		s.saveFailures--
	}
	s.mu.Unlock()

	if fail {
		return errStorage
	}
	return s.Storage.Save(ctx, inst)
}

func (s *faultyStorage) TryClaim(ctx context.Context, id string, executedAt time.Time) (bool, error) {
	s.mu.Lock()
	s.claims++
	s.mu.Unlock()
	if s.claimLoses {
		return false, nil
	}
	return s.Storage.TryClaim(ctx, id, executedAt)
}

func (s *faultyStorage) RemoveByID(ctx context.Context, id string) error {
	if id == s.removeErrFor {
		return errStorage
	}
	return s.Storage.RemoveByID(ctx, id)
}
