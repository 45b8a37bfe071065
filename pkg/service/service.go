// Package service runs the scheduling cycle: materialize instances, execute
// due ones, recover abandoned runs and sweep old history.
package service

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
)

// Service executes the cycle stages against a storage backend. It holds no
// state between calls; every decision is derived from storage and the
// clock, so concurrent services may share one backend.
type Service struct {
	storage  core.Storage
	registry *registry.Registry
	clock    core.Clock
	log      *zap.SugaredLogger
	opts     Options
	retry    RetryConfig

	mu        sync.RWMutex
	observers []core.Observer
}

// New creates a Service. It fails when the resulting options are invalid.
func New(storage core.Storage, reg *registry.Registry, opts ...Option) (*Service, error) {
	if storage == nil {
		return nil, errors.New("cron: storage is required")
	}
	if reg == nil {
		return nil, errors.New("cron: registry is required")
	}

	s := &Service{
		storage:  storage,
		registry: reg,
		clock:    core.SystemClock{},
		log:      logging.Nop(),
		opts:     DefaultOptions(),
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt.apply(s)
	}

	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Options returns the effective settings.
func (s *Service) Options() Options { return s.opts }

// Registry returns the catalog the service schedules from.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Storage returns the backend.
func (s *Service) Storage() core.Storage { return s.storage }

// Clock returns the clock.
func (s *Service) Clock() core.Clock { return s.clock }

// stage names a cycle step.
type stage struct {
	name string
	run  func(context.Context) error
}

// Run executes one full cycle: Schedule, Process, RecoverRunning and
// Cleanup, in that order. A failing stage does not prevent later stages
// from running; all stage errors are returned together.
func (s *Service) Run(ctx context.Context) error {
	s.emit(ctx, core.HookRunPre, nil, nil)

	stages := []stage{
		{"schedule", s.Schedule},
		{"process", s.Process},
		{"recover", s.RecoverRunning},
		{"cleanup", s.Cleanup},
	}

	var result error
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			result = errors.CombineErrors(result, err)
			break
		}
		if err := st.run(ctx); err != nil {
			s.log.Errorw("stage failed", logging.FieldStage, st.name, logging.FieldError, err)
			result = errors.CombineErrors(result, errors.Wrapf(err, "%s", st.name))
		}
	}

	s.emit(ctx, core.HookRunPost, nil, nil)
	return result
}

// TryLock claims a pending instance for execution. On success the instance
// is updated in place to running with executedAt set. A lost race returns
// false without error.
func (s *Service) TryLock(ctx context.Context, inst *core.JobInstance) (bool, error) {
	now := s.clock.Now()
	ok, err := s.storage.TryClaim(ctx, inst.ID, now)
	if err != nil || !ok {
		return false, err
	}
	inst.Status = core.StatusRunning
	inst.ExecutedAt = &now
	return true, nil
}

// Trigger materializes a pending instance of code for the current minute so
// the next Process pass runs it. It works for definitions without a
// frequency. A minute that already holds an instance of code returns
// core.ErrDuplicateInstance.
func (s *Service) Trigger(ctx context.Context, code string) (*core.JobInstance, error) {
	if _, err := s.registry.Get(code); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inst := &core.JobInstance{
		Code:        code,
		Status:      core.StatusPending,
		CreatedAt:   now,
		ScheduledAt: core.TruncateMinute(now),
	}
	if err := s.storage.Save(ctx, inst); err != nil {
		return nil, err
	}
	s.log.Infow("instance triggered", logging.FieldCode, code, logging.FieldInstanceID, inst.ID)
	return inst, nil
}
