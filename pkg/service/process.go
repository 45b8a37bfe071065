package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
)

// Process executes due pending instances. Instances past their lifetime are
// marked missed, unknown codes are marked error, and the rest are claimed
// and run. A failure of one instance never stops the pass; only the
// initial listing can fail it.
func (s *Service) Process(ctx context.Context) error {
	pending, err := s.storage.GetPending(ctx)
	if err != nil {
		return errors.Wrap(err, "load pending instances")
	}

	s.emit(ctx, core.HookProcessPre, nil, pending)

	var executed int
	for _, inst := range pending {
		if ctx.Err() != nil {
			break
		}
		if s.processOne(ctx, inst) {
			executed++
		}
	}

	if executed > 0 {
		s.log.Infow("instances executed", logging.FieldCount, executed)
	}
	s.emit(ctx, core.HookProcessPost, nil, pending)
	return ctx.Err()
}

// processOne handles a single pending instance and reports whether it was
// executed.
func (s *Service) processOne(ctx context.Context, inst *core.JobInstance) bool {
	now := s.clock.Now()
	if inst.ScheduledAt.After(now) {
		return false
	}

	s.emit(ctx, core.HookProcessJobPre, inst, nil)
	defer s.emit(ctx, core.HookProcessJobPost, inst, nil)

	if now.After(inst.ScheduledAt.Add(minutes(s.opts.ScheduleLifetime))) {
		s.closePending(ctx, inst, core.StatusMissed, core.MsgMissedDeadline, now)
		return false
	}

	def, err := s.registry.Get(inst.Code)
	if err != nil {
		s.closePending(ctx, inst, core.StatusError, fmt.Sprintf("job code %q is not registered", inst.Code), now)
		return false
	}

	ok, err := s.TryLock(ctx, inst)
	if err != nil {
		s.log.Warnw("claim failed", logging.FieldInstanceID, inst.ID, logging.FieldCode, inst.Code, logging.FieldError, err)
		return false
	}
	if !ok {
		s.log.Debugw("instance claimed elsewhere", logging.FieldInstanceID, inst.ID, logging.FieldCode, inst.Code)
		return false
	}

	started := s.clock.Now()
	runErr := s.execute(ctx, def)
	finished := s.clock.Now()
	inst.FinishedAt = &finished

	if runErr != nil {
		inst.Status = core.StatusError
		inst.ErrorMessage = runErr.Error()
		inst.StackTrace = fmt.Sprintf("%+v", runErr)
		s.log.Warnw("job failed",
			logging.FieldInstanceID, inst.ID,
			logging.FieldCode, inst.Code,
			logging.FieldError, runErr,
		)
	} else {
		inst.Status = core.StatusSuccess
		s.log.Infow("job succeeded",
			logging.FieldInstanceID, inst.ID,
			logging.FieldCode, inst.Code,
			logging.FieldDurationMS, finished.Sub(started).Milliseconds(),
		)
	}

	// The outcome is written unconditionally: a run that finishes after the
	// recovery sweep abandoned it still records its real result.
	err = retryWithBackoff(ctx, s.retry, func() error {
		return s.storage.Save(ctx, inst)
	})
	if err != nil {
		s.log.Errorw("failed to save job outcome after retries",
			logging.FieldInstanceID, inst.ID,
			logging.FieldCode, inst.Code,
			logging.FieldStatus, inst.Status,
			logging.FieldError, err,
		)
	}
	return true
}

// execute runs the definition's task, converting a panic into an error.
func (s *Service) execute(ctx context.Context, def *registry.JobDefinition) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic: %v", r)
		}
	}()
	return def.Task.Execute(ctx, def.Args)
}

// closePending moves a pending instance straight to a terminal status. The
// write only lands while the instance is still pending.
func (s *Service) closePending(ctx context.Context, inst *core.JobInstance, status core.Status, msg string, now time.Time) {
	inst.Status = status
	inst.ErrorMessage = msg
	inst.FinishedAt = &now

	ok, err := s.storage.Finish(ctx, inst, core.StatusPending)
	switch {
	case err != nil:
		s.log.Warnw("failed to close instance",
			logging.FieldInstanceID, inst.ID,
			logging.FieldCode, inst.Code,
			logging.FieldStatus, status,
			logging.FieldError, err,
		)
	case !ok:
		s.log.Debugw("instance left pending elsewhere", logging.FieldInstanceID, inst.ID, logging.FieldCode, inst.Code)
	default:
		s.log.Infow("instance closed",
			logging.FieldInstanceID, inst.ID,
			logging.FieldCode, inst.Code,
			logging.FieldStatus, status,
		)
	}
}
