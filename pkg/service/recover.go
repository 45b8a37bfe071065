package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
)

// RecoverRunning marks running instances that started more than
// MaxRunningTime ago as error with core.MsgAbandoned. It does nothing when
// MaxRunningTime is zero. The write is guarded on the running status, so an
// instance that finished meanwhile keeps its outcome.
func (s *Service) RecoverRunning(ctx context.Context) error {
	if s.opts.MaxRunningTime <= 0 {
		return nil
	}

	s.emit(ctx, core.HookRecoverPre, nil, nil)

	running, err := s.storage.GetRunning(ctx)
	if err != nil {
		return errors.Wrap(err, "load running instances")
	}

	now := s.clock.Now()
	cutoff := now.Add(-minutes(s.opts.MaxRunningTime))

	recovered := make([]*core.JobInstance, 0)
	for _, inst := range running {
		started := inst.ScheduledAt
		if inst.ExecutedAt != nil {
			started = *inst.ExecutedAt
		}
		if !started.Before(cutoff) {
			continue
		}

		finished := now
		inst.Status = core.StatusError
		inst.ErrorMessage = core.MsgAbandoned
		inst.FinishedAt = &finished

		ok, err := s.storage.Finish(ctx, inst, core.StatusRunning)
		if err != nil {
			s.log.Warnw("failed to recover instance", logging.FieldInstanceID, inst.ID, logging.FieldCode, inst.Code, logging.FieldError, err)
			continue
		}
		if !ok {
			continue
		}
		s.log.Warnw("running instance abandoned", logging.FieldInstanceID, inst.ID, logging.FieldCode, inst.Code)
		recovered = append(recovered, inst)
	}

	s.emit(ctx, core.HookRecoverPost, nil, recovered)
	return nil
}
