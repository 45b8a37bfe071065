package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
)

// Cleanup deletes terminal instances older than their status lifetime.
// Age is measured from executedAt, or from scheduledAt for instances that
// never ran. Instances are removed one at a time; a failed removal is
// logged, the sweep continues and the first error is returned.
func (s *Service) Cleanup(ctx context.Context) error {
	s.emit(ctx, core.HookCleanupPre, nil, nil)

	history, err := s.storage.GetHistory(ctx)
	if err != nil {
		return errors.Wrap(err, "load instance history")
	}

	now := s.clock.Now()
	removed := make([]*core.JobInstance, 0)
	var firstErr error

	for _, inst := range history {
		lifetime, ok := s.opts.Lifetime(inst.Status)
		if !ok {
			continue
		}

		ref := inst.ScheduledAt
		if inst.ExecutedAt != nil {
			ref = *inst.ExecutedAt
		}
		if now.Sub(ref) <= lifetime {
			continue
		}

		s.emit(ctx, core.HookRemoveJobPre, inst, nil)
		if err := s.storage.RemoveByID(ctx, inst.ID); err != nil {
			s.log.Warnw("failed to remove instance", logging.FieldInstanceID, inst.ID, logging.FieldError, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.emit(ctx, core.HookRemoveJobPost, inst, nil)
		removed = append(removed, inst)
	}

	if len(removed) > 0 {
		s.log.Infow("instances removed", logging.FieldCount, len(removed))
	}
	s.emit(ctx, core.HookCleanupPost, nil, removed)
	return firstErr
}
