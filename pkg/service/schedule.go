package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
	"github.com/jdziat/simple-durable-cron/pkg/schedule"
)

// Schedule materializes pending instances for every due minute in
// [floor(now), floor(now)+ScheduleAhead). Minutes that already hold an
// instance of the same code, in any status, are skipped, so repeated and
// overlapping passes are idempotent.
func (s *Service) Schedule(ctx context.Context) error {
	now := s.clock.Now()
	start := core.TruncateMinute(now)
	end := start.Add(minutes(s.opts.ScheduleAhead))

	s.emit(ctx, core.HookSchedulePre, nil, nil)

	existing, err := s.storage.GetScheduledSince(ctx, start)
	if err != nil {
		return errors.Wrap(err, "load scheduled instances")
	}

	seen := make(map[core.InstanceKey]struct{}, len(existing))
	for _, inst := range existing {
		seen[inst.Key()] = struct{}{}
	}

	created := make([]*core.JobInstance, 0)
	for _, def := range s.registry.Definitions() {
		if !def.Scheduled() {
			continue
		}

		for _, t := range schedule.Between(def.Schedule, start, end) {
			key := core.NewInstanceKey(def.Code, t)
			if _, ok := seen[key]; ok {
				continue
			}

			inst := &core.JobInstance{
				Code:        def.Code,
				Status:      core.StatusPending,
				CreatedAt:   now,
				ScheduledAt: t,
			}
			err := s.storage.Save(ctx, inst)
			switch {
			case errors.Is(err, core.ErrDuplicateInstance):
				// Another scheduler got there first.
				s.log.Debugw("instance already scheduled", logging.FieldCode, def.Code, logging.FieldScheduledAt, t)
			case err != nil:
				return errors.Wrapf(err, "schedule %s", def.Code)
			default:
				created = append(created, inst)
			}
			seen[key] = struct{}{}
		}
	}

	if len(created) > 0 {
		s.log.Infow("instances scheduled", logging.FieldCount, len(created))
	}
	s.emit(ctx, core.HookSchedulePost, nil, created)
	return nil
}
