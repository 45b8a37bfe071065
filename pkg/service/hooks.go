package service

import (
	"context"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
)

// Observe registers an observer. Observers are only called while
// EmitEvents is enabled.
func (s *Service) Observe(o core.Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// emit notifies observers. Each observer receives its own copies of the
// instances, and a panicking observer is logged and skipped.
func (s *Service) emit(ctx context.Context, hook core.Hook, inst *core.JobInstance, list []*core.JobInstance) {
	if !s.opts.EmitEvents {
		return
	}

	s.mu.RLock()
	observers := make([]core.Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	if len(observers) == 0 {
		return
	}

	now := s.clock.Now()
	for _, o := range observers {
		e := core.Event{Hook: hook, Instance: inst.Clone(), Timestamp: now}
		if list != nil {
			e.Instances = make([]*core.JobInstance, len(list))
			for i, item := range list {
				e.Instances[i] = item.Clone()
			}
		}
		s.notify(ctx, o, e)
	}
}

func (s *Service) notify(ctx context.Context, o core.Observer, e core.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warnw("observer panicked", "hook", e.Hook, logging.FieldError, r)
		}
	}()
	o(ctx, e)
}
