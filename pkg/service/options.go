package service

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/security"
)

// ErrInvalidOptions is returned by New and Options.Validate.
var ErrInvalidOptions = errors.New("cron: invalid options")

// Options holds the scheduling and retention settings. Durations are in
// minutes.
type Options struct {
	// ScheduleAhead is how far ahead instances are materialized.
	// Default: 1440
	ScheduleAhead int `mapstructure:"scheduleAhead" json:"scheduleAhead"`

	// ScheduleLifetime is how long a pending instance may wait past its
	// scheduled minute before it is marked missed.
	// Default: 15
	ScheduleLifetime int `mapstructure:"scheduleLifetime" json:"scheduleLifetime"`

	// MaxRunningTime is how long an instance may stay running before the
	// recovery sweep abandons it. Zero disables recovery.
	// Default: 0
	MaxRunningTime int `mapstructure:"maxRunningTime" json:"maxRunningTime"`

	// SuccessLogLifetime is how long successful instances are kept.
	// Default: 1440
	SuccessLogLifetime int `mapstructure:"successLogLifetime" json:"successLogLifetime"`

	// FailureLogLifetime is how long error and missed instances are kept.
	// Default: 2880
	FailureLogLifetime int `mapstructure:"failureLogLifetime" json:"failureLogLifetime"`

	// EmitEvents enables observer notifications.
	EmitEvents bool `mapstructure:"emitEvents" json:"emitEvents"`

	// AllowJSONAPI enables the read-only status API.
	AllowJSONAPI bool `mapstructure:"allowJsonApi" json:"allowJsonApi"`

	// JSONAPISecurityHash is the pre-shared token the status API requires.
	JSONAPISecurityHash string `mapstructure:"jsonApiSecurityHash" json:"-"`
}

// DefaultOptions returns the default settings.
func DefaultOptions() Options {
	return Options{
		ScheduleAhead:      1440,
		ScheduleLifetime:   15,
		MaxRunningTime:     0,
		SuccessLogLifetime: 1440,
		FailureLogLifetime: 2880,
	}
}

// Validate rejects negative durations and an enabled API without a token.
func (o Options) Validate() error {
	minutes := map[string]int{
		"scheduleAhead":      o.ScheduleAhead,
		"scheduleLifetime":   o.ScheduleLifetime,
		"maxRunningTime":     o.MaxRunningTime,
		"successLogLifetime": o.SuccessLogLifetime,
		"failureLogLifetime": o.FailureLogLifetime,
	}
	for name, v := range minutes {
		if v < 0 {
			return errors.Wrapf(ErrInvalidOptions, "%s must not be negative (got %d)", name, v)
		}
	}
	if o.AllowJSONAPI && o.JSONAPISecurityHash == "" {
		return errors.Wrap(ErrInvalidOptions, "allowJsonApi requires jsonApiSecurityHash")
	}
	return nil
}

// Lifetime returns the retention lifetime for a terminal status.
func (o Options) Lifetime(status core.Status) (time.Duration, bool) {
	switch status {
	case core.StatusSuccess:
		return minutes(o.SuccessLogLifetime), true
	case core.StatusError, core.StatusMissed:
		return minutes(o.FailureLogLifetime), true
	}
	return 0, false
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// Option configures a Service.
type Option interface {
	apply(*Service)
}

type optionFunc func(*Service)

func (f optionFunc) apply(s *Service) { f(s) }

// WithOptions replaces every setting. Pass it before WithObserver, which
// turns EmitEvents on.
func WithOptions(o Options) Option {
	return optionFunc(func(s *Service) {
		s.opts = o
	})
}

// WithClock sets the clock used for every scheduling decision.
func WithClock(c core.Clock) Option {
	return optionFunc(func(s *Service) {
		s.clock = c
	})
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return optionFunc(func(s *Service) {
		s.log = l
	})
}

// WithObserver registers an observer and enables event emission.
func WithObserver(o core.Observer) Option {
	return optionFunc(func(s *Service) {
		s.observers = append(s.observers, o)
		s.opts.EmitEvents = true
	})
}

// WithRetry sets the backoff used when persisting final instance states.
func WithRetry(c RetryConfig) Option {
	return optionFunc(func(s *Service) {
		s.retry = c
	})
}

// ScheduleAhead sets the materialization horizon in minutes.
func ScheduleAhead(n int) Option {
	return optionFunc(func(s *Service) {
		s.opts.ScheduleAhead = security.ClampMinutes(n)
	})
}

// ScheduleLifetime sets the missed-deadline window in minutes.
func ScheduleLifetime(n int) Option {
	return optionFunc(func(s *Service) {
		s.opts.ScheduleLifetime = security.ClampMinutes(n)
	})
}

// MaxRunningTime sets the recovery threshold in minutes; zero disables it.
func MaxRunningTime(n int) Option {
	return optionFunc(func(s *Service) {
		s.opts.MaxRunningTime = security.ClampMinutes(n)
	})
}

// SuccessLogLifetime sets the retention of successful instances in minutes.
func SuccessLogLifetime(n int) Option {
	return optionFunc(func(s *Service) {
		s.opts.SuccessLogLifetime = security.ClampMinutes(n)
	})
}

// FailureLogLifetime sets the retention of error and missed instances in minutes.
func FailureLogLifetime(n int) Option {
	return optionFunc(func(s *Service) {
		s.opts.FailureLogLifetime = security.ClampMinutes(n)
	})
}

// EmitEvents toggles observer notifications.
func EmitEvents(enabled bool) Option {
	return optionFunc(func(s *Service) {
		s.opts.EmitEvents = enabled
	})
}
