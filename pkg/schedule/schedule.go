package schedule

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// ErrInvalidFrequency is returned for expressions that are not valid
// 5-field cron expressions.
var ErrInvalidFrequency = errors.New("cron: invalid frequency expression")

// Only the standard minute/hour/day-of-month/month/day-of-week form is
// accepted; descriptors such as @daily and a seconds field are rejected.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule defines which minutes a job is due.
type Schedule interface {
	// Next returns the first due minute strictly after from.
	Next(from time.Time) time.Time
	// Matches reports whether t, truncated to the minute, is due.
	Matches(t time.Time) bool
	// String returns the source expression.
	String() string
}

// cronSchedule wraps a parsed cron expression.
type cronSchedule struct {
	expr     string
	schedule cron.Schedule
}

// Parse parses a 5-field cron expression.
func Parse(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.Wrap(ErrInvalidFrequency, "empty expression")
	}
	if strings.HasPrefix(expr, "@") || strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=") {
		return nil, errors.Wrapf(ErrInvalidFrequency, "unsupported expression %q", expr)
	}
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFrequency, "%q: %v", expr, err)
	}
	return &cronSchedule{expr: expr, schedule: s}, nil
}

// Cron creates a schedule from a cron expression.
// It panics on an invalid expression; use Parse for untrusted input.
func Cron(expr string) Schedule {
	s, err := Parse(expr)
	if err != nil {
		panic("invalid cron expression: " + err.Error())
	}
	return s
}

func (s *cronSchedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

func (s *cronSchedule) Matches(t time.Time) bool {
	minute := t.Truncate(time.Minute)
	return s.schedule.Next(minute.Add(-time.Second)).Equal(minute)
}

func (s *cronSchedule) String() string {
	return s.expr
}

// Between returns every due minute in the half-open window [from, to),
// in ascending order. from is truncated to the minute first.
func Between(s Schedule, from, to time.Time) []time.Time {
	var out []time.Time
	start := from.Truncate(time.Minute)
	for t := s.Next(start.Add(-time.Second)); !t.IsZero() && t.Before(to); t = s.Next(t) {
		out = append(out, t)
	}
	return out
}
