// Package registry holds the catalog of job definitions the scheduler
// materializes and the processor executes.
package registry

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/schedule"
	"github.com/jdziat/simple-durable-cron/pkg/security"
	"github.com/jdziat/simple-durable-cron/pkg/task"
)

// Registry errors
var (
	ErrAlreadyRegistered = errors.New("cron: job code already registered")
	ErrNotFound          = errors.New("cron: job code not registered")
	ErrInvalidCode       = errors.New("cron: invalid job code")
)

// JobDefinition is an immutable catalog entry.
type JobDefinition struct {
	Code      string
	Frequency string
	// Schedule is nil when Frequency is empty; such jobs are never
	// materialized automatically.
	Schedule schedule.Schedule
	Task     task.Executor
	Args     []any
}

// Scheduled reports whether the definition has a frequency.
func (d *JobDefinition) Scheduled() bool {
	return d.Schedule != nil
}

// Option configures a Registry.
type Option interface {
	apply(*Registry)
}

type optionFunc func(*Registry)

func (f optionFunc) apply(r *Registry) { f(r) }

// WithBinder sets the binder that resolves callback and route targets.
func WithBinder(b *task.Binder) Option {
	return optionFunc(func(r *Registry) {
		r.binder = b
	})
}

// Registry is a catalog of job definitions keyed by code. It performs no
// I/O and is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*JobDefinition
	binder *task.Binder
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{jobs: make(map[string]*JobDefinition)}
	for _, opt := range opts {
		opt.apply(r)
	}
	if r.binder == nil {
		r.binder = task.NewBinder()
	}
	return r
}

// Binder returns the binder used for callback and route tasks.
func (r *Registry) Binder() *task.Binder {
	return r.binder
}

// Register validates and adds a definition. An empty frequency registers a
// job for on-demand use only. A code that is already taken reports
// ErrAlreadyRegistered before the new definition is validated.
func (r *Registry) Register(code, frequency string, desc task.Descriptor, args ...any) error {
	r.mu.RLock()
	_, exists := r.jobs[code]
	r.mu.RUnlock()
	if exists {
		return errors.Wrapf(ErrAlreadyRegistered, "%q", code)
	}

	if err := security.ValidateJobCode(code); err != nil {
		return errors.Wrapf(ErrInvalidCode, "%q: %v", code, err)
	}

	var sched schedule.Schedule
	if frequency != "" {
		s, err := schedule.Parse(frequency)
		if err != nil {
			return errors.Wrapf(err, "job %s", code)
		}
		sched = s
	}

	exec, err := task.New(desc, r.binder)
	if err != nil {
		return errors.Wrapf(err, "job %s", code)
	}

	if err := security.ValidateArgs(args); err != nil {
		return errors.Wrapf(err, "job %s", code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[code]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "%q", code)
	}
	r.jobs[code] = &JobDefinition{
		Code:      code,
		Frequency: frequency,
		Schedule:  sched,
		Task:      exec,
		Args:      append([]any(nil), args...),
	}
	return nil
}

// Has reports whether code is registered.
func (r *Registry) Has(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[code]
	return ok
}

// Get returns the definition for code or ErrNotFound.
func (r *Registry) Get(code string) (*JobDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.jobs[code]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", code)
	}
	return def, nil
}

// Count returns the number of definitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Clear empties the catalog.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.jobs = make(map[string]*JobDefinition)
	r.mu.Unlock()
}

// Definitions returns every definition sorted by code.
func (r *Registry) Definitions() []*JobDefinition {
	r.mu.RLock()
	defs := make([]*JobDefinition, 0, len(r.jobs))
	for _, d := range r.jobs {
		defs = append(defs, d)
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}
