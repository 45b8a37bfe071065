package registry

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/task"
)

// JobConfig is the configuration form of a job definition.
type JobConfig struct {
	Frequency string          `mapstructure:"frequency" json:"frequency"`
	Task      task.Descriptor `mapstructure:"task" json:"task"`
	Args      []any           `mapstructure:"args" json:"args"`
}

// Load registers every job in jobs, in code order, and stops at the first
// entry that fails. Definitions registered before the failure are kept.
func (r *Registry) Load(jobs map[string]JobConfig) error {
	codes := make([]string, 0, len(jobs))
	for code := range jobs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		cfg := jobs[code]
		if err := r.Register(code, cfg.Frequency, cfg.Task, cfg.Args...); err != nil {
			return errors.Wrap(err, "load jobs")
		}
	}
	return nil
}

// FromConfig builds a Registry from configuration.
func FromConfig(jobs map[string]JobConfig, opts ...Option) (*Registry, error) {
	r := New(opts...)
	if err := r.Load(jobs); err != nil {
		return nil, err
	}
	return r, nil
}
