// Package cron schedules periodic jobs from cron expressions and keeps
// their run history in a database.
//
// This is the main package users should import. It re-exports the public
// types of the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	store, _ := cron.OpenSQLite("cron.db")
//	store.Migrate(ctx)
//
//	reg := cron.NewRegistry()
//	reg.Binder().BindRoute("report", func(ctx context.Context, day string) error {
//	    return buildReport(ctx, day)
//	})
//	reg.Register("report", "0 20 * * *", cron.RouteTask("report"), "today")
//
//	svc, _ := cron.New(store, reg)
//	svc.Run(ctx) // call once a minute, e.g. from crontab
package cron

import (
	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
	"github.com/jdziat/simple-durable-cron/pkg/schedule"
	"github.com/jdziat/simple-durable-cron/pkg/security"
	"github.com/jdziat/simple-durable-cron/pkg/service"
	"github.com/jdziat/simple-durable-cron/pkg/storage"
	"github.com/jdziat/simple-durable-cron/pkg/task"
)

type (
	// JobInstance is one scheduled occurrence of a job.
	JobInstance = core.JobInstance

	// Status is the lifecycle state of an instance.
	Status = core.Status

	// Storage persists instances.
	Storage = core.Storage

	// Clock supplies the current time.
	Clock = core.Clock

	// Hook names a lifecycle point.
	Hook = core.Hook

	// Event is delivered to observers.
	Event = core.Event

	// Observer receives lifecycle events.
	Observer = core.Observer

	// Registry is the catalog of job definitions.
	Registry = registry.Registry

	// RegistryOption configures a Registry.
	RegistryOption = registry.Option

	// JobDefinition is a registered job.
	JobDefinition = registry.JobDefinition

	// JobConfig declares a job in configuration.
	JobConfig = registry.JobConfig

	// TaskDescriptor declares a task kind and its options.
	TaskDescriptor = task.Descriptor

	// Executor runs a task.
	Executor = task.Executor

	// Binder maps callback and route names to Go functions.
	Binder = task.Binder

	// Schedule defines the minutes a job is due.
	Schedule = schedule.Schedule

	// Service runs the scheduling cycle.
	Service = service.Service

	// Option configures a Service.
	Option = service.Option

	// Options holds the cycle settings, in minutes.
	Options = service.Options

	// RetryConfig controls retries of final instance writes.
	RetryConfig = service.RetryConfig

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption configures the connection pool.
	PoolOption = storage.PoolOption
)

// Status constants
const (
	StatusPending = core.StatusPending
	StatusRunning = core.StatusRunning
	StatusSuccess = core.StatusSuccess
	StatusError   = core.StatusError
	StatusMissed  = core.StatusMissed
)

// Lifecycle hooks
const (
	HookRunPre         = core.HookRunPre
	HookRunPost        = core.HookRunPost
	HookSchedulePre    = core.HookSchedulePre
	HookSchedulePost   = core.HookSchedulePost
	HookProcessPre     = core.HookProcessPre
	HookProcessPost    = core.HookProcessPost
	HookProcessJobPre  = core.HookProcessJobPre
	HookProcessJobPost = core.HookProcessJobPost
	HookRecoverPre     = core.HookRecoverPre
	HookRecoverPost    = core.HookRecoverPost
	HookCleanupPre     = core.HookCleanupPre
	HookCleanupPost    = core.HookCleanupPost
	HookRemoveJobPre   = core.HookRemoveJobPre
	HookRemoveJobPost  = core.HookRemoveJobPost
)

// Security limits
const (
	MaxJobCodeLength      = security.MaxJobCodeLength
	MaxJobArgsSize        = security.MaxJobArgsSize
	MaxErrorMessageLength = security.MaxErrorMessageLength
	MaxStackTraceLength   = security.MaxStackTraceLength
)

// Error variables
var (
	ErrInvalidJobCode        = core.ErrInvalidJobCode
	ErrJobCodeTooLong        = core.ErrJobCodeTooLong
	ErrJobArgsTooLarge       = core.ErrJobArgsTooLarge
	ErrDuplicateInstance     = core.ErrDuplicateInstance
	ErrInstanceNotFound      = core.ErrInstanceNotFound
	ErrAlreadyRegistered     = registry.ErrAlreadyRegistered
	ErrJobNotFound           = registry.ErrNotFound
	ErrInvalidFrequency      = schedule.ErrInvalidFrequency
	ErrInvalidTaskDescriptor = task.ErrInvalidTaskDescriptor
	ErrUnboundTarget         = task.ErrUnboundTarget
	ErrInvalidOptions        = service.ErrInvalidOptions
)

// New creates a Service over storage and reg.
func New(s Storage, reg *Registry, opts ...Option) (*Service, error) {
	return service.New(s, reg, opts...)
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	return registry.New(opts...)
}

// RegistryFromConfig builds a Registry from declared jobs.
func RegistryFromConfig(jobs map[string]JobConfig, opts ...RegistryOption) (*Registry, error) {
	return registry.FromConfig(jobs, opts...)
}

// NewBinder creates an empty Binder.
func NewBinder() *Binder {
	return task.NewBinder()
}

// WithBinder makes a Registry resolve targets through b.
func WithBinder(b *Binder) RegistryOption {
	return registry.WithBinder(b)
}

// Open opens a PostgreSQL (postgres:// URL) or sqlite database and wraps it
// in storage.
func Open(dsn string, opts ...PoolOption) (*GormStorage, error) {
	db, err := storage.Open(dsn, opts...)
	if err != nil {
		return nil, err
	}
	return storage.NewGormStorage(db), nil
}

// OpenSQLite opens a sqlite database and wraps it in storage.
func OpenSQLite(dsn string, opts ...PoolOption) (*GormStorage, error) {
	db, err := storage.OpenSQLite(dsn, opts...)
	if err != nil {
		return nil, err
	}
	return storage.NewGormStorage(db), nil
}

// DefaultOptions returns the default cycle settings.
func DefaultOptions() Options {
	return service.DefaultOptions()
}

// ParseSchedule parses a 5-field cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	return schedule.Parse(expr)
}

// CallbackTask describes a task that calls a bound method.
func CallbackTask(className, methodName string) TaskDescriptor {
	return TaskDescriptor{Type: string(task.KindCallback), Options: map[string]string{
		task.OptClassName:  className,
		task.OptMethodName: methodName,
	}}
}

// RouteTask describes a task that dispatches to a bound route.
func RouteTask(routeName string) TaskDescriptor {
	return TaskDescriptor{Type: string(task.KindRoute), Options: map[string]string{
		task.OptRouteName: routeName,
	}}
}

// ExternalTask describes a task that runs a shell-quoted command line.
func ExternalTask(command string) TaskDescriptor {
	return TaskDescriptor{Type: string(task.KindExternal), Options: map[string]string{
		task.OptCommand: command,
	}}
}

// Service options
var (
	WithOptions        = service.WithOptions
	WithClock          = service.WithClock
	WithLogger         = service.WithLogger
	WithObserver       = service.WithObserver
	WithRetry          = service.WithRetry
	ScheduleAhead      = service.ScheduleAhead
	ScheduleLifetime   = service.ScheduleLifetime
	MaxRunningTime     = service.MaxRunningTime
	SuccessLogLifetime = service.SuccessLogLifetime
	FailureLogLifetime = service.FailureLogLifetime
	EmitEvents         = service.EmitEvents
)
