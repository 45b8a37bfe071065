package core

import (
	"context"
	"time"
)

// Hook names a lifecycle point at which observers are notified.
type Hook string

const (
	HookRunPre         Hook = "run.pre"
	HookRunPost        Hook = "run.post"
	HookSchedulePre    Hook = "schedule.pre"
	HookSchedulePost   Hook = "schedule.post"
	HookProcessPre     Hook = "process.pre"
	HookProcessPost    Hook = "process.post"
	HookProcessJobPre  Hook = "process_job.pre"
	HookProcessJobPost Hook = "process_job.post"
	HookRecoverPre     Hook = "recover.pre"
	HookRecoverPost    Hook = "recover.post"
	HookCleanupPre     Hook = "cleanup.pre"
	HookCleanupPost    Hook = "cleanup.post"
	HookRemoveJobPre   Hook = "remove_job.pre"
	HookRemoveJobPost  Hook = "remove_job.post"
)

// Event is delivered to observers at a lifecycle point.
//
// Instance is set for per-instance hooks (process_job, remove_job).
// Instances carries the batch for pass-level hooks: pending instances on
// process.pre, created instances on schedule.post, removed instances on
// cleanup.post and recovered instances on recover.post.
type Event struct {
	Hook      Hook
	Instance  *JobInstance
	Instances []*JobInstance
	Timestamp time.Time
}

// Observer receives lifecycle notifications. Observers cannot influence
// scheduling or execution; they receive copies of instances.
type Observer func(ctx context.Context, e Event)
