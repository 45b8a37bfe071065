// Package core provides the domain models and interfaces for the cron package.
package core

import (
	"time"

	"gorm.io/gorm"
)

// Status represents the current state of a job instance.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusMissed  Status = "missed" // Passed its lateness window without running
)

// TerminalStatuses lists the statuses an instance never leaves.
var TerminalStatuses = []Status{StatusSuccess, StatusError, StatusMissed}

// IsTerminal reports whether s is a final status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusMissed:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusRunning || s.IsTerminal()
}

// JobInstance is one scheduled occurrence of a registered job definition.
type JobInstance struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Code         string     `gorm:"uniqueIndex:idx_cron_code_scheduled;size:255;not null" json:"code"`
	Status       Status     `gorm:"index;size:20;default:'pending'" json:"status"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	ScheduledAt  time.Time  `gorm:"uniqueIndex:idx_cron_code_scheduled;index;not null" json:"scheduled_at"`
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	StackTrace   string     `gorm:"type:text" json:"stack_trace,omitempty"`
}

// TableName pins the table name independent of gorm's naming strategy.
func (JobInstance) TableName() string {
	return "cron_job_instances"
}

// BeforeSave stores every timestamp in UTC so range queries compare cleanly,
// and drops the seconds of ScheduledAt so the (code, scheduled_at) index
// keys on the minute.
func (j *JobInstance) BeforeSave(tx *gorm.DB) error {
	j.normalize()
	return nil
}

func (j *JobInstance) normalize() {
	j.CreatedAt = j.CreatedAt.UTC()
	j.ScheduledAt = TruncateMinute(j.ScheduledAt.UTC())
	if j.ExecutedAt != nil {
		t := j.ExecutedAt.UTC()
		j.ExecutedAt = &t
	}
	if j.FinishedAt != nil {
		t := j.FinishedAt.UTC()
		j.FinishedAt = &t
	}
}

// Key returns the de-duplication key for the instance: its code and
// scheduled minute.
func (j *JobInstance) Key() InstanceKey {
	return NewInstanceKey(j.Code, j.ScheduledAt)
}

// Clone returns a deep copy of the instance.
func (j *JobInstance) Clone() *JobInstance {
	if j == nil {
		return nil
	}
	c := *j
	if j.ExecutedAt != nil {
		t := *j.ExecutedAt
		c.ExecutedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// InstanceKey identifies the (code, minute) pair an instance occupies.
type InstanceKey struct {
	Code   string
	Minute int64 // unix seconds of the scheduled minute
}

// NewInstanceKey builds a key, truncating t to the minute.
func NewInstanceKey(code string, t time.Time) InstanceKey {
	return InstanceKey{Code: code, Minute: TruncateMinute(t).Unix()}
}

// TruncateMinute drops seconds and sub-second precision.
func TruncateMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
