package core

import (
	"context"
	"time"
)

// Storage defines the persistence layer for job instances.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Queries
	GetPending(ctx context.Context) ([]*JobInstance, error)
	GetRunning(ctx context.Context) ([]*JobInstance, error)
	GetHistory(ctx context.Context) ([]*JobInstance, error)
	GetScheduledSince(ctx context.Context, from time.Time) ([]*JobInstance, error)
	GetInstance(ctx context.Context, id string) (*JobInstance, error)

	// Save inserts the instance when its ID is empty and updates it otherwise.
	// Inserting a second instance for an occupied (code, minute) pair
	// returns ErrDuplicateInstance. Updating an instance whose row is gone
	// returns ErrInstanceNotFound.
	Save(ctx context.Context, inst *JobInstance) error

	// TryClaim atomically moves a pending instance to running and stamps
	// executedAt. It reports false, without error, when the instance is no
	// longer pending.
	TryClaim(ctx context.Context, id string, executedAt time.Time) (bool, error)

	// Finish writes the terminal state of inst only if the stored status
	// still equals expected.
	Finish(ctx context.Context, inst *JobInstance, expected Status) (bool, error)

	RemoveByID(ctx context.Context, id string) error
}
