// Package storage provides storage implementations for the cron package.
package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/security"
)

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

var _ core.Storage = (*GormStorage)(nil)

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying connection.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the connection uses the sqlite dialect.
func (s *GormStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the instance table and its indexes.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return errors.Wrap(s.db.WithContext(ctx).AutoMigrate(&core.JobInstance{}), "migrate job instances")
}

// GetPending returns pending instances, oldest scheduled first.
func (s *GormStorage) GetPending(ctx context.Context) ([]*core.JobInstance, error) {
	return s.byStatus(ctx, core.StatusPending)
}

// GetRunning returns running instances, oldest scheduled first.
func (s *GormStorage) GetRunning(ctx context.Context) ([]*core.JobInstance, error) {
	return s.byStatus(ctx, core.StatusRunning)
}

// GetHistory returns instances in a terminal status.
func (s *GormStorage) GetHistory(ctx context.Context) ([]*core.JobInstance, error) {
	return s.byStatus(ctx, core.TerminalStatuses...)
}

func (s *GormStorage) byStatus(ctx context.Context, statuses ...core.Status) ([]*core.JobInstance, error) {
	var list []*core.JobInstance
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("scheduled_at ASC, created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list instances with status %v", statuses)
	}
	return list, nil
}

// GetScheduledSince returns every instance, whatever its status, scheduled
// at or after from.
func (s *GormStorage) GetScheduledSince(ctx context.Context, from time.Time) ([]*core.JobInstance, error) {
	var list []*core.JobInstance
	err := s.db.WithContext(ctx).
		Where("scheduled_at >= ?", from.UTC()).
		Order("scheduled_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "list scheduled instances")
	}
	return list, nil
}

// GetInstance retrieves an instance by ID.
// Returns core.ErrInstanceNotFound when no row matches.
func (s *GormStorage) GetInstance(ctx context.Context, id string) (*core.JobInstance, error) {
	var inst core.JobInstance
	err := s.db.WithContext(ctx).First(&inst, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(core.ErrInstanceNotFound, "instance %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get instance %s", id)
	}
	return &inst, nil
}

// Save inserts inst when its ID is empty and updates every column otherwise.
// Updating a row that no longer exists returns core.ErrInstanceNotFound
// rather than recreating it.
// An insert that collides with the (code, scheduled_at) index is dropped by
// the database and reported as core.ErrDuplicateInstance.
func (s *GormStorage) Save(ctx context.Context, inst *core.JobInstance) error {
	sanitize(inst)

	if inst.ID != "" {
		result := s.db.WithContext(ctx).Model(inst).Select("*").Updates(inst)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "save instance %s", inst.ID)
		}
		if result.RowsAffected == 0 {
			return errors.Wrapf(core.ErrInstanceNotFound, "instance %s", inst.ID)
		}
		return nil
	}

	inst.ID = uuid.New().String()
	if inst.Status == "" {
		inst.Status = core.StatusPending
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(inst)
	if result.Error != nil {
		inst.ID = ""
		return errors.Wrapf(result.Error, "insert instance %s", inst.Code)
	}
	if result.RowsAffected == 0 {
		inst.ID = ""
		return errors.Wrapf(core.ErrDuplicateInstance, "%s at %s", inst.Code, inst.ScheduledAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// TryClaim moves a pending instance to running in a single conditional
// update. Exactly one of any number of concurrent callers observes true.
func (s *GormStorage) TryClaim(ctx context.Context, id string, executedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&core.JobInstance{}).
		Where("id = ? AND status = ?", id, core.StatusPending).
		Updates(map[string]any{
			"status":      core.StatusRunning,
			"executed_at": executedAt.UTC(),
		})
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "claim instance %s", id)
	}
	return result.RowsAffected == 1, nil
}

// Finish writes the outcome columns of inst only while the stored status
// still equals expected. It reports whether the row was updated.
func (s *GormStorage) Finish(ctx context.Context, inst *core.JobInstance, expected core.Status) (bool, error) {
	sanitize(inst)

	updates := map[string]any{
		"status":        inst.Status,
		"error_message": inst.ErrorMessage,
		"stack_trace":   inst.StackTrace,
		"executed_at":   utcPtr(inst.ExecutedAt),
		"finished_at":   utcPtr(inst.FinishedAt),
	}

	result := s.db.WithContext(ctx).
		Model(&core.JobInstance{}).
		Where("id = ? AND status = ?", inst.ID, expected).
		Updates(updates)
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "finish instance %s", inst.ID)
	}
	return result.RowsAffected == 1, nil
}

// RemoveByID deletes an instance. Removing a missing ID is not an error.
func (s *GormStorage) RemoveByID(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&core.JobInstance{}).Error
	return errors.Wrapf(err, "remove instance %s", id)
}

// sanitize bounds the free-text columns before they are written.
func sanitize(inst *core.JobInstance) {
	inst.ErrorMessage = security.SanitizeErrorMessage(inst.ErrorMessage)
	inst.StackTrace = security.SanitizeStackTrace(inst.StackTrace)
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
