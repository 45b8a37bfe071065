package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jdziat/simple-durable-cron/pkg/core"
)

// DefaultSearchLimit caps SearchInstances when the filter sets no limit.
const DefaultSearchLimit = 50

// InstanceFilter narrows SearchInstances. Zero fields do not filter.
type InstanceFilter struct {
	Status core.Status
	Code   string
	Since  time.Time // scheduled at or after
	Until  time.Time // scheduled at or before
	Limit  int
	Offset int
}

// SearchInstances returns instances matching the filter, newest scheduled
// first, with the total match count.
func (s *GormStorage) SearchInstances(ctx context.Context, filter InstanceFilter) ([]*core.JobInstance, int64, error) {
	q := s.db.WithContext(ctx).Model(&core.JobInstance{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Code != "" {
		q = q.Where("code = ?", filter.Code)
	}
	if !filter.Since.IsZero() {
		q = q.Where("scheduled_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("scheduled_at <= ?", filter.Until.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count instances")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var list []*core.JobInstance
	err := q.Order("scheduled_at DESC, code ASC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "search instances")
	}

	return list, total, nil
}

// StatusCounts returns the number of instances per status. Every known
// status is present in the result.
func (s *GormStorage) StatusCounts(ctx context.Context) (map[core.Status]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&core.JobInstance{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count instances by status")
	}

	counts := map[core.Status]int64{
		core.StatusPending: 0,
		core.StatusRunning: 0,
		core.StatusSuccess: 0,
		core.StatusError:   0,
		core.StatusMissed:  0,
	}
	for _, r := range rows {
		counts[core.Status(r.Status)] += r.Count
	}
	return counts, nil
}

// Clear deletes every instance and returns how many were removed.
func (s *GormStorage) Clear(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&core.JobInstance{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "clear instances")
	}
	return result.RowsAffected, nil
}

// Destroy drops the instance table.
func (s *GormStorage) Destroy(ctx context.Context) error {
	err := s.db.WithContext(ctx).Migrator().DropTable(&core.JobInstance{})
	return errors.Wrap(err, "drop job instances")
}
