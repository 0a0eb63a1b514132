package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/analytics/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 100

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(events, insertBatchSize).Error
}

func (r *repo) StepCounts(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end *time.Time) ([]domain.StepCount, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Event{}).
		Select(`step,
			event_type,
			COUNT(*) AS count,
			COALESCE(SUM(duration_ms), 0) AS total_duration,
			COUNT(duration_ms) AS timed_count`).
		Where("tenant_id = ?", tenantID).
		Where("event_type IN ?", []string{domain.EventStepCompleted, domain.EventStepAbandoned}).
		Where("step <> ''")
	stmt = withRange(stmt, start, end)

	var rows []domain.StepCount
	if err := stmt.Group("step, event_type").Order("step ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, eventType string, start, end *time.Time) (int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("tenant_id = ? AND event_type = ?", tenantID, eventType)
	stmt = withRange(stmt, start, end)

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func withRange(stmt *gorm.DB, start, end *time.Time) *gorm.DB {
	if start != nil {
		stmt = stmt.Where("occurred_at >= ?", *start)
	}
	if end != nil {
		stmt = stmt.Where("occurred_at < ?", *end)
	}
	return stmt
}
