package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/audit/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, tenant_id, user_id, event, entity_type, entity_id, meta, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TenantID,
		entry.UserID,
		entry.Event,
		entry.EntityType,
		entry.EntityID,
		entry.Meta,
		entry.OccurredAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt, err := pagination.Apply(r.filtered(ctx, db, filter), "occurred_at", filter.PageToken, filter.Limit)
	if err != nil {
		return nil, err
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// DistinctEvents ignores the event filter so the facet lists every alternative.
func (r *repo) DistinctEvents(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]string, error) {
	filter.Event = ""
	var events []string
	err := r.filtered(ctx, db, filter).
		Distinct("event").
		Order("event").
		Pluck("event", &events).Error
	return events, err
}

func (r *repo) DistinctTenants(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]snowflake.ID, error) {
	filter.TenantID = nil
	var ids []snowflake.ID
	err := r.filtered(ctx, db, filter).
		Where("tenant_id IS NOT NULL").
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

func (r *repo) filtered(ctx context.Context, db *gorm.DB, filter domain.ListFilter) *gorm.DB {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})
	if filter.Event != "" {
		stmt = stmt.Where("event = ?", filter.Event)
	}
	if filter.TenantID != nil {
		stmt = stmt.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Start != nil {
		stmt = stmt.Where("occurred_at >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		stmt = stmt.Where("occurred_at < ?", filter.End.UTC())
	}
	return stmt
}
