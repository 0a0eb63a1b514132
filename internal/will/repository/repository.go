package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/will/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, will *domain.Will) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wills (
			id, tenant_id, client_id, status, version, json_payload, draft_markdown, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		will.ID,
		will.TenantID,
		will.ClientID,
		will.Status,
		will.Version,
		will.JSONPayload,
		will.DraftMarkdown,
		will.CreatedAt,
		will.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Will, error) {
	var will domain.Will
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&will).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &will, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListWillFilter) ([]*domain.Will, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Will{}).
		Where("tenant_id = ?", tenantID)
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, "created_at", filter.PageToken, filter.Limit)
	if err != nil {
		return nil, err
	}

	var items []*domain.Will
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateDraft(ctx context.Context, db *gorm.DB, will *domain.Will, expectedVersion int) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE wills
		 SET json_payload = ?, draft_markdown = ?, version = ?, updated_at = ?
		 WHERE id = ? AND tenant_id = ? AND version = ? AND status = ?`,
		will.JSONPayload,
		will.DraftMarkdown,
		will.Version,
		will.UpdatedAt,
		will.ID,
		will.TenantID,
		expectedVersion,
		domain.StatusDraft,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, from, to domain.Status, at time.Time, signed *domain.SignedFields) (int64, error) {
	fields := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if signed != nil {
		fields["signed_pdf_url"] = signed.SignedPDFURL
		fields["checksum_sha256"] = signed.ChecksumSHA256
		fields["lock_at"] = signed.LockAt
	}
	res := db.WithContext(ctx).
		Model(&domain.Will{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteDraft(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM wills WHERE id = ? AND tenant_id = ? AND status = ?`,
		id, tenantID, domain.StatusDraft,
	)
	return res.RowsAffected, res.Error
}
