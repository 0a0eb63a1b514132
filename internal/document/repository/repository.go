package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/document/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO documents (
			id, tenant_id, client_id, will_id, kind, storage_key, checksum_sha256, size_bytes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.TenantID,
		doc.ClientID,
		doc.WillID,
		doc.Kind,
		doc.StorageKey,
		doc.ChecksumSHA256,
		doc.SizeBytes,
		doc.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListDocumentFilter) ([]*domain.Document, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("tenant_id = ?", tenantID)
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	stmt, err := pagination.Apply(stmt, "created_at", filter.PageToken, filter.Limit)
	if err != nil {
		return nil, err
	}

	var items []*domain.Document
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
