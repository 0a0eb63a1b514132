package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/note/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notes (id, tenant_id, client_id, author_id, content, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.TenantID,
		note.ClientID,
		note.AuthorID,
		note.Content,
		note.Type,
		note.CreatedAt,
	).Error
}

func (r *repo) ListByClient(ctx context.Context, db *gorm.DB, tenantID, clientID snowflake.ID, pageToken string, limit int) ([]*domain.Note, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Note{}).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID)
	stmt, err := pagination.Apply(stmt, "created_at", pageToken, limit)
	if err != nil {
		return nil, err
	}

	var notes []*domain.Note
	if err := stmt.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
