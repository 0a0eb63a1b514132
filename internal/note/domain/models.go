package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	TypeGeneral   = "general"
	TypeImportant = "important"
	TypeUrgent    = "urgent"
)

type Note struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	ClientID  snowflake.ID  `gorm:"not null;index" json:"client_id"`
	AuthorID  *snowflake.ID `gorm:"column:author_id" json:"author_id,omitempty"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	Type      string        `gorm:"not null;default:'general'" json:"type"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
}

type CreateNoteRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
	Type    string `json:"type" validate:"omitempty,oneof=general important urgent"`
}

type ListNoteRequest struct {
	pagination.Pagination
}

type ListNoteResponse struct {
	pagination.PageInfo
	Notes []Note `json:"notes"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, note *Note) error
	ListByClient(ctx context.Context, db *gorm.DB, tenantID, clientID snowflake.ID, pageToken string, limit int) ([]*Note, error)
}

type Service interface {
	Create(ctx context.Context, clientID string, req CreateNoteRequest) (Note, error)
	List(ctx context.Context, clientID string, req ListNoteRequest) (ListNoteResponse, error)
}
