package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

// KindSignedWill is the only stored kind; draft previews are rendered on demand.
const KindSignedWill = "signed_will"

// Document is a stored rendering of a will.
type Document struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	ClientID       snowflake.ID  `gorm:"not null;index" json:"client_id"`
	WillID         *snowflake.ID `gorm:"index" json:"will_id"`
	Kind           string        `gorm:"type:text;not null" json:"kind"`
	StorageKey     string        `gorm:"type:text;not null" json:"storage_key"`
	ChecksumSHA256 string        `gorm:"column:checksum_sha256;type:text;not null" json:"checksum_sha256"`
	SizeBytes      int64         `gorm:"not null" json:"size_bytes"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	URL            string        `gorm:"-" json:"url,omitempty"`
}

func (Document) TableName() string { return "documents" }

type ListDocumentRequest struct {
	pagination.Pagination
	Kind     string `form:"kind" json:"kind" validate:"omitempty,oneof=signed_will"`
	ClientID string `form:"client_id" json:"client_id"`
}

type ListDocumentFilter struct {
	Kind      string
	ClientID  *snowflake.ID
	PageToken string
	Limit     int
}

type ListDocumentResponse struct {
	PageInfo  pagination.PageInfo `json:"page_info"`
	Documents []Document          `json:"documents"`
}

var ErrInvalidPageToken = errs.New(errs.KindValidationFailed, "invalid_page_token")

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListDocumentFilter) ([]*Document, error)
}

type Service interface {
	// Record inserts doc inside tx. ID and CreatedAt are filled when unset.
	Record(ctx context.Context, tx *gorm.DB, doc *Document) error
	List(ctx context.Context, req ListDocumentRequest) (ListDocumentResponse, error)
}
