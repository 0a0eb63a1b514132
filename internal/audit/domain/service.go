package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry describes one event to record. UserID defaults to the caller in ctx.
type Entry struct {
	TenantID   *snowflake.ID
	UserID     *snowflake.ID
	Event      string
	EntityType string
	EntityID   string
	Meta       map[string]any
}

type ListRequest struct {
	pagination.Pagination
	Event    string `form:"event"`
	TenantID string `form:"tenant_id"`
	// Start and End accept YYYY-MM-DD or RFC3339. A date-only End includes that whole day.
	Start string `form:"start_date"`
	End   string `form:"end_date"`
}

type Facets struct {
	Events    []string `json:"events"`
	TenantIDs []string `json:"tenant_ids"`
}

type ListResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
	Facets    Facets     `json:"facets"`
}

type ListFilter struct {
	Event     string
	TenantID  *snowflake.ID
	Start     *time.Time
	End       *time.Time
	PageToken string
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
	DistinctEvents(ctx context.Context, db *gorm.DB, filter ListFilter) ([]string, error)
	DistinctTenants(ctx context.Context, db *gorm.DB, filter ListFilter) ([]snowflake.ID, error)
}

// Service records and queries the audit trail. Record joins the caller's
// transaction when tx is non-nil; its error must abort that transaction.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidEvent     = errs.New(errs.KindValidationFailed, "invalid_event")
	ErrInvalidTenant    = errs.New(errs.KindValidationFailed, "invalid_tenant_id")
	ErrInvalidTimeRange = errs.New(errs.KindValidationFailed, "invalid_time_range")
	ErrInvalidPageToken = errs.New(errs.KindValidationFailed, "invalid_page_token")
)
