package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errs.New(errs.KindNotFound, "tenant_not_found")
	ErrInvalidPageToken = errs.New(errs.KindValidationFailed, "invalid_page_token")
)

type CreateBrokerRequest struct {
	TenantName string `json:"tenant_name" validate:"required,max=200"`
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
}

type CreateBrokerResponse struct {
	Tenant Tenant     `json:"tenant"`
	User   BrokerUser `json:"user"`
}

type ListBrokerRequest struct {
	pagination.Pagination
}

type ListBrokerResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Brokers  []Broker            `json:"brokers"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)
	List(ctx context.Context, db *gorm.DB, pageToken string, limit int) ([]*Tenant, error)
	Counts(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Counts, error)
}

// Service provisions and lists tenants. Every method except Find is
// platform-scoped and expects an authorized platform administrator.
type Service interface {
	ListBrokers(ctx context.Context, req ListBrokerRequest) (ListBrokerResponse, error)
	CreateBroker(ctx context.Context, req CreateBrokerRequest) (CreateBrokerResponse, error)
	Find(ctx context.Context, id snowflake.ID) (*Tenant, error)
}
