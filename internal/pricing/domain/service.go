package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type UpdatePricingRequest struct {
	SingleWillPrice      *int64 `json:"single_will_price" validate:"omitempty,gte=0"`
	MirrorWillPrice      *int64 `json:"mirror_will_price" validate:"omitempty,gte=0"`
	TrustWillPrice       *int64 `json:"trust_will_price" validate:"omitempty,gte=0"`
	RevenueSplitBroker   *int   `json:"revenue_split_broker" validate:"omitempty,gte=0,lte=100"`
	RevenueSplitPlatform *int   `json:"revenue_split_platform" validate:"omitempty,gte=0,lte=100"`
}

type Quote struct {
	Currency string `json:"currency"`
	Single   Share  `json:"single"`
	Mirror   Share  `json:"mirror"`
	Trust    Share  `json:"trust"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pricing *Pricing) error
	FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Pricing, error)
	Update(ctx context.Context, db *gorm.DB, pricing *Pricing) error
}

type Service interface {
	// Get returns the caller's pricing, creating the defaults on first read.
	Get(ctx context.Context) (Pricing, error)
	Update(ctx context.Context, req UpdatePricingRequest) (Pricing, error)
	Quote(ctx context.Context) (Quote, error)
	// EnsureDefaults creates default pricing for tenantID inside tx when none exists.
	EnsureDefaults(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (Pricing, error)
}
