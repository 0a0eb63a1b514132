package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Pricing) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pricing (
			id, tenant_id, single_will_price, mirror_will_price, trust_will_price,
			revenue_split_broker, revenue_split_platform, currency, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.TenantID,
		p.SingleWillPrice,
		p.MirrorWillPrice,
		p.TrustWillPrice,
		p.RevenueSplitBroker,
		p.RevenueSplitPlatform,
		p.Currency,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

// FindByTenant returns nil without error when the tenant has no pricing yet.
func (r *repo) FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.Pricing, error) {
	var p domain.Pricing
	err := db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *domain.Pricing) error {
	return db.WithContext(ctx).Exec(
		`UPDATE pricing SET
			single_will_price = ?, mirror_will_price = ?, trust_will_price = ?,
			revenue_split_broker = ?, revenue_split_platform = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		p.SingleWillPrice,
		p.MirrorWillPrice,
		p.TrustWillPrice,
		p.RevenueSplitBroker,
		p.RevenueSplitPlatform,
		p.UpdatedAt,
		p.TenantID,
		p.ID,
	).Error
}
