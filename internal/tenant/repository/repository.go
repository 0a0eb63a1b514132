package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/tenant/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, t *domain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (id, name, slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Slug,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.Tenant{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, pageToken string, limit int) ([]*domain.Tenant, error) {
	stmt, err := pagination.Apply(db.WithContext(ctx).Model(&domain.Tenant{}), "created_at", pageToken, limit)
	if err != nil {
		return nil, err
	}
	var items []*domain.Tenant
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

type countRow struct {
	TenantID snowflake.ID
	N        int64
}

func (r *repo) Counts(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Counts, error) {
	out := make(map[snowflake.ID]domain.Counts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		out[id] = domain.Counts{TenantID: id}
	}

	var clients []countRow
	if err := db.WithContext(ctx).Raw(
		`SELECT tenant_id, COUNT(*) AS n FROM clients WHERE tenant_id IN ? GROUP BY tenant_id`, ids,
	).Scan(&clients).Error; err != nil {
		return nil, err
	}
	for _, row := range clients {
		c := out[row.TenantID]
		c.ClientCount = row.N
		out[row.TenantID] = c
	}

	var wills []countRow
	if err := db.WithContext(ctx).Raw(
		`SELECT tenant_id, COUNT(*) AS n FROM wills WHERE tenant_id IN ? GROUP BY tenant_id`, ids,
	).Scan(&wills).Error; err != nil {
		return nil, err
	}
	for _, row := range wills {
		c := out[row.TenantID]
		c.WillCount = row.N
		out[row.TenantID] = c
	}
	return out, nil
}
