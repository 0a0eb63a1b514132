package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (
			id, tenant_id, first_name, last_name, date_of_birth, email, phone,
			address_line1, address_line2, city, postcode, country, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.TenantID,
		client.FirstName,
		client.LastName,
		client.DateOfBirth,
		client.Email,
		client.Phone,
		client.AddressLine1,
		client.AddressLine2,
		client.City,
		client.Postcode,
		client.Country,
		client.Status,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListClientFilter) ([]*domain.Client, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like,
		)
	}

	stmt, err := pagination.Apply(stmt, "created_at", filter.PageToken, filter.Limit)
	if err != nil {
		return nil, err
	}

	var clients []*domain.Client
	if err := stmt.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Counts(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (int64, int64, int64, error) {
	var row struct {
		Notes int64 `gorm:"column:notes"`
		Tasks int64 `gorm:"column:tasks"`
		Wills int64 `gorm:"column:wills"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM notes WHERE tenant_id = ? AND client_id = ?) AS notes,
			(SELECT COUNT(*) FROM tasks WHERE tenant_id = ? AND client_id = ?) AS tasks,
			(SELECT COUNT(*) FROM wills WHERE tenant_id = ? AND client_id = ?) AS wills`,
		tenantID, id, tenantID, id, tenantID, id,
	).Scan(&row).Error
	return row.Notes, row.Tasks, row.Wills, err
}
