package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Client, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListClientFilter) ([]*Client, error)
	Update(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, fields map[string]any) error
	Counts(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (notes, tasks, wills int64, err error)
}
