// Package domain contains core types for authentication.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a login account. Platform administrators have no tenant.
type User struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID     *snowflake.ID `gorm:"column:tenant_id;index" json:"tenant_id"`
	Email        string        `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	Name         string        `gorm:"column:name;type:text;not null" json:"name"`
	PasswordHash string        `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         Role          `gorm:"column:role;type:text;not null" json:"role"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }
