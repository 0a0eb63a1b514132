// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
)

// Tenant is a broker organisation. Every tenant-scoped row carries its id.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_tenants_slug" json:"slug"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// Counts holds per-tenant activity totals.
type Counts struct {
	TenantID    snowflake.ID `json:"-"`
	ClientCount int64        `json:"client_count"`
	WillCount   int64        `json:"will_count"`
}

type BrokerUser struct {
	ID        snowflake.ID    `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      authdomain.Role `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

// Broker is a tenant with its users and activity counts.
type Broker struct {
	Tenant
	Users []BrokerUser `json:"users"`
	Counts
}
