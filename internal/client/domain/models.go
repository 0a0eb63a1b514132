package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"

	DefaultCountry = "UK"
)

type Client struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	FirstName    string       `gorm:"column:first_name;not null" json:"first_name"`
	LastName     string       `gorm:"column:last_name;not null" json:"last_name"`
	DateOfBirth  *time.Time   `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	Email        string       `gorm:"column:email;not null;default:''" json:"email"`
	Phone        string       `gorm:"column:phone;not null;default:''" json:"phone"`
	AddressLine1 string       `gorm:"column:address_line1;not null;default:''" json:"address_line1"`
	AddressLine2 string       `gorm:"column:address_line2;not null;default:''" json:"address_line2"`
	City         string       `gorm:"column:city;not null;default:''" json:"city"`
	Postcode     string       `gorm:"column:postcode;not null;default:''" json:"postcode"`
	Country      string       `gorm:"column:country;not null;default:'UK'" json:"country"`
	Status       string       `gorm:"column:status;not null;default:'active';index" json:"status"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ClientDetail is a client with the number of related records.
type ClientDetail struct {
	Client
	NoteCount int64 `json:"note_count"`
	TaskCount int64 `json:"task_count"`
	WillCount int64 `json:"will_count"`
}
