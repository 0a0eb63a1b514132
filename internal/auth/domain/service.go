package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ListByTenants(ctx context.Context, db *gorm.DB, tenantIDs []snowflake.ID) ([]User, error)
	UpdatePassword(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string, at time.Time) error
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Resolve(ctx context.Context, rawToken string) (*Session, error)
	CurrentUser(ctx context.Context, userID snowflake.ID) (*User, error)
	CreateUser(ctx context.Context, tx *gorm.DB, req CreateUserRequest) (*User, error)
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Session is what a valid session token resolves to.
type Session struct {
	UserID    snowflake.ID
	TenantID  *snowflake.ID
	Role      Role
	ExpiresAt time.Time
}

type CreateUserRequest struct {
	TenantID *snowflake.ID
	Email    string
	Name     string
	Password string
	Role     Role
}

type PasswordResetRequest struct {
	Email     string `json:"email"`
	IPAddress string `json:"-"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
