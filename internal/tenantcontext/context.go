// Package tenantcontext carries the authenticated principal through request contexts.
package tenantcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/errs"
)

type principalKey struct{}

// Principal is the resolved caller. TenantID is nil for platform administrators.
type Principal struct {
	TenantID *snowflake.ID   `json:"tenant_id"`
	UserID   snowflake.ID    `json:"user_id"`
	Role     authdomain.Role `json:"role"`
}

// RequireTenant returns the caller's tenant, or ErrForbidden for tenantless callers.
func (p Principal) RequireTenant() (snowflake.ID, error) {
	if p.TenantID == nil || *p.TenantID == 0 {
		return 0, errs.ErrForbidden
	}
	return *p.TenantID, nil
}

func (p Principal) IsPlatformAdmin() bool {
	return p.Role == authdomain.RolePlatformAdmin
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// TenantID resolves the caller's tenant from ctx. Missing principals are
// Unauthorized; tenantless principals are Forbidden.
func TenantID(ctx context.Context) (snowflake.ID, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return 0, errs.ErrUnauthorized
	}
	return p.RequireTenant()
}

// UserID returns the caller's user id when one is present.
func UserID(ctx context.Context) *snowflake.ID {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == 0 {
		return nil
	}
	id := p.UserID
	return &id
}
