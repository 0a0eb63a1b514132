package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/mywill/internal/observability/context"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
)

// AuthRequired resolves the session token into a principal and stores it on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Resolve(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		principal := tenantcontext.Principal{
			TenantID: session.TenantID,
			UserID:   session.UserID,
			Role:     session.Role,
		}
		tenantID := ""
		if principal.TenantID != nil {
			tenantID = principal.TenantID.String()
		}

		ctx := tenantcontext.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithPrincipal(ctx, tenantID, principal.UserID.String(), principal.Role.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize checks the caller's role against the policy for object and action.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := tenantcontext.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// requireTenant rejects tenantless callers before tenant routes run.
func requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := tenantcontext.TenantID(c.Request.Context()); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func requirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := tenantcontext.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !principal.IsPlatformAdmin() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func idParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
