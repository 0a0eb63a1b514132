// Package session carries the broker session token between the browser and the API.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
)

const (
	DefaultCookieName = "_sid"
	bearerScheme      = "Bearer"
)

// Manager reads the session token from a request and writes it back as an
// HttpOnly cookie. API clients may send it as a bearer token instead.
type Manager struct {
	cookieName string
	secure     bool
	clock      clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
		clock:      clk,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken prefers the cookie and falls back to the Authorization header.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if raw, err := c.Cookie(m.cookieName); err == nil {
		if token := strings.TrimSpace(raw); token != "" {
			return token, true
		}
	}
	return bearerToken(c.GetHeader("Authorization"))
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Set writes the token with a max age matching the token expiry.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	m.write(c, token, m.maxAge(expiresAt))
}

func (m *Manager) Clear(c *gin.Context) {
	m.write(c, "", -1)
}

func (m *Manager) maxAge(expiresAt time.Time) int {
	secs := int(expiresAt.Sub(m.clock.Now()) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

func (m *Manager) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}
