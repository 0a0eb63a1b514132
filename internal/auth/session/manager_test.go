package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(req *http.Request) *gin.Context {
	c, _ := newRecordedContext(req)
	return c
}

func newRecordedContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestReadToken(t *testing.T) {
	m := NewManager(config.Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := m.ReadToken(newContext(req))
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	token, ok := m.ReadToken(newContext(req))
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	_, ok = m.ReadToken(newContext(req))
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	token, ok = m.ReadToken(newContext(req))
	assert.True(t, ok)
	assert.Equal(t, "from-cookie", token)
}

func TestSetUsesTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewManager(config.Config{AuthCookieSecure: true}, clock.NewFakeClock(now))

	c, w := newRecordedContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	m.Set(c, "tok", now.Add(2*time.Hour))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}

func TestClearExpiresCookie(t *testing.T) {
	m := NewManager(config.Config{}, nil)

	c, w := newRecordedContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	m.Clear(c)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
