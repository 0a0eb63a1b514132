package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/mywill/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "invalid_state", "will_not_draft" },
	}))
	return r, logs
}

func TestGinMiddlewareAssignsRequestID(t *testing.T) {
	r, logs := newObservedEngine(t)
	var seen string
	r.GET("/api/wills/:id", func(c *gin.Context) {
		seen = obscontext.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/wills/1", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(requestIDHeader))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/wills/:id", fields["route"])
	assert.Equal(t, seen, fields["request_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestGinMiddlewareRequestIDHeader(t *testing.T) {
	r, _ := newObservedEngine(t)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestGinMiddlewareLogsClassifiedError(t *testing.T) {
	r, logs := newObservedEngine(t)
	r.POST("/api/wills/:id/send_for_approval", func(c *gin.Context) {
		_ = c.Error(errors.New("not draft"))
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/wills/9/send_for_approval", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "invalid_state", entries[0].ContextMap()["error_type"])
	assert.Equal(t, "will_not_draft", entries[0].ContextMap()["error_code"])
	assert.Equal(t, "not draft", entries[0].ContextMap()["error"])
}

func TestGinMiddlewareOmitsCauseForClientErrors(t *testing.T) {
	r, logs := newObservedEngine(t)
	r.GET("/api/wills/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("will_not_found"))
		c.Status(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/wills/9", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "error")
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFor("/metrics", http.StatusOK))
	assert.Equal(t, zapcore.WarnLevel, levelFor("/auth/login", http.StatusTooManyRequests))
	assert.Equal(t, zapcore.ErrorLevel, levelFor("/health", http.StatusServiceUnavailable))
	assert.Equal(t, zapcore.InfoLevel, levelFor("/api/clients", http.StatusNotFound))
}
