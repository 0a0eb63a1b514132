package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/mywill/internal/analytics/domain"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/auth/session"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	dashboarddomain "github.com/smallbiznis/mywill/internal/dashboard/domain"
	documentdomain "github.com/smallbiznis/mywill/internal/document/domain"
	"github.com/smallbiznis/mywill/internal/errs"
	notedomain "github.com/smallbiznis/mywill/internal/note/domain"
	"github.com/smallbiznis/mywill/internal/observability"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/storage"
	taskdomain "github.com/smallbiznis/mywill/internal/task/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	tenantdomain "github.com/smallbiznis/mywill/internal/tenant/domain"
	willdomain "github.com/smallbiznis/mywill/internal/will/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	tenantA = snowflake.ID(100)

	brokerSession = &authdomain.Session{UserID: 10, TenantID: &tenantA, Role: authdomain.RoleBroker}
	adminSession  = &authdomain.Session{UserID: 20, Role: authdomain.RolePlatformAdmin}
)

type fakeAuthService struct {
	authdomain.Service

	sessions map[string]*authdomain.Session
	loginErr error
}

func (f *fakeAuthService) Resolve(ctx context.Context, raw string) (*authdomain.Session, error) {
	s, ok := f.sessions[raw]
	if !ok {
		return nil, authdomain.ErrInvalidSession
	}
	return s, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &authdomain.LoginResult{
		Token:     "broker-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &authdomain.User{ID: 10, Email: req.Email, Role: authdomain.RoleBroker},
	}, nil
}

func (f *fakeAuthService) CurrentUser(ctx context.Context, userID snowflake.ID) (*authdomain.User, error) {
	return &authdomain.User{ID: userID, Email: "broker@alder.co.uk", Role: authdomain.RoleBroker}, nil
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, req authdomain.PasswordResetRequest) error {
	return nil
}

type fakeAuthorizer struct {
	deny map[string]bool
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, p tenantcontext.Principal, object, action string) error {
	if f.deny[object+":"+action] {
		return errs.New(errs.KindForbidden, "permission_denied")
	}
	return nil
}

type fakeWillService struct {
	willdomain.Service

	getErr     error
	updateErr  error
	seenTenant snowflake.ID
}

func (f *fakeWillService) Get(ctx context.Context, id string) (willdomain.Will, error) {
	if f.getErr != nil {
		return willdomain.Will{}, f.getErr
	}
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return willdomain.Will{}, err
	}
	f.seenTenant = tenantID
	return willdomain.Will{ID: 1, TenantID: tenantID, Status: willdomain.StatusDraft, Version: 1}, nil
}

func (f *fakeWillService) Update(ctx context.Context, id string, req willdomain.UpdateWillRequest) (willdomain.Will, error) {
	return willdomain.Will{}, f.updateErr
}

func (f *fakeWillService) Preview(ctx context.Context, id string) (willdomain.Preview, error) {
	return willdomain.Preview{
		WillID:         1,
		Version:        3,
		ChecksumSHA256: "abc123",
		PDF:            []byte("%PDF-1.4 draft"),
	}, nil
}

type fakeClientService struct {
	clientdomain.Service

	createErr error
}

func (f *fakeClientService) Create(ctx context.Context, req clientdomain.CreateClientRequest) (clientdomain.Client, error) {
	if f.createErr != nil {
		return clientdomain.Client{}, f.createErr
	}
	return clientdomain.Client{ID: 5, TenantID: tenantA, FirstName: req.FirstName, LastName: req.LastName}, nil
}

func (f *fakeClientService) List(ctx context.Context, req clientdomain.ListClientRequest) (clientdomain.ListClientResponse, error) {
	return clientdomain.ListClientResponse{}, errors.New("connection reset")
}

type fakeStorage struct {
	storage.Provider

	files map[string]string
}

func (f *fakeStorage) Verify(key, token string) error {
	if token != "valid" {
		return storage.ErrInvalidToken
	}
	return nil
}

func (f *fakeStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[strings.TrimPrefix(key, "/")]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type testServer struct {
	engine  *gin.Engine
	auth    *fakeAuthService
	authz   *fakeAuthorizer
	wills   *fakeWillService
	clients *fakeClientService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		engine: NewEngine(observability.Config{Environment: "test"}, nil),
		auth: &fakeAuthService{sessions: map[string]*authdomain.Session{
			"broker-token": brokerSession,
			"admin-token":  adminSession,
		}},
		authz:   &fakeAuthorizer{deny: map[string]bool{}},
		wills:   &fakeWillService{},
		clients: &fakeClientService{},
	}

	NewServer(ServerParams{
		Gin:          ts.engine,
		Cfg:          config.Config{Environment: "test"},
		Log:          zap.NewNop(),
		Authsvc:      ts.auth,
		Sessions:     session.NewManager(config.Config{}, clock.SystemClock{}),
		AuthzSvc:     ts.authz,
		AuditSvc:     auditdomain.Service(nil),
		ClientSvc:    ts.clients,
		NoteSvc:      notedomain.Service(nil),
		TaskSvc:      taskdomain.Service(nil),
		WillSvc:      ts.wills,
		PricingSvc:   pricingdomain.Service(nil),
		TenantSvc:    tenantdomain.Service(nil),
		DocumentSvc:  documentdomain.Service(nil),
		DashboardSvc: dashboarddomain.Service(nil),
		AnalyticsSvc: analyticsdomain.Service(nil),
		Storage:      &fakeStorage{files: map[string]string{"tenants/100/wills/1/signed.pdf": "%PDF-signed"}},
	})
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = strings.NewReader(v)
		default:
			raw, _ := json.Marshal(v)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/wills/1", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decodeError(t, w).Type)
	})

	t.Run("unknown token", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/wills/1", "forged", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_session", decodeError(t, w).Code)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/wills/1", nil)
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "broker-token"})
		w := httptest.NewRecorder()
		ts.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantA, ts.wills.seenTenant)
	})
}

func TestTenantAndAdminGuards(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/wills/1", "admin-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/admin/brokers", "broker-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Type)
}

func TestAuthorizationDenied(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.deny["will:write"] = true

	w := ts.do(http.MethodPatch, "/api/wills/1", "broker-token", map[string]any{})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", decodeError(t, w).Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
		code   string
	}{
		{"not found", willdomain.ErrNotFound, http.StatusNotFound, "not_found", "will_not_found"},
		{"invalid state", willdomain.ErrNotDraft, http.StatusConflict, "invalid_state", "will_not_draft"},
		{"concurrent", willdomain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification", "will_version_conflict"},
		{"unclassified", errors.New("disk full"), http.StatusInternalServerError, "internal_error", "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.wills.updateErr = tc.err

			w := ts.do(http.MethodPatch, "/api/wills/1", "broker-token", map[string]any{"expected_version": 1})

			assert.Equal(t, tc.status, w.Code)
			payload := decodeError(t, w)
			assert.Equal(t, tc.kind, payload.Type)
			assert.Equal(t, tc.code, payload.Code)
		})
	}
}

func TestValidationEnvelope(t *testing.T) {
	ts := newTestServer(t)
	verrs := &errs.ValidationErrors{}
	verrs.Add("first_name", "required", "first_name is required")
	verrs.Add("email", "email", "email is invalid")
	ts.clients.createErr = verrs

	w := ts.do(http.MethodPost, "/api/clients", "broker-token", map[string]any{"email": "nope"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 2)
	assert.Equal(t, "first_name", payload.Errors[0].Field)
	assert.Equal(t, "email", payload.Errors[1].Field)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/clients", "broker-token", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Errors[0].Code)
}

func TestCreateClientEnvelope(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/clients", "broker-token", map[string]any{"first_name": "John", "last_name": "Smith"})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data clientdomain.Client `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "John", resp.Data.FirstName)
	assert.Equal(t, tenantA, resp.Data.TenantID)
}

func TestUnclassifiedErrorIsGeneric(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/clients", "broker-token", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
	assert.Equal(t, "internal_error", decodeError(t, w).Code)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "connection reset", fields["error"])
	assert.Equal(t, "internal_error", fields["error_type"])
}

func TestLogin(t *testing.T) {
	t.Run("sets session cookie", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "broker@alder.co.uk", "password": "test1234"})

		require.Equal(t, http.StatusOK, w.Code)
		cookie := w.Header().Get("Set-Cookie")
		assert.Contains(t, cookie, session.DefaultCookieName+"=broker-token")
		assert.Contains(t, cookie, "HttpOnly")
	})

	t.Run("throttled", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.loginErr = authdomain.ErrTooManyAttempts

		w := ts.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "broker@alder.co.uk", "password": "x"})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "too_many_attempts", decodeError(t, w).Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.loginErr = authdomain.ErrInvalidCredentials

		w := ts.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "broker@alder.co.uk", "password": "x"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordResetAlwaysSameMessage(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/auth/reset", "", map[string]any{"email": "nobody@example.com"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), passwordResetMessage)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/auth/me", "broker-token", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"broker"`)
}

func TestPreviewPDF(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/wills/1/preview.pdf", "broker-token", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "abc123", w.Header().Get("X-Checksum-SHA256"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "will-1-v3-draft.pdf")
	assert.Equal(t, "%PDF-1.4 draft", w.Body.String())
}

func TestDownloadFile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/files/tenants/100/wills/1/signed.pdf?token=valid", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-signed", w.Body.String())

	w = ts.do(http.MethodGet, "/files/tenants/100/wills/1/signed.pdf?token=forged", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/files/tenants/100/wills/2/signed.pdf?token=valid", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNoRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}
