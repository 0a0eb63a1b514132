package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/mywill/internal/audit/repository"
	auditservice "github.com/smallbiznis/mywill/internal/audit/service"
	"github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/auth/repository"
	"github.com/smallbiznis/mywill/internal/auth/token"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

func (m *mockEmail) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	return m.Called(ctx, to, templateName, data).Error(0)
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	clk    *clock.FakeClock
	node   *snowflake.Node
	email  *mockEmail
	tokens *token.Issuer
}

func setup(t *testing.T) fixture {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &auditdomain.AuditLog{}))

	node, _ := snowflake.NewNode(1)
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	tokens := token.New([]byte("test-secret"), clk)
	mailer := new(mockEmail)

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Cfg:      config.Config{PublicURL: "https://app.mywill.test/", AuthSessionTTL: time.Hour},
		GenID:    node,
		Clock:    clk,
		Repo:     repository.New(),
		Tokens:   tokens,
		AuditSvc: audit,
		Email:    mailer,
	}).(*Service)

	return fixture{db: db, svc: svc, clk: clk, node: node, email: mailer, tokens: tokens}
}

func createBroker(t *testing.T, f fixture) *domain.User {
	tenantID := f.node.Generate()
	user, err := f.svc.CreateUser(context.Background(), nil, domain.CreateUserRequest{
		TenantID: &tenantID,
		Email:    " Broker@Alder.co.uk ",
		Name:     "Alex Broker",
		Password: "secret1",
		Role:     domain.RoleBroker,
	})
	require.NoError(t, err)
	return user
}

func TestCreateUser(t *testing.T) {
	f := setup(t)
	user := createBroker(t, f)
	assert.Equal(t, "broker@alder.co.uk", user.Email)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.CreateUser(context.Background(), nil, domain.CreateUserRequest{
			TenantID: user.TenantID, Email: "broker@alder.co.uk", Name: "Other", Password: "secret2", Role: domain.RoleBroker,
		})
		require.ErrorIs(t, err, errs.ErrValidationFailed)
		var verrs *errs.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "email", verrs.Errors[0].Field)
	})

	t.Run("broker without tenant", func(t *testing.T) {
		_, err := f.svc.CreateUser(context.Background(), nil, domain.CreateUserRequest{
			Email: "x@y.uk", Name: "X", Password: "short", Role: domain.RoleBroker,
		})
		var verrs *errs.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs.Errors, 2)
	})
}

func TestLoginAndResolve(t *testing.T) {
	f := setup(t)
	user := createBroker(t, f)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, domain.LoginRequest{Email: "broker@alder.co.uk", Password: "wrong!!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "nobody@alder.co.uk", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	res, err := f.svc.Login(ctx, domain.LoginRequest{Email: "BROKER@alder.co.uk", Password: "secret1", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, f.clk.Now().Add(time.Hour), res.ExpiresAt)

	var logs []auditdomain.AuditLog
	require.NoError(t, f.db.Where("event = ?", auditdomain.EventLogin).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, *user.TenantID, *logs[0].TenantID)

	sess, err := f.svc.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, *user.TenantID, *sess.TenantID)
	assert.Equal(t, domain.RoleBroker, sess.Role)

	t.Run("expired", func(t *testing.T) {
		f.clk.Advance(2 * time.Hour)
		_, err := f.svc.Resolve(ctx, res.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.svc.Resolve(ctx, "not-a-token")
		assert.ErrorIs(t, err, errs.ErrUnauthorized)
	})
}

func TestPasswordReset(t *testing.T) {
	f := setup(t)
	user := createBroker(t, f)
	ctx := context.Background()

	var sentURL string
	f.email.On("SendTemplate", mock.Anything, []string{user.Email}, "password_reset", mock.Anything).
		Run(func(args mock.Arguments) {
			sentURL = args.Get(3).(map[string]any)["reset_url"].(string)
		}).Return(nil).Once()

	require.NoError(t, f.svc.RequestPasswordReset(ctx, domain.PasswordResetRequest{Email: user.Email}))
	f.email.AssertExpectations(t)
	require.Contains(t, sentURL, "https://app.mywill.test/reset-password?token=")

	t.Run("unknown email is silent", func(t *testing.T) {
		require.NoError(t, f.svc.RequestPasswordReset(ctx, domain.PasswordResetRequest{Email: "ghost@alder.co.uk"}))
		f.email.AssertNumberOfCalls(t, "SendTemplate", 1)
	})

	raw := sentURL[len("https://app.mywill.test/reset-password?token="):]
	f.clk.Advance(time.Second)

	err := f.svc.ConfirmPasswordReset(ctx, domain.PasswordResetConfirm{Token: raw, Password: "abc"})
	assert.ErrorIs(t, err, errs.ErrValidationFailed)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, domain.PasswordResetConfirm{Token: raw, Password: "new-secret"}))

	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: user.Email, Password: "new-secret"})
	require.NoError(t, err)

	t.Run("token is single use", func(t *testing.T) {
		f.clk.Advance(time.Second)
		err := f.svc.ConfirmPasswordReset(ctx, domain.PasswordResetConfirm{Token: raw, Password: "another1"})
		assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
	})

	t.Run("session token rejected", func(t *testing.T) {
		claims := token.Claims{Purpose: token.PurposeSession}
		claims.Subject = user.ID.String()
		session, _, err := f.tokens.Issue(claims, time.Hour)
		require.NoError(t, err)
		err = f.svc.ConfirmPasswordReset(ctx, domain.PasswordResetConfirm{Token: session, Password: "another1"})
		assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
	})

	var count int64
	f.db.Model(&auditdomain.AuditLog{}).Where("event IN ?", []string{
		auditdomain.EventPasswordResetRequested, auditdomain.EventPasswordResetCompleted,
	}).Count(&count)
	assert.Equal(t, int64(2), count)
}
