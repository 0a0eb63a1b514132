package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	"github.com/smallbiznis/mywill/internal/audit/masking"
	"github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/auth/password"
	"github.com/smallbiznis/mywill/internal/auth/token"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/observability/logger"
	"github.com/smallbiznis/mywill/internal/providers/email"
	"github.com/smallbiznis/mywill/internal/ratelimit"
	pkgdb "github.com/smallbiznis/mywill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resetTokenTTL = 24 * time.Hour

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Tokens   *token.Issuer
	AuditSvc auditdomain.Service
	Email    email.Provider
	Limiter  *ratelimit.AuthLimiter `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	tokens     *token.Issuer
	auditSvc   auditdomain.Service
	email      email.Provider
	limiter    *ratelimit.AuthLimiter
	sessionTTL time.Duration
	publicURL  string
}

func New(p Params) domain.Service {
	ttl := p.Cfg.AuthSessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		tokens:     p.Tokens,
		auditSvc:   p.AuditSvc,
		email:      p.Email,
		limiter:    p.Limiter,
		sessionTTL: ttl,
		publicURL:  strings.TrimRight(p.Cfg.PublicURL, "/"),
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	emailAddr := normalizeEmail(req.Email)
	if emailAddr == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if ok, retry := s.limiter.Allow(ctx, "login", emailAddr, req.IPAddress); !ok {
		logger.WithContext(ctx, s.log).Warn("login throttled",
			zap.String("email", masking.MaskEmail(emailAddr)),
			zap.Duration("retry_after", retry),
		)
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.repo.FindByEmail(ctx, s.db, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	claims := token.Claims{Role: user.Role.String(), Purpose: token.PurposeSession}
	claims.Subject = user.ID.String()
	if user.TenantID != nil {
		claims.TenantID = user.TenantID.String()
	}
	raw, expiresAt, err := s.tokens.Issue(claims, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	if err := s.auditSvc.Record(ctx, nil, auditdomain.Entry{
		TenantID:   user.TenantID,
		UserID:     &user.ID,
		Event:      auditdomain.EventLogin,
		EntityType: auditdomain.EntityUser,
		EntityID:   user.ID.String(),
		Meta:       map[string]any{"ip_address": req.IPAddress},
	}); err != nil {
		return nil, err
	}

	return &domain.LoginResult{Token: raw, ExpiresAt: expiresAt, User: user}, nil
}

// Resolve maps a session token to its user. Role and tenant are read from the
// user record so demotions take effect without waiting for token expiry.
func (s *Service) Resolve(ctx context.Context, rawToken string) (*domain.Session, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrInvalidSession
	}

	claims, err := s.tokens.Parse(rawToken, token.PurposeSession)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}
	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidSession
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if !user.Role.Valid() {
		return nil, domain.ErrInvalidSession
	}

	return &domain.Session{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Role:      user.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, s.db, userID)
}

// CreateUser inserts a user inside tx (s.db when nil).
func (s *Service) CreateUser(ctx context.Context, tx *gorm.DB, req domain.CreateUserRequest) (*domain.User, error) {
	if tx == nil {
		tx = s.db
	}

	emailAddr := normalizeEmail(req.Email)
	var verrs errs.ValidationErrors
	if emailAddr == "" {
		verrs.Add("email", "required", "email is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		verrs.Add("name", "required", "name is required")
	}
	if err := password.Validate(req.Password); err != nil {
		verrs.Add("password", "min", "password must be at least 6 characters")
	}
	if !req.Role.Valid() {
		verrs.Add("role", "oneof", "role is invalid")
	}
	if req.Role != domain.RolePlatformAdmin && (req.TenantID == nil || *req.TenantID == 0) {
		verrs.Add("tenant_id", "required", "tenant is required for broker users")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, tx, emailAddr); err == nil {
		return nil, errEmailTaken()
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		TenantID:     req.TenantID,
		Email:        emailAddr,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, tx, user); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, errEmailTaken()
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset never reveals whether the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, req domain.PasswordResetRequest) error {
	log := logger.WithContext(ctx, s.log)
	emailAddr := normalizeEmail(req.Email)
	if emailAddr == "" {
		return errs.Invalid("email", "required", "email is required")
	}

	if ok, _ := s.limiter.Allow(ctx, "password_reset", emailAddr, req.IPAddress); !ok {
		return domain.ErrTooManyAttempts
	}

	user, err := s.repo.FindByEmail(ctx, s.db, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			log.Debug("password reset for unknown email", zap.String("email", masking.MaskEmail(emailAddr)))
			return nil
		}
		return err
	}

	claims := token.Claims{Purpose: token.PurposePasswordReset}
	claims.Subject = user.ID.String()
	raw, _, err := s.tokens.Issue(claims, resetTokenTTL)
	if err != nil {
		return err
	}

	if err := s.auditSvc.Record(ctx, nil, auditdomain.Entry{
		TenantID:   user.TenantID,
		UserID:     &user.ID,
		Event:      auditdomain.EventPasswordResetRequested,
		EntityType: auditdomain.EntityUser,
		EntityID:   user.ID.String(),
		Meta:       map[string]any{"email": masking.MaskEmail(user.Email)},
	}); err != nil {
		return err
	}

	if err := s.email.SendTemplate(ctx, []string{user.Email}, "password_reset", map[string]any{
		"name":       user.Name,
		"reset_url":  s.publicURL + "/reset-password?token=" + raw,
		"expires_in": "24 hours",
	}); err != nil {
		log.Error("failed to send password reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, req domain.PasswordResetConfirm) error {
	if err := password.Validate(req.Password); err != nil {
		return errs.Invalid("password", "min", "password must be at least 6 characters")
	}

	claims, err := s.tokens.Parse(strings.TrimSpace(req.Token), token.PurposePasswordReset)
	if err != nil {
		return domain.ErrInvalidResetToken
	}
	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil {
		return domain.ErrInvalidResetToken
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidResetToken
		}
		return err
	}
	// a token issued before the last password change has already been used
	if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(user.UpdatedAt.Truncate(time.Second)) {
		return domain.ErrInvalidResetToken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdatePassword(ctx, tx, user.ID, hash, s.clock.Now().UTC()); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   user.TenantID,
			UserID:     &user.ID,
			Event:      auditdomain.EventPasswordResetCompleted,
			EntityType: auditdomain.EntityUser,
			EntityID:   user.ID.String(),
		})
	})
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func errEmailTaken() error {
	return errs.Invalid("email", "already_exists", "email is already registered")
}
