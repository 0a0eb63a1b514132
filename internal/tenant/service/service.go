package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/errs"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/tenant/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// slug collisions are retried with a numeric suffix up to this many times
const maxSlugAttempts = 50

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	UserRepo   authdomain.Repository
	AuthSvc    authdomain.Service
	PricingSvc pricingdomain.Service
	AuditSvc   auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	userRepo   authdomain.Repository
	authSvc    authdomain.Service
	pricingSvc pricingdomain.Service
	auditSvc   auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("tenant.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		authSvc:    p.AuthSvc,
		pricingSvc: p.PricingSvc,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) ListBrokers(ctx context.Context, req domain.ListBrokerRequest) (domain.ListBrokerResponse, error) {
	if err := requirePlatformAdmin(ctx); err != nil {
		return domain.ListBrokerResponse{}, err
	}

	limit := req.Pagination.Limit(pagination.DefaultPageSize)
	items, err := s.repo.List(ctx, s.db, strings.TrimSpace(req.PageToken), limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListBrokerResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListBrokerResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(t *domain.Tenant) string {
		return pagination.CursorFor(t.ID, t.CreatedAt)
	})

	ids := make([]snowflake.ID, 0, len(items))
	for _, t := range items {
		ids = append(ids, t.ID)
	}
	users, err := s.userRepo.ListByTenants(ctx, s.db, ids)
	if err != nil {
		return domain.ListBrokerResponse{}, err
	}
	counts, err := s.repo.Counts(ctx, s.db, ids)
	if err != nil {
		return domain.ListBrokerResponse{}, err
	}

	byTenant := make(map[snowflake.ID][]domain.BrokerUser, len(ids))
	for _, u := range users {
		if u.TenantID == nil {
			continue
		}
		byTenant[*u.TenantID] = append(byTenant[*u.TenantID], toBrokerUser(u))
	}

	brokers := make([]domain.Broker, 0, len(items))
	for _, t := range items {
		users := byTenant[t.ID]
		if users == nil {
			users = []domain.BrokerUser{}
		}
		brokers = append(brokers, domain.Broker{
			Tenant: *t,
			Users:  users,
			Counts: counts[t.ID],
		})
	}
	return domain.ListBrokerResponse{PageInfo: pageInfo, Brokers: brokers}, nil
}

func (s *Service) CreateBroker(ctx context.Context, req domain.CreateBrokerRequest) (domain.CreateBrokerResponse, error) {
	if err := requirePlatformAdmin(ctx); err != nil {
		return domain.CreateBrokerResponse{}, err
	}

	verrs := validation.Check(req)
	tenantName := strings.TrimSpace(req.TenantName)
	if req.TenantName != "" && tenantName == "" {
		verrs.Add("tenant_name", "required", "tenant_name cannot be blank")
	}
	if err := verrs.Err(); err != nil {
		return domain.CreateBrokerResponse{}, err
	}

	now := s.clock.Now().UTC()
	var resp domain.CreateBrokerResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenantSlug, err := s.uniqueSlug(ctx, tx, tenantName)
		if err != nil {
			return err
		}
		tenant := domain.Tenant{
			ID:        s.genID.Generate(),
			Name:      tenantName,
			Slug:      tenantSlug,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &tenant); err != nil {
			return err
		}

		user, err := s.authSvc.CreateUser(ctx, tx, authdomain.CreateUserRequest{
			TenantID: &tenant.ID,
			Email:    req.Email,
			Name:     req.Name,
			Password: req.Password,
			Role:     authdomain.RoleBroker,
		})
		if err != nil {
			return err
		}

		if _, err := s.pricingSvc.EnsureDefaults(ctx, tx, tenant.ID); err != nil {
			return err
		}

		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Event:      auditdomain.EventCreateBroker,
			EntityType: auditdomain.EntityTenant,
			EntityID:   tenant.ID.String(),
			Meta: map[string]any{
				"tenant_id":   tenant.ID.String(),
				"tenant_name": tenant.Name,
				"user_id":     user.ID.String(),
				"email":       user.Email,
			},
		}); err != nil {
			return err
		}

		resp = domain.CreateBrokerResponse{Tenant: tenant, User: toBrokerUser(*user)}
		return nil
	})
	if err != nil {
		return domain.CreateBrokerResponse{}, err
	}

	s.log.Info("broker provisioned",
		zap.String("tenant_id", resp.Tenant.ID.String()),
		zap.String("slug", resp.Tenant.Slug),
	)
	return resp, nil
}

func (s *Service) Find(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "tenant"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", errs.Invalid("tenant_name", "already_exists", "a tenant with this name already exists")
}

func requirePlatformAdmin(ctx context.Context) error {
	p, ok := tenantcontext.PrincipalFromContext(ctx)
	if !ok {
		return errs.ErrUnauthorized
	}
	if !p.IsPlatformAdmin() {
		return errs.ErrForbidden
	}
	return nil
}

func toBrokerUser(u authdomain.User) domain.BrokerUser {
	return domain.BrokerUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
