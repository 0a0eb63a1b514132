package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	pkgdb "github.com/smallbiznis/mywill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Runtime  *config.RuntimeHolder
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	runtime  *config.RuntimeHolder
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("pricing.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		runtime:  p.Runtime,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Pricing, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Pricing{}, err
	}

	existing, err := s.repo.FindByTenant(ctx, s.db, tenantID)
	if err != nil {
		return domain.Pricing{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	var created domain.Pricing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.EnsureDefaults(ctx, tx, tenantID)
		created = p
		return err
	})
	if err != nil {
		// a concurrent first read may have created the row already
		if pkgdb.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByTenant(ctx, s.db, tenantID)
			if findErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.Pricing{}, err
	}
	return created, nil
}

func (s *Service) EnsureDefaults(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (domain.Pricing, error) {
	existing, err := s.repo.FindByTenant(ctx, tx, tenantID)
	if err != nil {
		return domain.Pricing{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	defaults := s.defaults()
	now := s.clock.Now().UTC()
	pricing := domain.Pricing{
		ID:                   s.genID.Generate(),
		TenantID:             tenantID,
		SingleWillPrice:      defaults.SingleWillPrice,
		MirrorWillPrice:      defaults.MirrorWillPrice,
		TrustWillPrice:       defaults.TrustWillPrice,
		RevenueSplitBroker:   defaults.RevenueSplitBroker,
		RevenueSplitPlatform: defaults.RevenueSplitPlatform,
		Currency:             domain.DefaultCurrency,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Insert(ctx, tx, &pricing); err != nil {
		return domain.Pricing{}, err
	}
	if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
		TenantID:   &tenantID,
		Event:      auditdomain.EventCreatePricing,
		EntityType: auditdomain.EntityPricing,
		EntityID:   pricing.ID.String(),
		Meta:       pricingMeta(pricing),
	}); err != nil {
		return domain.Pricing{}, err
	}
	return pricing, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePricingRequest) (domain.Pricing, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Pricing{}, err
	}
	if err := validation.Check(req).Err(); err != nil {
		return domain.Pricing{}, err
	}

	var updated domain.Pricing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.EnsureDefaults(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		next := current
		if req.SingleWillPrice != nil {
			next.SingleWillPrice = *req.SingleWillPrice
		}
		if req.MirrorWillPrice != nil {
			next.MirrorWillPrice = *req.MirrorWillPrice
		}
		if req.TrustWillPrice != nil {
			next.TrustWillPrice = *req.TrustWillPrice
		}
		if req.RevenueSplitBroker != nil {
			next.RevenueSplitBroker = *req.RevenueSplitBroker
		}
		if req.RevenueSplitPlatform != nil {
			next.RevenueSplitPlatform = *req.RevenueSplitPlatform
		}
		if next.RevenueSplitBroker+next.RevenueSplitPlatform != 100 {
			return errs.Invalid("revenue_split_platform", "split_total", "revenue split must total 100")
		}
		next.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		meta := pricingMeta(next)
		meta["previous"] = pricingMeta(current)
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventUpdatePricing,
			EntityType: auditdomain.EntityPricing,
			EntityID:   next.ID.String(),
			Meta:       meta,
		}); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Pricing{}, err
	}
	return updated, nil
}

func (s *Service) Quote(ctx context.Context) (domain.Quote, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Currency: p.Currency,
		Single:   p.SplitFor(domain.WillTypeSingle),
		Mirror:   p.SplitFor(domain.WillTypeMirror),
		Trust:    p.SplitFor(domain.WillTypeTrust),
	}, nil
}

func (s *Service) defaults() config.DefaultPricing {
	if s.runtime == nil {
		return config.DefaultRuntime().DefaultPricing
	}
	return s.runtime.Get().DefaultPricing
}

func pricingMeta(p domain.Pricing) map[string]any {
	return map[string]any{
		"single_will_price":      p.SingleWillPrice,
		"mirror_will_price":      p.MirrorWillPrice,
		"trust_will_price":       p.TrustWillPrice,
		"revenue_split_broker":   p.RevenueSplitBroker,
		"revenue_split_platform": p.RevenueSplitPlatform,
	}
}
