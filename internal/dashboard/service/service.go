package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/dashboard/domain"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	PricingSvc pricingdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	pricingSvc pricingdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dashboard.service"),
		clock:      p.Clock,
		pricingSvc: p.PricingSvc,
	}
}

type statusCount struct {
	Status string
	N      int64
}

func (s *Service) KPIs(ctx context.Context) (domain.KPIs, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.KPIs{}, err
	}

	var out domain.KPIs
	db := s.db.WithContext(ctx)

	var clients []statusCount
	if err := db.Raw(
		`SELECT status, COUNT(*) AS n FROM clients WHERE tenant_id = ? GROUP BY status`, tenantID,
	).Scan(&clients).Error; err != nil {
		return domain.KPIs{}, err
	}
	for _, c := range clients {
		out.TotalClients += c.N
		if c.Status == "active" {
			out.ActiveClients = c.N
		}
	}

	var wills []statusCount
	if err := db.Raw(
		`SELECT status, COUNT(*) AS n FROM wills WHERE tenant_id = ? GROUP BY status`, tenantID,
	).Scan(&wills).Error; err != nil {
		return domain.KPIs{}, err
	}
	out.WillsByStatus = map[string]int64{"draft": 0, "sent_for_approval": 0, "signed": 0}
	for _, w := range wills {
		out.WillsByStatus[w.Status] = w.N
		out.TotalWills += w.N
	}
	out.SignedWills = out.WillsByStatus["signed"]

	if err := db.Raw(
		`SELECT COUNT(*) FROM tasks WHERE tenant_id = ? AND status IN ?`, tenantID, []string{"pending", "in_progress", "overdue"},
	).Scan(&out.OpenTasks).Error; err != nil {
		return domain.KPIs{}, err
	}

	monthStart, nextMonth := monthBounds(s.clock.Now())
	prevStart := monthStart.AddDate(0, -1, 0)

	current, err := s.countSigned(ctx, tenantID, monthStart, nextMonth)
	if err != nil {
		return domain.KPIs{}, err
	}
	previous, err := s.countSigned(ctx, tenantID, prevStart, monthStart)
	if err != nil {
		return domain.KPIs{}, err
	}
	out.SignedThisMonth = current

	pricing, err := s.pricingSvc.Get(ctx)
	if err != nil {
		return domain.KPIs{}, err
	}
	brokerShare := pricing.SplitFor(pricingdomain.WillTypeSingle).BrokerShare
	out.Currency = pricing.Currency
	out.MonthlyRevenue = current * brokerShare
	out.PreviousRevenue = previous * brokerShare
	out.RevenueGrowthAmount = out.MonthlyRevenue - out.PreviousRevenue
	return out, nil
}

func (s *Service) countSigned(ctx context.Context, tenantID snowflake.ID, start, end time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM wills WHERE tenant_id = ? AND status = ? AND lock_at >= ? AND lock_at < ?`,
		tenantID, "signed", start, end,
	).Scan(&n).Error
	return n, err
}

// monthBounds returns the first instant of now's UTC month and of the next one.
func monthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
