package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/observability/logger"
	"github.com/smallbiznis/mywill/internal/observability/metrics"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultPageSize = 50

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    auditdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    auditdomain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	event := strings.TrimSpace(entry.Event)
	if event == "" {
		return auditdomain.ErrInvalidEvent
	}
	if tx == nil {
		tx = s.db
	}

	userID := entry.UserID
	if userID == nil {
		userID = tenantcontext.UserID(ctx)
	}

	meta := datatypes.JSONMap{}
	for key, value := range entry.Meta {
		if key == "" {
			continue
		}
		meta[key] = value
	}

	row := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		TenantID:   entry.TenantID,
		UserID:     userID,
		Event:      event,
		EntityType: strings.TrimSpace(entry.EntityType),
		Meta:       meta,
		OccurredAt: s.clock.Now().UTC(),
	}
	if id := strings.TrimSpace(entry.EntityID); id != "" {
		row.EntityID = &id
	}

	if err := s.repo.Insert(ctx, tx, &row); err != nil {
		logger.WithContext(ctx, s.log).Error("failed to write audit log", zap.String("event", event), zap.Error(err))
		return err
	}
	s.metrics.RecordAuditWrite(ctx, event)
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	filter := auditdomain.ListFilter{
		Event:     strings.TrimSpace(req.Event),
		PageToken: strings.TrimSpace(req.PageToken),
		Limit:     req.Pagination.Limit(defaultPageSize),
	}

	if raw := strings.TrimSpace(req.TenantID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidTenant
		}
		filter.TenantID = &id
	}

	var err error
	if filter.Start, _, err = parseBound(req.Start); err != nil {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidTimeRange
	}
	var dateOnly bool
	if filter.End, dateOnly, err = parseBound(req.End); err != nil {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidTimeRange
	}
	if filter.End != nil && dateOnly {
		end := filter.End.Add(24 * time.Hour)
		filter.End = &end
	}
	if filter.Start != nil && filter.End != nil && !filter.Start.Before(*filter.End) {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidTimeRange
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		return auditdomain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(item *auditdomain.AuditLog) string {
		return pagination.CursorFor(item.ID, item.OccurredAt)
	})

	events, err := s.repo.DistinctEvents(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}
	tenantIDs, err := s.repo.DistinctTenants(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	resp := auditdomain.ListResponse{
		PageInfo:  pageInfo,
		AuditLogs: make([]auditdomain.AuditLog, 0, len(items)),
		Facets: auditdomain.Facets{
			Events:    events,
			TenantIDs: make([]string, 0, len(tenantIDs)),
		},
	}
	if resp.Facets.Events == nil {
		resp.Facets.Events = []string{}
	}
	for _, item := range items {
		resp.AuditLogs = append(resp.AuditLogs, *item)
	}
	for _, id := range tenantIDs {
		resp.Facets.TenantIDs = append(resp.Facets.TenantIDs, id.String())
	}
	return resp, nil
}

func parseBound(raw string) (*time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false, err
	}
	t = t.UTC()
	return &t, false, nil
}
