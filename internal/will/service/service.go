package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/smallbiznis/mywill/internal/analytics/domain"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	documentdomain "github.com/smallbiznis/mywill/internal/document/domain"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/observability/logger"
	"github.com/smallbiznis/mywill/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	"github.com/smallbiznis/mywill/internal/providers/pdf"
	"github.com/smallbiznis/mywill/internal/revenuemetrics"
	"github.com/smallbiznis/mywill/internal/storage"
	tenantdomain "github.com/smallbiznis/mywill/internal/tenant/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"github.com/smallbiznis/mywill/internal/will/domain"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"github.com/smallbiznis/mywill/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// signed artifacts are served through the file route
const filesPrefix = "/files/"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ClientSvc   clientdomain.Service
	TenantSvc   tenantdomain.Service
	DocumentSvc documentdomain.Service
	PricingSvc  pricingdomain.Service
	AuditSvc    auditdomain.Service
	Renderer    pdf.Renderer
	Storage     storage.Provider
	Metrics     *metrics.Metrics        `optional:"true"`
	Revenue     *revenuemetrics.Recorder `optional:"true"`
	Analytics   analyticsdomain.Sink     `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	clientSvc   clientdomain.Service
	tenantSvc   tenantdomain.Service
	documentSvc documentdomain.Service
	pricingSvc  pricingdomain.Service
	auditSvc    auditdomain.Service
	renderer    pdf.Renderer
	storage     storage.Provider
	metrics     *metrics.Metrics
	revenue     *revenuemetrics.Recorder
	analytics   analyticsdomain.Sink
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("will.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		clientSvc:   p.ClientSvc,
		tenantSvc:   p.TenantSvc,
		documentSvc: p.DocumentSvc,
		pricingSvc:  p.PricingSvc,
		auditSvc:    p.AuditSvc,
		renderer:    p.Renderer,
		storage:     p.Storage,
		metrics:     p.Metrics,
		revenue:     p.Revenue,
		analytics:   p.Analytics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateWillRequest) (domain.Will, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Will{}, err
	}

	verrs := validation.Check(req)
	if req.JSONPayload != nil {
		checkShares(verrs, "json_payload.beneficiaries", req.JSONPayload.Beneficiaries)
	}
	if err := verrs.Err(); err != nil {
		return domain.Will{}, err
	}

	client, err := s.findClient(ctx, req.ClientID)
	if err != nil {
		return domain.Will{}, err
	}

	var payload domain.Payload
	if req.JSONPayload != nil {
		payload = *req.JSONPayload
	}
	markdown := ""
	switch {
	case req.DraftMarkdown != nil:
		markdown = *req.DraftMarkdown
	case req.JSONPayload != nil:
		markdown = domain.GenerateMarkdown(client.FullName(), payload)
	}

	now := s.clock.Now().UTC()
	will := domain.Will{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		ClientID:      client.ID,
		Status:        domain.StatusDraft,
		Version:       1,
		JSONPayload:   datatypes.NewJSONType(payload),
		DraftMarkdown: markdown,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &will); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventCreateWill,
			EntityType: auditdomain.EntityWill,
			EntityID:   will.ID.String(),
			Meta:       map[string]any{"client_id": client.ID.String()},
		})
	})
	if err != nil {
		return domain.Will{}, err
	}
	return will, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Will, error) {
	will, err := s.load(ctx, id)
	if err != nil {
		return domain.Will{}, err
	}
	s.attachDownloadURL(ctx, will)
	return *will, nil
}

func (s *Service) List(ctx context.Context, req domain.ListWillRequest) (domain.ListWillResponse, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.ListWillResponse{}, err
	}
	if err := validation.Struct(req); err != nil {
		return domain.ListWillResponse{}, err
	}

	limit := req.Pagination.Limit(pagination.DefaultPageSize)
	filter := domain.ListWillFilter{
		Status:    domain.Status(strings.TrimSpace(req.Status)),
		PageToken: strings.TrimSpace(req.PageToken),
		Limit:     limit,
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListWillResponse{Wills: []domain.Will{}}, nil
		}
		filter.ClientID = &clientID
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListWillResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListWillResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(w *domain.Will) string {
		return pagination.CursorFor(w.ID, w.CreatedAt)
	})

	wills := make([]domain.Will, 0, len(items))
	for _, item := range items {
		wills = append(wills, *item)
	}
	return domain.ListWillResponse{PageInfo: pageInfo, Wills: wills}, nil
}

// Update merges the request into a draft will. The version moves only when
// the payload or regenerated markdown differs from what is stored.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateWillRequest) (domain.Will, error) {
	verrs := validation.Check(req)
	if req.Beneficiaries != nil {
		checkShares(verrs, "beneficiaries", *req.Beneficiaries)
	}
	if err := verrs.Err(); err != nil {
		return domain.Will{}, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return domain.Will{}, err
	}
	if !current.Status.Editable() {
		return domain.Will{}, domain.ErrNotDraft
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return domain.Will{}, domain.ErrConcurrentModification
	}

	client, err := s.clientSvc.Find(ctx, current.ClientID)
	if err != nil {
		return domain.Will{}, err
	}

	stored := current.Payload()
	merged := req.Apply(stored)
	markdown := domain.GenerateMarkdown(client.FullName(), merged)
	material := !bytes.Equal(merged.Canonical(), stored.Canonical()) || markdown != current.DraftMarkdown

	next := *current
	next.JSONPayload = datatypes.NewJSONType(merged)
	next.DraftMarkdown = markdown
	next.UpdatedAt = s.clock.Now().UTC()
	if material {
		next.Version = current.Version + 1
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateDraft(ctx, tx, &next, current.Version)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrConcurrentModification
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &next.TenantID,
			Event:      auditdomain.EventUpdateWill,
			EntityType: auditdomain.EntityWill,
			EntityID:   next.ID.String(),
			Meta: map[string]any{
				"version":            next.Version,
				"is_material_change": material,
				"updated_fields":     req.Fields(),
			},
		})
	})
	if err != nil {
		return domain.Will{}, err
	}
	return next, nil
}

// Preview renders the stored draft without changing it.
func (s *Service) Preview(ctx context.Context, id string) (domain.Preview, error) {
	will, err := s.load(ctx, id)
	if err != nil {
		return domain.Preview{}, err
	}
	client, err := s.clientSvc.Find(ctx, will.ClientID)
	if err != nil {
		return domain.Preview{}, err
	}
	meta, err := s.metadata(ctx, will, client)
	if err != nil {
		return domain.Preview{}, err
	}
	meta.GeneratedAt = will.UpdatedAt

	markdown := domain.GenerateMarkdown(client.FullName(), will.Payload())
	if !will.Status.Editable() {
		// frozen wills keep the text they were approved with
		markdown = will.DraftMarkdown
	}
	doc, err := s.renderer.RenderDraft(markdown, meta)
	if err != nil {
		return domain.Preview{}, fmt.Errorf("render draft: %w", err)
	}
	return domain.Preview{
		WillID:         will.ID,
		Version:        will.Version,
		DraftMarkdown:  markdown,
		PDFBase64:      base64.StdEncoding.EncodeToString(doc),
		ChecksumSHA256: pdf.Checksum(doc),
		PDF:            doc,
	}, nil
}

func (s *Service) SendForApproval(ctx context.Context, id string) (domain.Will, error) {
	will, err := s.load(ctx, id)
	if err != nil {
		return domain.Will{}, err
	}
	if !will.Status.CanTransition(domain.StatusSentForApproval) {
		return domain.Will{}, domain.ErrNotDraft
	}

	verrs := &errs.ValidationErrors{}
	for _, field := range will.Payload().MissingForApproval() {
		verrs.Add(field, "required", field+" is required before sending for approval")
	}
	if strings.TrimSpace(will.DraftMarkdown) == "" {
		verrs.Add("draft_markdown", "required", "draft_markdown is required before sending for approval")
	}
	if err := verrs.Err(); err != nil {
		return domain.Will{}, err
	}

	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.Transition(ctx, tx, will.TenantID, will.ID, domain.StatusDraft, domain.StatusSentForApproval, now, nil)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrConcurrentModification
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &will.TenantID,
			Event:      auditdomain.EventSendForApproval,
			EntityType: auditdomain.EntityWill,
			EntityID:   will.ID.String(),
			Meta: map[string]any{
				"version":   will.Version,
				"client_id": will.ClientID.String(),
			},
		})
	})
	if err != nil {
		return domain.Will{}, err
	}

	s.metrics.RecordWillTransition(ctx, string(domain.StatusDraft), string(domain.StatusSentForApproval))
	will.Status = domain.StatusSentForApproval
	will.UpdatedAt = now
	return *will, nil
}

// CompleteAttestation renders and stores the signed artifact, then locks the will.
func (s *Service) CompleteAttestation(ctx context.Context, id string, req domain.CompleteAttestationRequest) (domain.Will, error) {
	log := logger.WithContext(ctx, s.log)
	if err := validation.Struct(req); err != nil {
		return domain.Will{}, err
	}

	will, err := s.load(ctx, id)
	if err != nil {
		return domain.Will{}, err
	}
	if !will.Status.CanTransition(domain.StatusSigned) {
		return domain.Will{}, domain.ErrNotSentForApproval
	}
	client, err := s.clientSvc.Find(ctx, will.ClientID)
	if err != nil {
		return domain.Will{}, err
	}
	meta, err := s.metadata(ctx, will, client)
	if err != nil {
		return domain.Will{}, err
	}

	now := s.clock.Now().UTC()
	meta.GeneratedAt = now
	signatures := []pdf.Signature{{Name: client.FullName(), Role: "testator", SignedAt: now}}
	for _, w := range req.Witnesses {
		signatures = append(signatures, pdf.Signature{Name: strings.TrimSpace(w.Name), Role: "witness", SignedAt: now})
	}

	doc, err := s.renderer.RenderSigned(will.DraftMarkdown, meta, signatures)
	if err != nil {
		return domain.Will{}, fmt.Errorf("render signed: %w", err)
	}
	checksum := pdf.Checksum(doc)

	key := fmt.Sprintf("tenants/%s/wills/%s/signed-v%d-%s.pdf",
		will.TenantID, will.ID, will.Version, strings.ToLower(correlation.NewID()))
	size, err := s.storage.Put(ctx, key, "application/pdf", bytes.NewReader(doc))
	if err != nil {
		return domain.Will{}, fmt.Errorf("store signed will: %w", err)
	}

	signed := domain.SignedFields{
		SignedPDFURL:   filesPrefix + key,
		ChecksumSHA256: checksum,
		LockAt:         now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.Transition(ctx, tx, will.TenantID, will.ID, domain.StatusSentForApproval, domain.StatusSigned, now, &signed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrConcurrentModification
		}

		document := documentdomain.Document{
			TenantID:       will.TenantID,
			ClientID:       will.ClientID,
			WillID:         &will.ID,
			Kind:           documentdomain.KindSignedWill,
			StorageKey:     key,
			ChecksumSHA256: checksum,
			SizeBytes:      size,
			CreatedAt:      now,
		}
		if err := s.documentSvc.Record(ctx, tx, &document); err != nil {
			return err
		}

		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &will.TenantID,
			Event:      auditdomain.EventCompleteAttestation,
			EntityType: auditdomain.EntityWill,
			EntityID:   will.ID.String(),
			Meta: map[string]any{
				"checksum_sha256": checksum,
				"version":         will.Version,
				"document_id":     document.ID.String(),
				"witness_count":   len(req.Witnesses),
			},
		})
	})
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Warn("remove orphaned signed will", zap.String("key", key), zap.Error(delErr))
		}
		return domain.Will{}, err
	}

	s.metrics.RecordWillTransition(ctx, string(domain.StatusSentForApproval), string(domain.StatusSigned))
	s.recordRevenue(ctx, will.TenantID)
	s.trackCompletion(ctx, will, now)

	will.Status = domain.StatusSigned
	will.SignedPDFURL = &signed.SignedPDFURL
	will.ChecksumSHA256 = &checksum
	will.LockAt = &now
	will.UpdatedAt = now
	s.attachDownloadURL(ctx, will)
	return *will, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	will, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !will.Status.Editable() {
		return domain.ErrOnlyDraftDeletable
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.DeleteDraft(ctx, tx, will.TenantID, will.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrOnlyDraftDeletable
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &will.TenantID,
			Event:      auditdomain.EventDeleteWill,
			EntityType: auditdomain.EntityWill,
			EntityID:   will.ID.String(),
			Meta: map[string]any{
				"client_id": will.ClientID.String(),
				"version":   will.Version,
			},
		})
	})
}

func (s *Service) load(ctx context.Context, raw string) (*domain.Will, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, s.db, tenantID, id)
}

func (s *Service) findClient(ctx context.Context, raw string) (*clientdomain.Client, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, clientdomain.ErrNotFound
	}
	return s.clientSvc.Find(ctx, id)
}

func (s *Service) metadata(ctx context.Context, will *domain.Will, client *clientdomain.Client) (pdf.Metadata, error) {
	tenant, err := s.tenantSvc.Find(ctx, will.TenantID)
	if err != nil {
		return pdf.Metadata{}, err
	}
	return pdf.Metadata{
		WillID:     will.ID.String(),
		Version:    will.Version,
		ClientName: client.FullName(),
		TenantName: tenant.Name,
	}, nil
}

func (s *Service) attachDownloadURL(ctx context.Context, will *domain.Will) {
	if will.SignedPDFURL == nil || !strings.HasPrefix(*will.SignedPDFURL, filesPrefix) {
		return
	}
	key := strings.TrimPrefix(*will.SignedPDFURL, filesPrefix)
	url, err := s.storage.SignedURL(key, storage.DefaultURLTTL)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("sign will download url", zap.String("will_id", will.ID.String()), zap.Error(err))
		return
	}
	will.DownloadURL = url
}

// recordRevenue books the tenant's single-will split. Failures only cost the metric.
func (s *Service) recordRevenue(ctx context.Context, tenantID snowflake.ID) {
	if s.revenue == nil {
		return
	}
	pricing, err := s.pricingSvc.Get(ctx)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("load pricing for revenue metrics", zap.Error(err))
		return
	}
	share := pricing.SplitFor(pricingdomain.WillTypeSingle)
	s.revenue.RecordSignedWill(tenantID.String(), string(pricingdomain.WillTypeSingle), pricing.Currency, share.BrokerShare, share.PlatformShare)
}

func (s *Service) trackCompletion(ctx context.Context, will *domain.Will, at time.Time) {
	if s.analytics == nil {
		return
	}
	s.analytics.Track(ctx, analyticsdomain.Event{
		ID:         s.genID.Generate(),
		TenantID:   will.TenantID,
		UserID:     tenantcontext.UserID(ctx),
		WillID:     &will.ID,
		EventType:  analyticsdomain.EventWillCompleted,
		Meta:       datatypes.JSONMap{"version": will.Version, "total_time_ms": at.Sub(will.CreatedAt).Milliseconds()},
		OccurredAt: at,
	})
}

func checkShares(verrs *errs.ValidationErrors, field string, beneficiaries []domain.Beneficiary) {
	if (domain.Payload{Beneficiaries: beneficiaries}).TotalShare() > 100 {
		verrs.Add(field, "share_total", "beneficiary shares must not exceed 100")
	}
}
