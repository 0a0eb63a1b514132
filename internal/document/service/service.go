package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/document/domain"
	"github.com/smallbiznis/mywill/internal/storage"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Storage storage.Provider
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	storage storage.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("document.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		storage: p.Storage,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, doc *domain.Document) error {
	if tx == nil {
		tx = s.db
	}
	if doc.ID == 0 {
		doc.ID = s.genID.Generate()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.clock.Now().UTC()
	}
	return s.repo.Insert(ctx, tx, doc)
}

func (s *Service) List(ctx context.Context, req domain.ListDocumentRequest) (domain.ListDocumentResponse, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.ListDocumentResponse{}, err
	}
	if err := validation.Struct(req); err != nil {
		return domain.ListDocumentResponse{}, err
	}

	limit := req.Pagination.Limit(pagination.DefaultPageSize)
	filter := domain.ListDocumentFilter{
		Kind:      strings.TrimSpace(req.Kind),
		PageToken: strings.TrimSpace(req.PageToken),
		Limit:     limit,
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			// an unknown client simply has no documents
			return domain.ListDocumentResponse{Documents: []domain.Document{}}, nil
		}
		filter.ClientID = &id
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListDocumentResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListDocumentResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(d *domain.Document) string {
		return pagination.CursorFor(d.ID, d.CreatedAt)
	})

	docs := make([]domain.Document, 0, len(items))
	for _, item := range items {
		doc := *item
		if url, err := s.storage.SignedURL(doc.StorageKey, storage.DefaultURLTTL); err == nil {
			doc.URL = url
		} else {
			s.log.Warn("sign document url", zap.String("document_id", doc.ID.String()), zap.Error(err))
		}
		docs = append(docs, doc)
	}
	return domain.ListDocumentResponse{PageInfo: pageInfo, Documents: docs}, nil
}
