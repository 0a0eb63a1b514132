package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/note/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// notes preview this many characters in the audit trail
const auditPreviewLen = 80

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	ClientSvc clientdomain.Service
	AuditSvc  auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	clientSvc clientdomain.Service
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("note.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		clientSvc: p.ClientSvc,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, clientID string, req domain.CreateNoteRequest) (domain.Note, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Note{}, err
	}

	verrs := validation.Check(req)
	content := strings.TrimSpace(req.Content)
	if req.Content != "" && content == "" {
		verrs.Add("content", "required", "content cannot be blank")
	}
	if err := verrs.Err(); err != nil {
		return domain.Note{}, err
	}

	client, err := s.findClient(ctx, clientID)
	if err != nil {
		return domain.Note{}, err
	}

	noteType := strings.TrimSpace(req.Type)
	if noteType == "" {
		noteType = domain.TypeGeneral
	}
	note := domain.Note{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		ClientID:  client.ID,
		AuthorID:  tenantcontext.UserID(ctx),
		Content:   content,
		Type:      noteType,
		CreatedAt: s.clock.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &note); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventCreateNote,
			EntityType: auditdomain.EntityNote,
			EntityID:   note.ID.String(),
			Meta: map[string]any{
				"client_id": client.ID.String(),
				"type":      note.Type,
				"preview":   preview(note.Content),
			},
		})
	})
	if err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (s *Service) List(ctx context.Context, clientID string, req domain.ListNoteRequest) (domain.ListNoteResponse, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.ListNoteResponse{}, err
	}
	client, err := s.findClient(ctx, clientID)
	if err != nil {
		return domain.ListNoteResponse{}, err
	}

	limit := req.Pagination.Limit(pagination.DefaultPageSize)
	items, err := s.repo.ListByClient(ctx, s.db, tenantID, client.ID, strings.TrimSpace(req.PageToken), limit)
	if err != nil {
		return domain.ListNoteResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(n *domain.Note) string {
		return pagination.CursorFor(n.ID, n.CreatedAt)
	})

	notes := make([]domain.Note, 0, len(items))
	for _, item := range items {
		notes = append(notes, *item)
	}
	return domain.ListNoteResponse{PageInfo: pageInfo, Notes: notes}, nil
}

func (s *Service) findClient(ctx context.Context, raw string) (*clientdomain.Client, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, clientdomain.ErrNotFound
	}
	return s.clientSvc.Find(ctx, id)
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= auditPreviewLen {
		return content
	}
	return string([]rune(content)[:auditPreviewLen]) + "..."
}
