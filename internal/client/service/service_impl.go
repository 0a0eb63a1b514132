package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	"github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
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
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Client{}, err
	}

	verrs := validation.Check(req)
	dob, ok := s.checkDateOfBirth(verrs, req.DateOfBirth)
	if err := verrs.Err(); err != nil {
		return domain.Client{}, err
	}

	now := s.clock.Now().UTC()
	client := domain.Client{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		AddressLine2: strings.TrimSpace(req.AddressLine2),
		City:         strings.TrimSpace(req.City),
		Postcode:     strings.ToUpper(strings.TrimSpace(req.Postcode)),
		Country:      defaultString(req.Country, domain.DefaultCountry),
		Status:       defaultString(req.Status, domain.StatusActive),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ok {
		client.DateOfBirth = &dob
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &client); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventCreateClient,
			EntityType: auditdomain.EntityClient,
			EntityID:   client.ID.String(),
			Meta: map[string]any{
				"first_name": client.FirstName,
				"last_name":  client.LastName,
			},
		})
	})
	if err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	filter := domain.ListClientFilter{
		Search:    strings.TrimSpace(req.Search),
		Status:    strings.TrimSpace(req.Status),
		PageToken: strings.TrimSpace(req.PageToken),
		Limit:     req.Pagination.Limit(pagination.DefaultPageSize),
	}
	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListClientResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(c *domain.Client) string {
		return pagination.CursorFor(c.ID, c.CreatedAt)
	})

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		clients = append(clients, *item)
	}
	return domain.ListClientResponse{PageInfo: pageInfo, Clients: clients}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ClientDetail, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.ClientDetail{}, err
	}
	clientID, err := parseID(id)
	if err != nil {
		return domain.ClientDetail{}, err
	}

	client, err := s.repo.FindByID(ctx, s.db, tenantID, clientID)
	if err != nil {
		return domain.ClientDetail{}, err
	}
	notes, tasks, wills, err := s.repo.Counts(ctx, s.db, tenantID, clientID)
	if err != nil {
		return domain.ClientDetail{}, err
	}
	return domain.ClientDetail{Client: *client, NoteCount: notes, TaskCount: tasks, WillCount: wills}, nil
}

func (s *Service) Find(ctx context.Context, id snowflake.ID) (*domain.Client, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, s.db, tenantID, id)
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateClientRequest) (domain.Client, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Client{}, err
	}
	clientID, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	verrs := validation.Check(req)
	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		verrs.Add("first_name", "required", "first_name cannot be blank")
	}
	if req.LastName != nil && strings.TrimSpace(*req.LastName) == "" {
		verrs.Add("last_name", "required", "last_name cannot be blank")
	}
	fields := map[string]any{}
	if req.DateOfBirth != nil {
		if strings.TrimSpace(*req.DateOfBirth) == "" {
			fields["date_of_birth"] = nil
		} else if dob, ok := s.checkDateOfBirth(verrs, *req.DateOfBirth); ok {
			fields["date_of_birth"] = dob
		}
	}
	if err := verrs.Err(); err != nil {
		return domain.Client{}, err
	}

	setString(fields, "first_name", req.FirstName)
	setString(fields, "last_name", req.LastName)
	setString(fields, "email", req.Email)
	setString(fields, "phone", req.Phone)
	setString(fields, "address_line1", req.AddressLine1)
	setString(fields, "address_line2", req.AddressLine2)
	setString(fields, "city", req.City)
	setString(fields, "country", req.Country)
	setString(fields, "status", req.Status)
	if req.Postcode != nil {
		fields["postcode"] = strings.ToUpper(strings.TrimSpace(*req.Postcode))
	}

	updated := make([]string, 0, len(fields))
	for field := range fields {
		updated = append(updated, field)
	}
	sort.Strings(updated)

	var client *domain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			fields["updated_at"] = s.clock.Now().UTC()
			if err := s.repo.Update(ctx, tx, tenantID, clientID, fields); err != nil {
				return err
			}
		}
		var err error
		client, err = s.repo.FindByID(ctx, tx, tenantID, clientID)
		if err != nil {
			return err
		}
		if len(updated) == 0 {
			return nil
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventUpdateClient,
			EntityType: auditdomain.EntityClient,
			EntityID:   client.ID.String(),
			Meta:       map[string]any{"updated_fields": updated},
		})
	})
	if err != nil {
		return domain.Client{}, err
	}
	return *client, nil
}

// checkDateOfBirth reports the parsed date when raw is a valid, non-future date.
func (s *Service) checkDateOfBirth(verrs *errs.ValidationErrors, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	dob, err := validation.ParseDate(raw)
	if err != nil {
		// already reported by the struct tag
		return time.Time{}, false
	}
	if dob.After(s.clock.Now().UTC()) {
		verrs.Add("date_of_birth", "not_future", "date_of_birth cannot be in the future")
		return time.Time{}, false
	}
	return dob, true
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func setString(fields map[string]any, column string, value *string) {
	if value != nil {
		fields[column] = strings.TrimSpace(*value)
	}
}

func defaultString(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
