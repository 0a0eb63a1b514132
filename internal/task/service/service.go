package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/mywill/internal/audit/domain"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/clock"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/task/domain"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"github.com/smallbiznis/mywill/internal/validation"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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
		log:       p.Log.Named("task.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		clientSvc: p.ClientSvc,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, clientID string, req domain.CreateTaskRequest) (domain.Task, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Task{}, err
	}

	verrs := validation.Check(req)
	if req.Title != "" && strings.TrimSpace(req.Title) == "" {
		verrs.Add("title", "required", "title cannot be blank")
	}
	assignee := parseOptionalID(verrs, "assignee_id", req.AssigneeID)
	if err := verrs.Err(); err != nil {
		return domain.Task{}, err
	}

	cid, err := snowflake.ParseString(strings.TrimSpace(clientID))
	if err != nil || cid == 0 {
		return domain.Task{}, clientdomain.ErrNotFound
	}
	client, err := s.clientSvc.Find(ctx, cid)
	if err != nil {
		return domain.Task{}, err
	}

	now := s.clock.Now().UTC()
	task := domain.Task{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		ClientID:    client.ID,
		AssigneeID:  assignee,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    orDefault(req.Priority, domain.PriorityMedium),
		Status:      orDefault(req.Status, domain.StatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if raw := strings.TrimSpace(req.DueDate); raw != "" {
		due, _ := validation.ParseDateOrTime(raw)
		task.DueDate = &due
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &task); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventCreateTask,
			EntityType: auditdomain.EntityTask,
			EntityID:   task.ID.String(),
			Meta: map[string]any{
				"client_id": client.ID.String(),
				"title":     task.Title,
				"priority":  task.Priority,
			},
		})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTaskRequest) (domain.ListTaskResponse, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.ListTaskResponse{}, err
	}

	filter := domain.ListTaskFilter{
		Status:    strings.TrimSpace(req.Status),
		Priority:  strings.TrimSpace(req.Priority),
		PageToken: strings.TrimSpace(req.PageToken),
		Limit:     req.Pagination.Limit(pagination.DefaultPageSize),
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListTaskResponse{}, errs.Invalid("client_id", "invalid", "client_id is invalid")
		}
		filter.ClientID = &id
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		return domain.ListTaskResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(t *domain.Task) string {
		return pagination.CursorFor(t.ID, t.CreatedAt)
	})

	tasks := make([]domain.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, *item)
	}
	return domain.ListTaskResponse{PageInfo: pageInfo, Tasks: tasks}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Task, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	taskID, err := parseID(id)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.repo.FindByID(ctx, s.db, tenantID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	return *task, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateTaskRequest) (domain.Task, error) {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	taskID, err := parseID(id)
	if err != nil {
		return domain.Task{}, err
	}

	verrs := validation.Check(req)
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		verrs.Add("title", "required", "title cannot be blank")
	}

	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		fields["priority"] = orDefault(*req.Priority, domain.PriorityMedium)
	}
	if req.Status != nil {
		fields["status"] = orDefault(*req.Status, domain.StatusPending)
	}
	if req.DueDate != nil {
		if raw := strings.TrimSpace(*req.DueDate); raw == "" {
			fields["due_date"] = nil
		} else if due, err := validation.ParseDateOrTime(raw); err == nil {
			fields["due_date"] = due
		}
	}
	if req.AssigneeID != nil {
		fields["assignee_id"] = parseOptionalID(verrs, "assignee_id", *req.AssigneeID)
	}
	if err := verrs.Err(); err != nil {
		return domain.Task{}, err
	}

	updated := make([]string, 0, len(fields))
	for field := range fields {
		updated = append(updated, field)
	}
	sort.Strings(updated)

	var task *domain.Task
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			fields["updated_at"] = s.clock.Now().UTC()
			if err := s.repo.Update(ctx, tx, tenantID, taskID, fields); err != nil {
				return err
			}
		}
		var err error
		if task, err = s.repo.FindByID(ctx, tx, tenantID, taskID); err != nil {
			return err
		}
		if len(updated) == 0 {
			return nil
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventUpdateTask,
			EntityType: auditdomain.EntityTask,
			EntityID:   task.ID.String(),
			Meta: map[string]any{
				"updated_fields": updated,
				"status":         task.Status,
			},
		})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return *task, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return err
	}
	taskID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.repo.FindByID(ctx, tx, tenantID, taskID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, tenantID, taskID); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			TenantID:   &tenantID,
			Event:      auditdomain.EventDeleteTask,
			EntityType: auditdomain.EntityTask,
			EntityID:   task.ID.String(),
			Meta: map[string]any{
				"client_id": task.ClientID.String(),
				"title":     task.Title,
			},
		})
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func parseOptionalID(verrs *errs.ValidationErrors, field, raw string) *snowflake.ID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		verrs.Add(field, "invalid", field+" is invalid")
		return nil
	}
	return &id
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
