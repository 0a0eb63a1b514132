package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOverdue    = "overdue"
)

type Task struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	ClientID    snowflake.ID  `gorm:"not null;index" json:"client_id"`
	AssigneeID  *snowflake.ID `gorm:"column:assignee_id" json:"assignee_id,omitempty"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text;not null;default:''" json:"description"`
	Priority    string        `gorm:"not null;default:'medium'" json:"priority"`
	Status      string        `gorm:"not null;default:'pending';index" json:"status"`
	DueDate     *time.Time    `gorm:"column:due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string `json:"status" validate:"omitempty,oneof=pending in_progress completed overdue"`
	DueDate     string `json:"due_date" validate:"omitempty,date_or_datetime"`
	AssigneeID  string `json:"assignee_id"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending in_progress completed overdue"`
	DueDate     *string `json:"due_date" validate:"omitempty,date_or_datetime"`
	AssigneeID  *string `json:"assignee_id"`
}

type ListTaskRequest struct {
	pagination.Pagination
	Status   string `form:"status"`
	Priority string `form:"priority"`
	ClientID string `form:"client_id"`
}

type ListTaskFilter struct {
	Status    string
	Priority  string
	ClientID  *snowflake.ID
	PageToken string
	Limit     int
}

type ListTaskResponse struct {
	pagination.PageInfo
	Tasks []Task `json:"tasks"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, task *Task) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Task, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListTaskFilter) ([]*Task, error)
	Update(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, clientID string, req CreateTaskRequest) (Task, error)
	List(ctx context.Context, req ListTaskRequest) (ListTaskResponse, error)
	Get(ctx context.Context, id string) (Task, error)
	Update(ctx context.Context, id string, req UpdateTaskRequest) (Task, error)
	Delete(ctx context.Context, id string) error
}

var ErrNotFound = errs.New(errs.KindNotFound, "task_not_found")
