package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mywill/internal/errs"
	"gorm.io/gorm"
)

var ErrReportingDisabled = errs.New(errs.KindForbidden, "advanced_reporting_disabled")

// Sink accepts events without blocking on persistence. Flush writes whatever is buffered.
type Sink interface {
	Track(ctx context.Context, event Event)
	Flush(ctx context.Context) error
}

type TrackEventRequest struct {
	Event        string         `json:"event" validate:"required,oneof=WIZARD_STEP_COMPLETED WIZARD_STEP_ABANDONED WILL_COMPLETED USER_INTERACTION"`
	Step         string         `json:"step" validate:"omitempty,max=100"`
	TimeOnStepMs *int64         `json:"time_on_step_ms" validate:"omitempty,gte=0"`
	WillID       string         `json:"will_id"`
	Metadata     map[string]any `json:"metadata"`
}

type StepReportRequest struct {
	Start string `form:"start" json:"start"`
	End   string `form:"end" json:"end"`
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, events []Event) error
	StepCounts(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end *time.Time) ([]StepCount, error)
	CountEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, eventType string, start, end *time.Time) (int64, error)
}

type Service interface {
	Track(ctx context.Context, req TrackEventRequest) error
	StepReport(ctx context.Context, req StepReportRequest) (StepReport, error)
}
