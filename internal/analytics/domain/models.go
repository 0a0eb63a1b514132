package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventStepCompleted   = "WIZARD_STEP_COMPLETED"
	EventStepAbandoned   = "WIZARD_STEP_ABANDONED"
	EventWillCompleted   = "WILL_COMPLETED"
	EventUserInteraction = "USER_INTERACTION"
)

// Event is one wizard interaction. Step and DurationMs are only set for step events.
type Event struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	UserID     *snowflake.ID     `json:"user_id"`
	WillID     *snowflake.ID     `gorm:"index" json:"will_id"`
	EventType  string            `gorm:"type:text;not null" json:"event"`
	Step       string            `gorm:"type:text;not null;default:''" json:"step,omitempty"`
	DurationMs *int64            `json:"time_on_step_ms,omitempty"`
	Meta       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	OccurredAt time.Time         `gorm:"not null;index" json:"occurred_at"`
}

func (Event) TableName() string { return "wizard_events" }

func IsStepEvent(eventType string) bool {
	return eventType == EventStepCompleted || eventType == EventStepAbandoned
}

// StepCount is one aggregated row of step events.
type StepCount struct {
	Step          string
	EventType     string
	Count         int64
	TotalDuration int64
	TimedCount    int64
}

type StepStat struct {
	Step            string  `json:"step"`
	Completed       int64   `json:"completed"`
	Abandoned       int64   `json:"abandoned"`
	CompletionRate  float64 `json:"completion_rate"`
	AvgTimeOnStepMs float64 `json:"avg_time_on_step_ms"`
}

type DropOff struct {
	Step            string  `json:"step"`
	AbandonmentRate float64 `json:"abandonment_rate"`
	TotalAttempts   int64   `json:"total_attempts"`
}

type StepReport struct {
	Start          *time.Time `json:"start,omitempty"`
	End            *time.Time `json:"end,omitempty"`
	Steps          []StepStat `json:"steps"`
	DropOffs       []DropOff  `json:"drop_offs"`
	WillsCompleted int64      `json:"wills_completed"`
}
