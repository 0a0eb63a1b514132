package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog is an append-only record of a state change. A nil TenantID marks a
// platform-scoped event.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID   *snowflake.ID     `gorm:"column:tenant_id;index" json:"tenant_id"`
	UserID     *snowflake.ID     `gorm:"column:user_id" json:"user_id"`
	Event      string            `gorm:"column:event;type:text;not null;index" json:"event"`
	EntityType string            `gorm:"column:entity_type;type:text;not null" json:"entity_type"`
	EntityID   *string           `gorm:"column:entity_id;type:text" json:"entity_id"`
	Meta       datatypes.JSONMap `gorm:"column:meta;type:jsonb" json:"meta"`
	OccurredAt time.Time         `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

const (
	EventLogin                  = "LOGIN"
	EventPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	EventPasswordResetCompleted = "PASSWORD_RESET_COMPLETED"

	EventCreateClient = "CREATE_CLIENT"
	EventUpdateClient = "UPDATE_CLIENT"
	EventCreateNote   = "CREATE_NOTE"
	EventCreateTask   = "CREATE_TASK"
	EventUpdateTask   = "UPDATE_TASK"
	EventDeleteTask   = "DELETE_TASK"

	EventCreateWill          = "CREATE_WILL"
	EventUpdateWill          = "UPDATE_WILL"
	EventDeleteWill          = "DELETE_WILL"
	EventSendForApproval     = "SEND_FOR_APPROVAL"
	EventCompleteAttestation = "COMPLETE_ATTESTATION"

	EventCreatePricing = "CREATE_PRICING"
	EventUpdatePricing = "UPDATE_PRICING"
	EventCreateBroker  = "CREATE_BROKER"
)

const (
	EntityUser    = "User"
	EntityClient  = "Client"
	EntityNote    = "Note"
	EntityTask    = "Task"
	EntityWill    = "Will"
	EntityPricing = "Pricing"
	EntityTenant  = "Tenant"
)
