package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin action types. Every privileged mutation writes exactly one record
// with one of these in the same transaction as the mutation itself.
const (
	ActionAssignProfessional  = "assign_professional"
	ActionForceTransition     = "force_transition"
	ActionCancelBooking       = "cancel_booking"
	ActionApproveProfessional = "approve_professional"
	ActionRejectProfessional  = "reject_professional"
	ActionSuspendUser         = "suspend_user"
	ActionActivateUser        = "activate_user"
	ActionIssueRefund         = "issue_refund"
	ActionProcessPayout       = "process_payout"
)

// AdminAction is the append-only audit record for privileged mutations.
// Rows are never updated or deleted.
type AdminAction struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ActorID    uuid.UUID `gorm:"not null;index" json:"actor_id"`
	ActionType string    `gorm:"size:50;not null;index" json:"action_type"`
	TargetType string    `gorm:"size:50;not null" json:"target_type"`
	TargetID   uuid.UUID `gorm:"not null;index" json:"target_id"`
	Description string   `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"created_at"`
}
