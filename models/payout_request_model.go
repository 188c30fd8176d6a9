package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutRequest is a professional's withdrawal of accumulated earnings.
// The requested amount is debited from the balance up front and restored
// if an admin rejects the request.
type PayoutRequest struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProfessionalID uuid.UUID `gorm:"not null" json:"professional_id"`
	AmountCents    int64     `gorm:"not null" json:"amount_cents"`
	Status         string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	AdminNotes     *string   `gorm:"type:text" json:"admin_notes"`
	RequestedAt    time.Time `json:"requested_at"`
	ProcessedAt    *time.Time `json:"processed_at"`

	Professional Professional `gorm:"foreignkey:ProfessionalID" json:"professional,omitempty"`
}
