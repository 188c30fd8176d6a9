package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the authoritative lifecycle state of a booking. Legal
// transitions are enforced by the services state machine; nothing else is
// allowed to write the status column.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"     // created, awaiting payment/assignment
	BookingConfirmed  BookingStatus = "confirmed"   // paid (or admin-confirmed), professional assigned
	BookingInProgress BookingStatus = "in_progress" // professional has started the visit
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingRefunded   BookingStatus = "refunded"
)

type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Reference string    `gorm:"size:12;not null;unique" json:"reference"`

	CustomerID uuid.UUID `gorm:"not null" json:"customer_id"`
	// Null until a professional is assigned; must be set before the booking
	// can reach confirmed.
	ProfessionalID        *uuid.UUID `json:"professional_id"`
	ServiceID             uuid.UUID  `gorm:"not null" json:"service_id"`
	ProfessionalServiceID *uuid.UUID `json:"professional_service_id"`
	AddressID             uuid.UUID  `gorm:"not null" json:"address_id"`

	ScheduledAt     time.Time `gorm:"not null" json:"scheduled_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`

	// Price snapshot taken at creation, in minor currency units. Immutable
	// once the booking leaves pending: the payment intent is created against
	// final_amount_cents and the two must never diverge.
	TotalAmountCents int64 `gorm:"not null" json:"total_amount_cents"`
	ServiceFeeCents  int64 `gorm:"not null" json:"service_fee_cents"`
	DiscountCents    int64 `gorm:"not null;default:0" json:"discount_cents"`
	FinalAmountCents int64 `gorm:"not null" json:"final_amount_cents"`
	Currency         string `gorm:"size:3;not null" json:"currency"`

	Status             BookingStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	CancellationReason *string       `gorm:"type:text" json:"cancellation_reason"`
	CompletedAt        *time.Time    `json:"completed_at"`
	CancelledAt        *time.Time    `json:"cancelled_at"`

	ReceiptURL *string `gorm:"size:255" json:"receipt_url"`

	Customer     User    `gorm:"foreignkey:CustomerID" json:"customer,omitempty"`
	Professional *User   `gorm:"foreignkey:ProfessionalID" json:"professional,omitempty"`
	Service      Service `gorm:"foreignkey:ServiceID" json:"service,omitempty"`
	Address      Address `gorm:"foreignkey:AddressID" json:"address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assigned reports whether a professional has been attached yet.
func (b *Booking) Assigned() bool {
	return b.ProfessionalID != nil
}
