package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "created"    // gateway order opened, awaiting checkout
	PaymentAuthorized PaymentStatus = "authorized" // reserved on the gateway, not yet captured
	PaymentCompleted  PaymentStatus = "completed"  // captured and signature-verified
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Payment is one settlement attempt for a booking. A booking has at most
// one non-terminal payment at a time; retries after a terminal failure
// create a fresh row.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BookingID uuid.UUID `gorm:"not null;index" json:"booking_id"`

	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Currency    string `gorm:"size:3;not null" json:"currency"`

	Status PaymentStatus `gorm:"size:20;not null;default:'created'" json:"status"`

	GatewayOrderID   string  `gorm:"size:255;not null;uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID *string `gorm:"size:255" json:"gateway_payment_id"`
	Signature        *string `gorm:"size:255" json:"-"`

	RefundAmountCents int64   `gorm:"not null;default:0" json:"refund_amount_cents"`
	RefundReason      *string `gorm:"type:text" json:"refund_reason"`
	GatewayRefundID   *string `gorm:"size:255" json:"gateway_refund_id"`

	// Set when a verified payment lands on a booking that was cancelled in
	// the meantime: the money was captured but the service will not happen,
	// so the payment is queued for an admin refund instead of being dropped.
	RefundEligible bool `gorm:"default:false" json:"refund_eligible"`

	Booking Booking `gorm:"foreignkey:BookingID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the payment can no longer change state on its
// own; only terminal payments may be superseded by a new attempt.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentFailed || p.Status == PaymentRefunded
}
