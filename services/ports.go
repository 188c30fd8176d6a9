package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
)

// BookingPatch carries the transition-specific column writes that ride
// along with a status change.
type BookingPatch struct {
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
}

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)

	// UpdateStatus is the single conditional write the state machine runs
	// on: it succeeds only if the row's status still equals from, and
	// returns ErrConflict otherwise (ErrNotFound if the row is gone).
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus, patch BookingPatch) error

	// Assign attaches a professional (and optionally their offering) to a
	// booking that is still pending; ErrConflict if it no longer is.
	Assign(ctx context.Context, id uuid.UUID, professionalID uuid.UUID, offeringID *uuid.UUID) error

	// ListStalePending returns ids of pending bookings created before the
	// cutoff, for the payment-window expiry job.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}

// PaymentPatch carries the writes that ride along with a payment status
// change.
type PaymentPatch struct {
	GatewayPaymentID  *string
	Signature         *string
	GatewayRefundID   *string
	RefundAmountCents *int64
	RefundReason      *string
}

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)

	// GetActiveByBooking returns the booking's single non-terminal payment,
	// or ErrNotFound.
	GetActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error)
	GetCompletedByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error)

	// UpdateStatus mirrors BookingStore.UpdateStatus: conditional on the
	// expected prior status, ErrConflict on a lost race.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, patch PaymentPatch) error

	// MarkRefundEligible flags a completed payment whose booking was
	// cancelled out from under it.
	MarkRefundEligible(ctx context.Context, id uuid.UUID) error
}

type ProfileStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfessional(ctx context.Context, userID uuid.UUID) (*models.Professional, error)

	// CreditProfessional adds earned cents to the professional's balance.
	CreditProfessional(ctx context.Context, userID uuid.UUID, amountCents int64) error
}

type CatalogStore interface {
	GetService(ctx context.Context, id uuid.UUID) (*models.Service, error)
	GetOffering(ctx context.Context, professionalID, serviceID uuid.UUID) (*models.ProfessionalService, error)
}

type AuditStore interface {
	// Record appends one admin action. Called inside the same Atomic block
	// as the privileged mutation it describes; a failure here rolls the
	// mutation back.
	Record(ctx context.Context, action *models.AdminAction) error
}

// Store aggregates the engine's persistence ports. Atomic runs fn against
// a store whose writes all commit or all roll back together.
type Store interface {
	Bookings() BookingStore
	Payments() PaymentStore
	Profiles() ProfileStore
	Catalog() CatalogStore
	Audit() AuditStore

	Atomic(ctx context.Context, fn func(Store) error) error
}

// PaymentGateway is the external payment collaborator: order creation and
// refunds over the wire, signature verification locally against the
// server-held secret.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (string, error)
	Refund(ctx context.Context, gatewayPaymentID string, amountCents int64) (string, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}
