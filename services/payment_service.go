package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
)

// PaymentService implements the settlement protocol: intent creation
// against the gateway, verification of the untrusted callback, and atomic
// reconciliation of payment and booking state. A booking never reaches
// confirmed through any path here except a verified signature.
type PaymentService struct {
	store    Store
	gateway  PaymentGateway
	currency string
}

func NewPaymentService(store Store, gateway PaymentGateway, currency string) *PaymentService {
	return &PaymentService{store: store, gateway: gateway, currency: currency}
}

// CreateIntent opens a gateway order for the booking's final amount and
// persists the payment attempt in created. A stale created attempt is
// superseded so at most one non-terminal payment exists per booking.
func (s *PaymentService) CreateIntent(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, fmt.Errorf("%w: booking is %s, not pending", ErrIllegalState, booking.Status)
	}
	if booking.FinalAmountCents != booking.TotalAmountCents+booking.ServiceFeeCents-booking.DiscountCents {
		// The snapshot desynchronized; refuse before touching the gateway.
		return nil, fmt.Errorf("%w: booking amounts do not reconcile", ErrValidation)
	}

	var stale *models.Payment
	if existing, err := s.store.Payments().GetActiveByBooking(ctx, bookingID); err == nil {
		if existing.Status != models.PaymentCreated {
			return nil, fmt.Errorf("%w: a payment is already %s", ErrIllegalState, existing.Status)
		}
		stale = existing
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	orderID, err := s.gateway.CreateOrder(ctx, booking.FinalAmountCents, booking.Currency, booking.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	payment := &models.Payment{
		BookingID:   bookingID,
		AmountCents: booking.FinalAmountCents,
		Currency:    booking.Currency,
		Status:      models.PaymentCreated,
		GatewayOrderID: orderID,
	}
	err = s.store.Atomic(ctx, func(st Store) error {
		if stale != nil {
			if err := st.Payments().UpdateStatus(ctx, stale.ID, models.PaymentCreated, models.PaymentFailed, PaymentPatch{}); err != nil {
				return err
			}
		}
		return st.Payments().Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Verify is the security-critical step: the callback's signature is
// recomputed server-side and compared in constant time; only a match
// completes the payment and confirms the booking, atomically. Replaying a
// verified payload is a no-op.
func (s *PaymentService) Verify(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string, bookingID uuid.UUID) (*models.Booking, error) {
	payment, err := s.store.Payments().GetByOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if payment.BookingID != bookingID {
		return nil, fmt.Errorf("%w: order does not belong to this booking", ErrValidation)
	}

	// Idempotent replay: already settled, nothing to do.
	if payment.Status == models.PaymentCompleted {
		return s.store.Bookings().GetByID(ctx, bookingID)
	}
	if payment.Terminal() {
		return nil, fmt.Errorf("%w: payment attempt is %s", ErrIllegalState, payment.Status)
	}

	if !s.gateway.VerifySignature(gatewayOrderID, gatewayPaymentID, signature) {
		log.Printf("🔥 Signature mismatch for order %s, payment %s: possible forgery", gatewayOrderID, gatewayPaymentID)
		if err := s.store.Payments().UpdateStatus(ctx, payment.ID, payment.Status, models.PaymentFailed,
			PaymentPatch{GatewayPaymentID: &gatewayPaymentID}); err != nil && !errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, ErrSignatureVerification
	}

	err = s.store.Atomic(ctx, func(st Store) error {
		patch := PaymentPatch{GatewayPaymentID: &gatewayPaymentID, Signature: &signature}
		if err := st.Payments().UpdateStatus(ctx, payment.ID, payment.Status, models.PaymentCompleted, patch); err != nil {
			if errors.Is(err, ErrConflict) {
				// Lost a race with another verify of the same payload.
				current, rerr := st.Payments().GetByID(ctx, payment.ID)
				if rerr == nil && current.Status == models.PaymentCompleted {
					return nil
				}
			}
			return err
		}

		booking, err := st.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		switch {
		case booking.Status == models.BookingPending && booking.Assigned():
			err := st.Bookings().UpdateStatus(ctx, bookingID, models.BookingPending, models.BookingConfirmed, BookingPatch{})
			if errors.Is(err, ErrConflict) {
				// Cancellation won the race; keep the captured money
				// visible for refund instead of dropping it.
				return st.Payments().MarkRefundEligible(ctx, payment.ID)
			}
			return err
		case booking.Status == models.BookingCancelled:
			return st.Payments().MarkRefundEligible(ctx, payment.ID)
		default:
			// Unassigned pending booking: payment is settled, confirmation
			// waits for admin assignment.
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return s.store.Bookings().GetByID(ctx, bookingID)
}

// IssueRefund executes a refund against the gateway and reconciles the
// local rows: payment to refunded, and the cancelled booking to refunded.
// Admin-only, and audited in the same transaction.
func (s *PaymentService) IssueRefund(ctx context.Context, paymentID uuid.UUID, amountCents int64, reason string, actor Actor) (*models.Payment, error) {
	if actor.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: only admins issue refunds", ErrPermission)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: refund reason is required", ErrValidation)
	}

	payment, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentCompleted {
		return nil, fmt.Errorf("%w: only completed payments can be refunded", ErrIllegalState)
	}
	if amountCents <= 0 || amountCents > payment.AmountCents {
		return nil, fmt.Errorf("%w: refund amount out of range", ErrValidation)
	}
	if payment.GatewayPaymentID == nil {
		return nil, fmt.Errorf("%w: payment has no gateway capture to refund", ErrIllegalState)
	}

	refundID, err := s.gateway.Refund(ctx, *payment.GatewayPaymentID, amountCents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	err = s.store.Atomic(ctx, func(st Store) error {
		patch := PaymentPatch{
			GatewayRefundID:   &refundID,
			RefundAmountCents: &amountCents,
			RefundReason:      &reason,
		}
		if err := st.Payments().UpdateStatus(ctx, paymentID, models.PaymentCompleted, models.PaymentRefunded, patch); err != nil {
			return err
		}

		booking, err := st.Bookings().GetByID(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		if booking.Status == models.BookingCancelled {
			if err := st.Bookings().UpdateStatus(ctx, booking.ID, models.BookingCancelled, models.BookingRefunded, BookingPatch{}); err != nil {
				return err
			}
		}

		return st.Audit().Record(ctx, &models.AdminAction{
			ActorID:     actor.ID,
			ActionType:  models.ActionIssueRefund,
			TargetType:  "payment",
			TargetID:    paymentID,
			Description: fmt.Sprintf("refunded %d %s: %s", amountCents, payment.Currency, reason),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.store.Payments().GetByID(ctx, paymentID)
}
