package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
)

// BookingConfig carries the platform rates the engine snapshots prices
// with. Rates are read once at startup, not per request.
type BookingConfig struct {
	// ServiceFeeRate is the platform fee charged on top of the service
	// price, e.g. 0.10.
	ServiceFeeRate float64
	// ProfessionalShareRate is the fraction of the final amount credited to
	// the professional on completion, e.g. 0.80.
	ProfessionalShareRate float64
	Currency              string
}

// BookingService owns the booking lifecycle: creation, status transitions,
// assignment and cancellation. All status writes go through conditional
// updates so concurrent actors race safely.
type BookingService struct {
	store       Store
	assignments *AssignmentService
	cfg         BookingConfig
}

func NewBookingService(store Store, assignments *AssignmentService, cfg BookingConfig) *BookingService {
	return &BookingService{store: store, assignments: assignments, cfg: cfg}
}

type CreateBookingInput struct {
	CustomerID     uuid.UUID
	ServiceID      uuid.UUID
	ProfessionalID *uuid.UUID
	AddressID      uuid.UUID
	ScheduledAt    time.Time
	DiscountCents  int64
}

// Create opens a booking in pending with a price snapshot taken now.
// When a professional is requested up front they are validated and
// assigned immediately; otherwise the booking waits for admin assignment.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if !in.ScheduledAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrValidation)
	}
	if in.DiscountCents < 0 {
		return nil, fmt.Errorf("%w: discount cannot be negative", ErrValidation)
	}

	service, err := s.store.Catalog().GetService(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown service", ErrValidation)
		}
		return nil, err
	}
	if !service.IsActive {
		return nil, fmt.Errorf("%w: service is not bookable", ErrValidation)
	}

	price := service.BasePriceCents
	duration := service.BaseDurationMinutes
	var offeringID *uuid.UUID
	if in.ProfessionalID != nil {
		result, err := s.assignments.Validate(ctx, *in.ProfessionalID, in.ServiceID)
		if err != nil {
			return nil, err
		}
		price = result.PriceCents
		duration = result.DurationMinutes
		offeringID = result.OfferingID
	}

	fee := int64(math.Round(float64(price) * s.cfg.ServiceFeeRate))
	if in.DiscountCents > price+fee {
		return nil, fmt.Errorf("%w: discount exceeds booking amount", ErrValidation)
	}

	booking := &models.Booking{
		CustomerID:            in.CustomerID,
		ProfessionalID:        in.ProfessionalID,
		ServiceID:             in.ServiceID,
		ProfessionalServiceID: offeringID,
		AddressID:             in.AddressID,
		ScheduledAt:           in.ScheduledAt,
		DurationMinutes:       duration,
		TotalAmountCents:      price,
		ServiceFeeCents:       fee,
		DiscountCents:         in.DiscountCents,
		FinalAmountCents:      price + fee - in.DiscountCents,
		Currency:              s.cfg.Currency,
		Status:                models.BookingPending,
	}
	if err := s.store.Bookings().Create(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Transition applies one edge of the state machine on behalf of an actor.
// Cancellations carry a mandatory reason and go through Cancel; refunds go
// through the payment service.
func (s *BookingService) Transition(ctx context.Context, bookingID uuid.UUID, target models.BookingStatus, actor Actor) (*models.Booking, error) {
	switch target {
	case models.BookingCancelled:
		return nil, fmt.Errorf("%w: cancellation requires a reason", ErrValidation)
	case models.BookingRefunded:
		return nil, fmt.Errorf("%w: refunds are issued against the payment", ErrValidation)
	}

	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(booking, target, actor); err != nil {
		return nil, err
	}

	var patch BookingPatch
	if target == models.BookingCompleted {
		now := time.Now()
		patch.CompletedAt = &now
	}

	err = s.store.Atomic(ctx, func(st Store) error {
		if err := st.Bookings().UpdateStatus(ctx, bookingID, booking.Status, target, patch); err != nil {
			return err
		}
		if target == models.BookingCompleted {
			share := int64(math.Round(float64(booking.FinalAmountCents) * s.cfg.ProfessionalShareRate))
			if err := st.Profiles().CreditProfessional(ctx, *booking.ProfessionalID, share); err != nil {
				return err
			}
		}
		if actor.Role == RoleAdmin {
			return st.Audit().Record(ctx, &models.AdminAction{
				ActorID:     actor.ID,
				ActionType:  models.ActionForceTransition,
				TargetType:  "booking",
				TargetID:    bookingID,
				Description: fmt.Sprintf("forced %s -> %s", booking.Status, target),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Bookings().GetByID(ctx, bookingID)
}

// Cancel moves a pending or confirmed booking to cancelled, recording the
// mandatory reason. Money already captured is never touched here; the
// payment is flagged for the admin refund queue instead.
func (s *BookingService) Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason string) (*models.Booking, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation reason is required", ErrValidation)
	}

	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !cancellable(booking.Status) {
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", ErrIllegalState, booking.Status)
	}
	if err := s.authorize(booking, models.BookingCancelled, actor); err != nil {
		return nil, err
	}

	paid, err := s.store.Payments().GetCompletedByBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	patch := BookingPatch{CancelledAt: &now, CancellationReason: &reason}

	err = s.store.Atomic(ctx, func(st Store) error {
		if err := st.Bookings().UpdateStatus(ctx, bookingID, booking.Status, models.BookingCancelled, patch); err != nil {
			return err
		}
		if paid != nil {
			if err := st.Payments().MarkRefundEligible(ctx, paid.ID); err != nil {
				return err
			}
		}
		if actor.Role == RoleAdmin {
			return st.Audit().Record(ctx, &models.AdminAction{
				ActorID:     actor.ID,
				ActionType:  models.ActionCancelBooking,
				TargetType:  "booking",
				TargetID:    bookingID,
				Description: "cancelled: " + reason,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Bookings().GetByID(ctx, bookingID)
}

// AssignProfessional is the admin path for attaching a professional to a
// pending booking. Eligibility is re-validated even when the booking
// already carries a price snapshot, and if the booking was already paid
// the assignment also confirms it, all in one atomic operation.
func (s *BookingService) AssignProfessional(ctx context.Context, bookingID, professionalID uuid.UUID, actor Actor) (*models.Booking, error) {
	if actor.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: only admins assign professionals", ErrPermission)
	}

	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, fmt.Errorf("%w: can only assign while pending", ErrIllegalState)
	}

	result, err := s.assignments.Validate(ctx, professionalID, booking.ServiceID)
	if err != nil {
		return nil, err
	}

	paid, err := s.store.Payments().GetCompletedByBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	err = s.store.Atomic(ctx, func(st Store) error {
		if err := st.Bookings().Assign(ctx, bookingID, professionalID, result.OfferingID); err != nil {
			return err
		}
		// A booking that was paid while unassigned confirms as soon as a
		// professional is attached.
		if paid != nil {
			if err := st.Bookings().UpdateStatus(ctx, bookingID, models.BookingPending, models.BookingConfirmed, BookingPatch{}); err != nil {
				return err
			}
		}
		return st.Audit().Record(ctx, &models.AdminAction{
			ActorID:     actor.ID,
			ActionType:  models.ActionAssignProfessional,
			TargetType:  "booking",
			TargetID:    bookingID,
			Description: fmt.Sprintf("assigned professional %s", professionalID),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.store.Bookings().GetByID(ctx, bookingID)
}

// ExpireStalePending cancels unpaid pending bookings created before the
// cutoff. Runs under the system actor; losers of a race with a concurrent
// payment confirmation simply skip.
func (s *BookingService) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	ids, err := s.store.Bookings().ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		// Skip bookings whose payment already completed; they are waiting
		// on assignment, not on the customer.
		if _, err := s.store.Payments().GetCompletedByBooking(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return expired, err
		}

		now := time.Now()
		reason := "payment not received within the payment window"
		err := s.store.Bookings().UpdateStatus(ctx, id, models.BookingPending, models.BookingCancelled,
			BookingPatch{CancelledAt: &now, CancellationReason: &reason})
		if err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// authorize checks the edge against the capability table and, for
// non-privileged actors, booking ownership.
func (s *BookingService) authorize(booking *models.Booking, target models.BookingStatus, actor Actor) error {
	if !edgeExists(booking.Status, target) {
		return fmt.Errorf("%w: no %s -> %s transition", ErrIllegalState, booking.Status, target)
	}
	if !roleAllowed(booking.Status, target, actor.Role) {
		return fmt.Errorf("%w: %s may not drive %s -> %s", ErrPermission, actor.Role, booking.Status, target)
	}
	switch actor.Role {
	case RoleCustomer:
		if booking.CustomerID != actor.ID {
			return fmt.Errorf("%w: not your booking", ErrPermission)
		}
	case RoleProfessional:
		if booking.ProfessionalID == nil || *booking.ProfessionalID != actor.ID {
			return fmt.Errorf("%w: not your booking", ErrPermission)
		}
	}
	if requiresAssignment(target) && !booking.Assigned() {
		return fmt.Errorf("%w: booking has no professional assigned", ErrIllegalState)
	}
	return nil
}
