package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndegwakip/huduma_hub/models"
)

type engineFixture struct {
	store          *memStore
	gateway        *fakeGateway
	engine         *BookingService
	payments       *PaymentService
	customerID     uuid.UUID
	professionalID uuid.UUID
	adminID        uuid.UUID
	serviceID      uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	store := newMemStore()
	gateway := newFakeGateway()
	cfg := BookingConfig{ServiceFeeRate: 0.10, ProfessionalShareRate: 0.80, Currency: "KES"}
	assign := NewAssignmentService(store)

	f := &engineFixture{
		store:    store,
		gateway:  gateway,
		engine:   NewBookingService(store, assign, cfg),
		payments: NewPaymentService(store, gateway, cfg.Currency),
	}
	f.customerID = store.seedCustomer()
	f.professionalID = store.seedProfessional("active", true)
	f.adminID = store.setAdmin()
	f.serviceID = store.seedService(10000, 120)
	store.seedOffering(f.professionalID, f.serviceID, nil, true)
	return f
}

func (f *engineFixture) customer() Actor     { return Actor{ID: f.customerID, Role: RoleCustomer} }
func (f *engineFixture) professional() Actor { return Actor{ID: f.professionalID, Role: RoleProfessional} }
func (f *engineFixture) admin() Actor        { return Actor{ID: f.adminID, Role: RoleAdmin} }

func (f *engineFixture) createBooking(t *testing.T, withProfessional bool) *models.Booking {
	t.Helper()

	in := CreateBookingInput{
		CustomerID:  f.customerID,
		ServiceID:   f.serviceID,
		AddressID:   uuid.New(),
		ScheduledAt: time.Now().Add(24 * time.Hour),
	}
	if withProfessional {
		in.ProfessionalID = &f.professionalID
	}
	booking, err := f.engine.Create(context.Background(), in)
	require.NoError(t, err)
	return booking
}

// confirmBooking walks a fresh booking to confirmed through the real
// payment path.
func (f *engineFixture) confirmBooking(t *testing.T) *models.Booking {
	t.Helper()

	booking := f.createBooking(t, true)
	payment, err := f.payments.CreateIntent(context.Background(), booking.ID)
	require.NoError(t, err)

	sig := f.gateway.sign(payment.GatewayOrderID, "pay_ok")
	confirmed, err := f.payments.Verify(context.Background(), payment.GatewayOrderID, "pay_ok", sig, booking.ID)
	require.NoError(t, err)
	require.Equal(t, models.BookingConfirmed, confirmed.Status)
	return confirmed
}

func TestCreateBookingSnapshotsPrice(t *testing.T) {
	f := newEngineFixture(t)

	booking := f.createBooking(t, false)

	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, int64(10000), booking.TotalAmountCents)
	assert.Equal(t, int64(1000), booking.ServiceFeeCents)
	assert.Equal(t, int64(11000), booking.FinalAmountCents)
	assert.Equal(t, "KES", booking.Currency)
	assert.Equal(t, 120, booking.DurationMinutes)
	assert.Nil(t, booking.ProfessionalID)
}

func TestCreateBookingUsesOfferingOverride(t *testing.T) {
	f := newEngineFixture(t)
	override := int64(15000)
	pro2 := f.store.seedProfessional("active", true)
	f.store.seedOffering(pro2, f.serviceID, &override, true)

	booking, err := f.engine.Create(context.Background(), CreateBookingInput{
		CustomerID:     f.customerID,
		ServiceID:      f.serviceID,
		ProfessionalID: &pro2,
		AddressID:      uuid.New(),
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(15000), booking.TotalAmountCents)
	assert.Equal(t, int64(1500), booking.ServiceFeeCents)
	assert.Equal(t, int64(16500), booking.FinalAmountCents)
	require.NotNil(t, booking.ProfessionalID)
	assert.Equal(t, pro2, *booking.ProfessionalID)
	assert.NotNil(t, booking.ProfessionalServiceID)
}

func TestCreateBookingRejectsPastSchedule(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Create(context.Background(), CreateBookingInput{
		CustomerID:  f.customerID,
		ServiceID:   f.serviceID,
		AddressID:   uuid.New(),
		ScheduledAt: time.Now().Add(-time.Minute),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateBookingRejectsOversizedDiscount(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Create(context.Background(), CreateBookingInput{
		CustomerID:    f.customerID,
		ServiceID:     f.serviceID,
		AddressID:     uuid.New(),
		ScheduledAt:   time.Now().Add(time.Hour),
		DiscountCents: 99999,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateBookingRejectsIneligibleProfessional(t *testing.T) {
	f := newEngineFixture(t)

	cases := map[string]uuid.UUID{
		"unverified":   f.store.seedProfessional("active", false),
		"pending":      f.store.seedProfessional("pending", true),
		"suspended":    f.store.seedProfessional("suspended", true),
		"not a pro":    f.store.seedCustomer(),
		"non-existent": uuid.New(),
	}
	for name, proID := range cases {
		proID := proID
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.Create(context.Background(), CreateBookingInput{
				CustomerID:     f.customerID,
				ServiceID:      f.serviceID,
				ProfessionalID: &proID,
				AddressID:      uuid.New(),
				ScheduledAt:    time.Now().Add(time.Hour),
			})
			assert.ErrorIs(t, err, ErrIneligibleProfessional)
		})
	}
}

func TestCreateBookingRejectsProfessionalWithoutOffering(t *testing.T) {
	f := newEngineFixture(t)
	pro2 := f.store.seedProfessional("active", true)

	_, err := f.engine.Create(context.Background(), CreateBookingInput{
		CustomerID:     f.customerID,
		ServiceID:      f.serviceID,
		ProfessionalID: &pro2,
		AddressID:      uuid.New(),
		ScheduledAt:    time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrIneligibleProfessional)
}

func TestProfessionalWorksTheJob(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	started, err := f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, f.professional())
	require.NoError(t, err)
	assert.Equal(t, models.BookingInProgress, started.Status)

	done, err := f.engine.Transition(context.Background(), booking.ID, models.BookingCompleted, f.professional())
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	// 80% of the 11000 final amount.
	profile, err := f.store.Profiles().GetProfessional(context.Background(), f.professionalID)
	require.NoError(t, err)
	assert.Equal(t, int64(8800), profile.CurrentBalanceCents)
}

func TestTransitionRefusesIllegalEdge(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, true)

	_, err := f.engine.Transition(context.Background(), booking.ID, models.BookingCompleted, f.admin())
	assert.ErrorIs(t, err, ErrIllegalState)

	_, err = f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, f.admin())
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestTransitionRefusesCancelAndRefundTargets(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, true)

	_, err := f.engine.Transition(context.Background(), booking.ID, models.BookingCancelled, f.customer())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.engine.Transition(context.Background(), booking.ID, models.BookingRefunded, f.admin())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionEnforcesRoleAndOwnership(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	// Customers do not start jobs.
	_, err := f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, f.customer())
	assert.ErrorIs(t, err, ErrPermission)

	// Neither does a different professional.
	stranger := f.store.seedProfessional("active", true)
	_, err = f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, Actor{ID: stranger, Role: RoleProfessional})
	assert.ErrorIs(t, err, ErrPermission)
}

func TestConcurrentTransitionHasOneWinner(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, f.professional())
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			// The loser either lost the conditional write or read the row
			// after it had already moved.
			losers++
			if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrIllegalState) {
				t.Fatalf("unexpected loser error: %v", err)
			}
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, losers)

	final, err := f.store.Bookings().GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingInProgress, final.Status)
}

func TestCancelRequiresReason(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, true)

	_, err := f.engine.Cancel(context.Background(), booking.ID, f.customer(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCancelStampsReasonAndTime(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, true)

	cancelled, err := f.engine.Cancel(context.Background(), booking.ID, f.customer(), "found another provider")
	require.NoError(t, err)

	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "found another provider", *cancelled.CancellationReason)
}

func TestCancelRefusedMidService(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	_, err := f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, f.professional())
	require.NoError(t, err)

	_, err = f.engine.Cancel(context.Background(), booking.ID, f.customer(), "changed my mind")
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestCancelPaidBookingFlagsRefund(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	_, err := f.engine.Cancel(context.Background(), booking.ID, f.customer(), "no longer needed")
	require.NoError(t, err)

	payment, err := f.store.Payments().GetCompletedByBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.True(t, payment.RefundEligible)
}

func TestAdminForceTransitionIsAudited(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	_, err := f.engine.Transition(context.Background(), booking.ID, models.BookingInProgress, f.admin())
	require.NoError(t, err)

	trail := f.store.auditTrail()
	require.Len(t, trail, 1)
	assert.Equal(t, models.ActionForceTransition, trail[0].ActionType)
	assert.Equal(t, f.adminID, trail[0].ActorID)
	assert.Equal(t, booking.ID, trail[0].TargetID)
}

func TestAuditFailureRollsBackAdminAction(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, true)
	f.store.data.failAudit = true

	_, err := f.engine.Cancel(context.Background(), booking.ID, f.admin(), "ops request")
	require.Error(t, err)

	// The status write must not survive the failed audit record.
	current, err := f.store.Bookings().GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, current.Status)
	assert.Empty(t, f.store.auditTrail())
}

func TestAssignProfessionalAdminOnly(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, false)

	_, err := f.engine.AssignProfessional(context.Background(), booking.ID, f.professionalID, f.customer())
	assert.ErrorIs(t, err, ErrPermission)
}

func TestAssignProfessionalPendingOnly(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.confirmBooking(t)

	_, err := f.engine.AssignProfessional(context.Background(), booking.ID, f.professionalID, f.admin())
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestAssignProfessionalValidatesEligibility(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, false)
	unverified := f.store.seedProfessional("active", false)

	_, err := f.engine.AssignProfessional(context.Background(), booking.ID, unverified, f.admin())
	assert.ErrorIs(t, err, ErrIneligibleProfessional)
}

func TestAssignProfessionalAudits(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, false)

	assigned, err := f.engine.AssignProfessional(context.Background(), booking.ID, f.professionalID, f.admin())
	require.NoError(t, err)

	require.NotNil(t, assigned.ProfessionalID)
	assert.Equal(t, f.professionalID, *assigned.ProfessionalID)
	assert.Equal(t, models.BookingPending, assigned.Status)

	trail := f.store.auditTrail()
	require.Len(t, trail, 1)
	assert.Equal(t, models.ActionAssignProfessional, trail[0].ActionType)
}

func TestAssignPaidBookingConfirmsImmediately(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, false)

	// Customer pays while the booking is still unassigned. Settlement
	// completes but the booking stays pending.
	payment, err := f.payments.CreateIntent(context.Background(), booking.ID)
	require.NoError(t, err)
	sig := f.gateway.sign(payment.GatewayOrderID, "pay_early")
	afterVerify, err := f.payments.Verify(context.Background(), payment.GatewayOrderID, "pay_early", sig, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, afterVerify.Status)

	settled, err := f.store.Payments().GetCompletedByBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, settled.Status)

	// Admin assignment then confirms in the same step.
	assigned, err := f.engine.AssignProfessional(context.Background(), booking.ID, f.professionalID, f.admin())
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, assigned.Status)
}

func TestExpireStalePendingCancelsUnpaid(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, true)

	// Age the booking past the window.
	f.store.data.mu.Lock()
	f.store.data.bookings[booking.ID].CreatedAt = time.Now().Add(-2 * time.Hour)
	f.store.data.mu.Unlock()

	expired, err := f.engine.ExpireStalePending(context.Background(), time.Hour, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	current, err := f.store.Bookings().GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, current.Status)
	assert.NotNil(t, current.CancellationReason)
}

func TestExpireStalePendingSkipsPaid(t *testing.T) {
	f := newEngineFixture(t)
	booking := f.createBooking(t, false)

	payment, err := f.payments.CreateIntent(context.Background(), booking.ID)
	require.NoError(t, err)
	sig := f.gateway.sign(payment.GatewayOrderID, "pay_slow")
	_, err = f.payments.Verify(context.Background(), payment.GatewayOrderID, "pay_slow", sig, booking.ID)
	require.NoError(t, err)

	f.store.data.mu.Lock()
	f.store.data.bookings[booking.ID].CreatedAt = time.Now().Add(-2 * time.Hour)
	f.store.data.mu.Unlock()

	expired, err := f.engine.ExpireStalePending(context.Background(), time.Hour, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	current, err := f.store.Bookings().GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, current.Status)
}
