package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
	"github.com/ndegwakip/huduma_hub/payments"
)

// memStore is an in-memory Store with the same conditional-write semantics
// as the Postgres implementation: UpdateStatus only succeeds when the row
// still holds the expected prior status, so concurrent transitions race
// exactly one winner. Atomic keeps an undo journal and rolls back committed
// writes when the callback fails.
type memStore struct {
	data    *memData
	journal *[]func()
}

type memData struct {
	mu            sync.Mutex
	bookings      map[uuid.UUID]*models.Booking
	payments      map[uuid.UUID]*models.Payment
	users         map[uuid.UUID]*models.User
	professionals map[uuid.UUID]*models.Professional
	services      map[uuid.UUID]*models.Service
	offerings     map[uuid.UUID]*models.ProfessionalService
	actions       []*models.AdminAction

	failAudit bool
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		bookings:      make(map[uuid.UUID]*models.Booking),
		payments:      make(map[uuid.UUID]*models.Payment),
		users:         make(map[uuid.UUID]*models.User),
		professionals: make(map[uuid.UUID]*models.Professional),
		services:      make(map[uuid.UUID]*models.Service),
		offerings:     make(map[uuid.UUID]*models.ProfessionalService),
	}}
}

func (s *memStore) Bookings() BookingStore { return &memBookings{s} }
func (s *memStore) Payments() PaymentStore { return &memPayments{s} }
func (s *memStore) Profiles() ProfileStore { return &memProfiles{s} }
func (s *memStore) Catalog() CatalogStore  { return &memCatalog{s} }
func (s *memStore) Audit() AuditStore      { return &memAudit{s} }

func (s *memStore) Atomic(ctx context.Context, fn func(Store) error) error {
	undo := make([]func(), 0, 8)
	tx := &memStore{data: s.data, journal: &undo}
	if err := fn(tx); err != nil {
		s.data.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		s.data.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) record(undo func()) {
	if s.journal != nil {
		*s.journal = append(*s.journal, undo)
	}
}

type memBookings struct{ s *memStore }

func (m *memBookings) Create(ctx context.Context, booking *models.Booking) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Reference == "" {
		booking.Reference = "HB" + booking.ID.String()[:8]
	}
	booking.CreatedAt = time.Now()
	cp := *booking
	d.bookings[booking.ID] = &cp

	id := booking.ID
	m.s.record(func() { delete(d.bookings, id) })
	return nil
}

func (m *memBookings) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus, patch BookingPatch) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != from {
		return ErrConflict
	}

	prev := *b
	b.Status = to
	if patch.CompletedAt != nil {
		b.CompletedAt = patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		b.CancelledAt = patch.CancelledAt
	}
	if patch.CancellationReason != nil {
		b.CancellationReason = patch.CancellationReason
	}

	m.s.record(func() { d.bookings[id] = &prev })
	return nil
}

func (m *memBookings) Assign(ctx context.Context, id uuid.UUID, professionalID uuid.UUID, offeringID *uuid.UUID) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != models.BookingPending {
		return ErrConflict
	}

	prev := *b
	b.ProfessionalID = &professionalID
	b.ProfessionalServiceID = offeringID

	m.s.record(func() { d.bookings[id] = &prev })
	return nil
}

func (m *memBookings) ListStalePending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []uuid.UUID
	for id, b := range d.bookings {
		if b.Status == models.BookingPending && b.CreatedAt.Before(before) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

type memPayments struct{ s *memStore }

func (m *memPayments) Create(ctx context.Context, payment *models.Payment) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	cp := *payment
	d.payments[payment.ID] = &cp

	id := payment.ID
	m.s.record(func() { delete(d.payments, id) })
	return nil
}

func (m *memPayments) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) GetByOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.payments {
		if p.GatewayOrderID == gatewayOrderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memPayments) GetActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	var latest *models.Payment
	for _, p := range d.payments {
		if p.BookingID != bookingID || p.Terminal() {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memPayments) GetCompletedByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	var latest *models.Payment
	for _, p := range d.payments {
		if p.BookingID != bookingID || p.Status != models.PaymentCompleted {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memPayments) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, patch PaymentPatch) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.payments[id]
	if !ok {
		return ErrNotFound
	}
	if p.Status != from {
		return ErrConflict
	}

	prev := *p
	p.Status = to
	if patch.GatewayPaymentID != nil {
		p.GatewayPaymentID = patch.GatewayPaymentID
	}
	if patch.Signature != nil {
		p.Signature = patch.Signature
	}
	if patch.GatewayRefundID != nil {
		p.GatewayRefundID = patch.GatewayRefundID
	}
	if patch.RefundAmountCents != nil {
		p.RefundAmountCents = *patch.RefundAmountCents
	}
	if patch.RefundReason != nil {
		p.RefundReason = patch.RefundReason
	}

	m.s.record(func() { d.payments[id] = &prev })
	return nil
}

func (m *memPayments) MarkRefundEligible(ctx context.Context, id uuid.UUID) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.payments[id]
	if !ok {
		return ErrNotFound
	}
	prev := p.RefundEligible
	p.RefundEligible = true
	m.s.record(func() { p.RefundEligible = prev })
	return nil
}

type memProfiles struct{ s *memStore }

func (m *memProfiles) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memProfiles) GetProfessional(ctx context.Context, userID uuid.UUID) (*models.Professional, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.professionals[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) CreditProfessional(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.professionals[userID]
	if !ok {
		return ErrNotFound
	}
	p.CurrentBalanceCents += amountCents
	m.s.record(func() { p.CurrentBalanceCents -= amountCents })
	return nil
}

type memCatalog struct{ s *memStore }

func (m *memCatalog) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	svc, ok := d.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (m *memCatalog) GetOffering(ctx context.Context, professionalID, serviceID uuid.UUID) (*models.ProfessionalService, error) {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, o := range d.offerings {
		if o.ProfessionalID == professionalID && o.ServiceID == serviceID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memAudit struct{ s *memStore }

func (m *memAudit) Record(ctx context.Context, action *models.AdminAction) error {
	d := m.s.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failAudit {
		return errors.New("audit store unavailable")
	}
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	action.CreatedAt = time.Now()
	d.actions = append(d.actions, action)
	m.s.record(func() { d.actions = d.actions[:len(d.actions)-1] })
	return nil
}

func (s *memStore) auditTrail() []*models.AdminAction {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	out := make([]*models.AdminAction, len(s.data.actions))
	copy(out, s.data.actions)
	return out
}

// Seed helpers.

func (s *memStore) seedCustomer() uuid.UUID {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	id := uuid.New()
	s.data.users[id] = &models.User{ID: id, FullName: "Wanjiku Test", Email: "wanjiku@example.com", Role: models.RoleCustomer, IsActive: true}
	return id
}

func (s *memStore) seedProfessional(status string, verified bool) uuid.UUID {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	id := uuid.New()
	s.data.users[id] = &models.User{ID: id, FullName: "Otieno Fundi", Email: "otieno@example.com", Role: models.RoleProfessional, IsActive: true}
	s.data.professionals[id] = &models.Professional{UserID: id, Status: status, IsVerified: verified}
	return id
}

func (s *memStore) seedService(priceCents int64, duration int) uuid.UUID {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	id := uuid.New()
	s.data.services[id] = &models.Service{ID: id, Name: "Deep Cleaning", BasePriceCents: priceCents, BaseDurationMinutes: duration, IsActive: true}
	return id
}

func (s *memStore) seedOffering(professionalID, serviceID uuid.UUID, priceCents *int64, available bool) uuid.UUID {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	id := uuid.New()
	s.data.offerings[id] = &models.ProfessionalService{
		ID: id, ProfessionalID: professionalID, ServiceID: serviceID,
		PriceCents: priceCents, IsAvailable: available,
	}
	return id
}

func (s *memStore) setAdmin() uuid.UUID {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	id := uuid.New()
	s.data.users[id] = &models.User{ID: id, FullName: "Admin", Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true}
	return id
}

// fakeGateway signs and verifies with the real HMAC scheme so tampered
// callbacks fail the same way they would in production.
type fakeGateway struct {
	mu         sync.Mutex
	secret     string
	orders     int
	refunds    int
	failCreate bool
	failRefund bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{secret: "test_secret"}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return "", errors.New("gateway down")
	}
	g.orders++
	return fmt.Sprintf("order_test_%d", g.orders), nil
}

func (g *fakeGateway) Refund(ctx context.Context, gatewayPaymentID string, amountCents int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRefund {
		return "", errors.New("gateway down")
	}
	g.refunds++
	return fmt.Sprintf("rfnd_test_%d", g.refunds), nil
}

func (g *fakeGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return payments.VerifySignature(gatewayOrderID, gatewayPaymentID, signature, g.secret)
}

// sign produces the signature a genuine gateway callback would carry.
func (g *fakeGateway) sign(gatewayOrderID, gatewayPaymentID string) string {
	return payments.Signature(gatewayOrderID, gatewayPaymentID, g.secret)
}
