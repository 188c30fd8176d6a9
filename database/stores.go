package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ndegwakip/huduma_hub/models"
	"github.com/ndegwakip/huduma_hub/services"
	"github.com/ndegwakip/huduma_hub/utils"
)

// GormStore implements the booking engine's persistence ports on top of
// Postgres. Conditional status writes are plain
// UPDATE ... WHERE id = ? AND status = ? so concurrent transitions race on
// the database, not in memory.
type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Bookings() services.BookingStore { return &bookingStore{db: s.db} }
func (s *GormStore) Payments() services.PaymentStore { return &paymentStore{db: s.db} }
func (s *GormStore) Profiles() services.ProfileStore { return &profileStore{db: s.db} }
func (s *GormStore) Catalog() services.CatalogStore  { return &catalogStore{db: s.db} }
func (s *GormStore) Audit() services.AuditStore      { return &auditStore{db: s.db} }

func (s *GormStore) Atomic(ctx context.Context, fn func(services.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrNotFound
	}
	return err
}

type bookingStore struct{ db *gorm.DB }

func (s *bookingStore) Create(ctx context.Context, booking *models.Booking) error {
	if booking.Reference == "" {
		ref, err := utils.GenerateUniqueBookingReference(s.db)
		if err != nil {
			return err
		}
		booking.Reference = ref
	}
	return s.db.WithContext(ctx).Create(booking).Error
}

func (s *bookingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *bookingStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus, patch services.BookingPatch) error {
	values := map[string]interface{}{"status": to}
	if patch.CompletedAt != nil {
		values["completed_at"] = *patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		values["cancelled_at"] = *patch.CancelledAt
	}
	if patch.CancellationReason != nil {
		values["cancellation_reason"] = *patch.CancellationReason
	}

	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missedWrite(ctx, id)
	}
	return nil
}

func (s *bookingStore) Assign(ctx context.Context, id uuid.UUID, professionalID uuid.UUID, offeringID *uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, models.BookingPending).
		Updates(map[string]interface{}{
			"professional_id":         professionalID,
			"professional_service_id": offeringID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missedWrite(ctx, id)
	}
	return nil
}

func (s *bookingStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ? AND created_at < ?", models.BookingPending, before).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// missedWrite distinguishes a lost optimistic race from a missing row.
func (s *bookingStore) missedWrite(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return services.ErrNotFound
	}
	return services.ErrConflict
}

type paymentStore struct{ db *gorm.DB }

func (s *paymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *paymentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *paymentStore) GetByOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *paymentStore) GetActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID,
			[]models.PaymentStatus{models.PaymentCreated, models.PaymentAuthorized, models.PaymentCompleted}).
		Order("created_at desc").
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *paymentStore) GetCompletedByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, models.PaymentCompleted).
		Order("created_at desc").
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *paymentStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, patch services.PaymentPatch) error {
	values := map[string]interface{}{"status": to}
	if patch.GatewayPaymentID != nil {
		values["gateway_payment_id"] = *patch.GatewayPaymentID
	}
	if patch.Signature != nil {
		values["signature"] = *patch.Signature
	}
	if patch.GatewayRefundID != nil {
		values["gateway_refund_id"] = *patch.GatewayRefundID
	}
	if patch.RefundAmountCents != nil {
		values["refund_amount_cents"] = *patch.RefundAmountCents
	}
	if patch.RefundReason != nil {
		values["refund_reason"] = *patch.RefundReason
	}

	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return services.ErrNotFound
		}
		return services.ErrConflict
	}
	return nil
}

func (s *paymentStore) MarkRefundEligible(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Update("refund_eligible", true).Error
}

type profileStore struct{ db *gorm.DB }

func (s *profileStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *profileStore) GetProfessional(ctx context.Context, userID uuid.UUID) (*models.Professional, error) {
	var professional models.Professional
	if err := s.db.WithContext(ctx).First(&professional, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &professional, nil
}

func (s *profileStore) CreditProfessional(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	return s.db.WithContext(ctx).Model(&models.Professional{}).
		Where("user_id = ?", userID).
		Update("current_balance_cents", gorm.Expr("current_balance_cents + ?", amountCents)).Error
}

type catalogStore struct{ db *gorm.DB }

func (s *catalogStore) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	if err := s.db.WithContext(ctx).First(&service, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &service, nil
}

func (s *catalogStore) GetOffering(ctx context.Context, professionalID, serviceID uuid.UUID) (*models.ProfessionalService, error) {
	var offering models.ProfessionalService
	err := s.db.WithContext(ctx).
		Where("professional_id = ? AND service_id = ?", professionalID, serviceID).
		First(&offering).Error
	if err != nil {
		return nil, translate(err)
	}
	return &offering, nil
}

type auditStore struct{ db *gorm.DB }

func (s *auditStore) Record(ctx context.Context, action *models.AdminAction) error {
	return s.db.WithContext(ctx).Create(action).Error
}
