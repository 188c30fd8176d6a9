package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/models"
	ws "github.com/ndegwakip/huduma_hub/websocket"
)

type ApplyRequest struct {
	Headline           string  `json:"headline" validate:"required,max=255"`
	Bio                string  `json:"bio" validate:"required,min=20"`
	VerificationDocURL *string `json:"verification_doc_url,omitempty" validate:"omitempty,url"`
}

// ApplyAsProfessional opens a pending provider application for the caller.
// The account keeps the customer role until an admin approves.
func ApplyAsProfessional(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req ApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var existing models.Professional
	if err := database.DB.First(&existing, "user_id = ?", userID).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Application already exists"})
	}

	professional := models.Professional{
		UserID:             userID,
		Headline:           &req.Headline,
		Bio:                &req.Bio,
		Status:             "pending",
		VerificationDocURL: req.VerificationDocURL,
	}
	if err := database.DB.Create(&professional).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit application"})
	}
	return c.Status(fiber.StatusCreated).JSON(professional)
}

func GetMyProfessionalProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var professional models.Professional
	if err := database.DB.Preload("User").First(&professional, "user_id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No professional profile found"})
	}
	return c.JSON(professional)
}

type OfferingRequest struct {
	ServiceID       string `json:"service_id" validate:"required,uuid"`
	PriceCents      *int64 `json:"price_cents,omitempty" validate:"omitempty,min=1"`
	DurationMinutes *int   `json:"duration_minutes,omitempty" validate:"omitempty,min=15"`
	IsAvailable     *bool  `json:"is_available,omitempty"`
}

// UpsertOffering creates or updates the caller's offering for a service.
func UpsertOffering(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req OfferingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	serviceID, _ := uuid.Parse(req.ServiceID)
	var service models.Service
	if err := database.DB.First(&service, "id = ? AND is_active = ?", serviceID, true).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown service"})
	}

	var offering models.ProfessionalService
	err = database.DB.Where("professional_id = ? AND service_id = ?", userID, serviceID).First(&offering).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		offering = models.ProfessionalService{
			ProfessionalID: userID,
			ServiceID:      serviceID,
			IsAvailable:    true,
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load offering"})
	}

	offering.PriceCents = req.PriceCents
	offering.DurationMinutes = req.DurationMinutes
	if req.IsAvailable != nil {
		offering.IsAvailable = *req.IsAvailable
	}

	if err := database.DB.Save(&offering).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save offering"})
	}
	return c.JSON(offering)
}

func ListMyOfferings(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var offerings []models.ProfessionalService
	if err := database.DB.Where("professional_id = ?", userID).Preload("Service").Find(&offerings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch offerings"})
	}
	return c.JSON(offerings)
}

func DeleteOffering(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	offeringID, err := uuid.Parse(c.Params("offeringId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offering ID"})
	}

	res := database.DB.Where("id = ? AND professional_id = ?", offeringID, userID).Delete(&models.ProfessionalService{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete offering"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Offering not found"})
	}
	return c.JSON(fiber.Map{"message": "Offering removed"})
}

func ListMyJobs(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var bookings []models.Booking
	query := database.DB.Where("professional_id = ?", userID).
		Preload("Service").
		Preload("Customer").
		Preload("Address").
		Order("scheduled_at asc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch jobs"})
	}
	return c.JSON(bookings)
}

// StartJob moves a confirmed booking to in_progress when the professional
// arrives on site.
func StartJob(c *fiber.Ctx) error {
	return professionalTransition(c, models.BookingInProgress)
}

// CompleteJob finishes an in_progress booking and credits the
// professional's share of the final amount.
func CompleteJob(c *fiber.Ctx) error {
	return professionalTransition(c, models.BookingCompleted)
}

func professionalTransition(c *fiber.Ctx, target models.BookingStatus) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	booking, err := bookingEngine.Transition(c.Context(), bookingID, target, actor)
	if err != nil {
		return serviceError(c, err)
	}

	ws.PublishBookingStatus(booking)
	if booking.Status == models.BookingCompleted && booking.ReceiptURL == nil {
		go generateAndAttachReceipt(booking.ID)
	}
	return c.JSON(booking)
}

func GetMyEarnings(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var professional models.Professional
	if err := database.DB.First(&professional, "user_id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No professional profile found"})
	}

	var completedJobs int64
	database.DB.Model(&models.Booking{}).
		Where("professional_id = ? AND status = ?", userID, models.BookingCompleted).
		Count(&completedJobs)

	var pendingPayouts int64
	database.DB.Model(&models.PayoutRequest{}).
		Where("professional_id = ? AND status = ?", userID, "pending").
		Count(&pendingPayouts)

	return c.JSON(fiber.Map{
		"current_balance_cents": professional.CurrentBalanceCents,
		"completed_jobs":        completedJobs,
		"pending_payouts":       pendingPayouts,
	})
}

type PayoutRequestBody struct {
	AmountCents int64 `json:"amount_cents" validate:"required,min=100"`
}

// RequestPayout debits the requested amount from the balance up front so a
// second request cannot withdraw the same earnings twice.
func RequestPayout(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req PayoutRequestBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var payout models.PayoutRequest
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Professional{}).
			Where("user_id = ? AND current_balance_cents >= ?", userID, req.AmountCents).
			Update("current_balance_cents", gorm.Expr("current_balance_cents - ?", req.AmountCents))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("insufficient balance")
		}

		payout = models.PayoutRequest{
			ProfessionalID: userID,
			AmountCents:    req.AmountCents,
			Status:         "pending",
			RequestedAt:    time.Now(),
		}
		return tx.Create(&payout).Error
	})
	if err != nil {
		if err.Error() == "insufficient balance" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Insufficient balance"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payout request"})
	}
	return c.Status(fiber.StatusCreated).JSON(payout)
}
