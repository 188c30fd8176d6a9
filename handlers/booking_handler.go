package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/models"
	"github.com/ndegwakip/huduma_hub/services"
	ws "github.com/ndegwakip/huduma_hub/websocket"
)

type CreateBookingRequest struct {
	ServiceID      string  `json:"service_id" validate:"required,uuid"`
	ProfessionalID *string `json:"professional_id,omitempty" validate:"omitempty,uuid"`
	AddressID      string  `json:"address_id" validate:"required,uuid"`
	ScheduledAt    string  `json:"scheduled_at" validate:"required"`
	DiscountCents  int64   `json:"discount_cents"`
}

func CreateBooking(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_at must be RFC3339"})
	}

	serviceID, _ := uuid.Parse(req.ServiceID)
	addressID, _ := uuid.Parse(req.AddressID)

	// The address must belong to the caller.
	var addrCount int64
	if err := database.DB.Model(&models.Address{}).Where("id = ? AND user_id = ?", addressID, userID).Count(&addrCount).Error; err != nil || addrCount == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown address"})
	}

	input := services.CreateBookingInput{
		CustomerID:    userID,
		ServiceID:     serviceID,
		AddressID:     addressID,
		ScheduledAt:   scheduledAt,
		DiscountCents: req.DiscountCents,
	}
	if req.ProfessionalID != nil {
		professionalID, err := uuid.Parse(*req.ProfessionalID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid professional ID"})
		}
		input.ProfessionalID = &professionalID
	}

	booking, err := bookingEngine.Create(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

func GetMyBookings(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var bookings []models.Booking
	query := database.DB.Where("customer_id = ?", userID).
		Preload("Service").
		Preload("Professional").
		Preload("Address").
		Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bookings"})
	}
	return c.JSON(bookings)
}

func GetBooking(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var booking models.Booking
	err = database.DB.
		Preload("Service").
		Preload("Customer").
		Preload("Professional").
		Preload("Address").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}

	isParty := booking.CustomerID == actor.ID ||
		(booking.ProfessionalID != nil && *booking.ProfessionalID == actor.ID)
	if !isParty && actor.Role != services.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your booking"})
	}
	return c.JSON(booking)
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

func CancelBooking(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req CancelBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	booking, err := bookingEngine.Cancel(c.Context(), bookingID, actor, req.Reason)
	if err != nil {
		return serviceError(c, err)
	}

	ws.PublishBookingStatus(booking)
	return c.JSON(booking)
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateReview lets the customer rate a completed booking, once.
func CreateReview(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CustomerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your booking"})
	}
	if booking.Status != models.BookingCompleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Only completed bookings can be reviewed"})
	}

	var existing int64
	database.DB.Model(&models.Review{}).Where("booking_id = ?", bookingID).Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Booking already reviewed"})
	}

	review := models.Review{
		BookingID:      bookingID,
		CustomerID:     userID,
		ProfessionalID: *booking.ProfessionalID,
		Rating:         req.Rating,
		Comment:        req.Comment,
	}
	if err := database.DB.Create(&review).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save review"})
	}

	// Recompute the professional's average off the reviews table.
	database.DB.Model(&models.Professional{}).
		Where("user_id = ?", review.ProfessionalID).
		Update("avg_rating", database.DB.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0)").
			Where("professional_id = ?", review.ProfessionalID))

	return c.Status(fiber.StatusCreated).JSON(review)
}

// GetBookingReceipt returns the hosted receipt URL for a paid booking.
func GetBookingReceipt(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ? AND customer_id = ?", bookingID, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.ReceiptURL == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Receipt not available yet"})
	}
	return c.JSON(fiber.Map{"receipt_url": *booking.ReceiptURL})
}
