package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/models"
	"github.com/ndegwakip/huduma_hub/notifications"
	"github.com/ndegwakip/huduma_hub/services"
	ws "github.com/ndegwakip/huduma_hub/websocket"
)

// CreatePaymentIntent opens a gateway order for a pending booking and
// returns what the frontend checkout needs.
func CreatePaymentIntent(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CustomerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your booking"})
	}

	payment, err := paymentEngine.CreateIntent(c.Context(), bookingID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment_id":       payment.ID,
		"gateway_order_id": payment.GatewayOrderID,
		"amount_cents":     payment.AmountCents,
		"currency":         payment.Currency,
	})
}

type VerifyPaymentRequest struct {
	BookingID        string `json:"booking_id" validate:"required,uuid"`
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// VerifyPayment is the checkout callback: the gateway-signed proof that a
// payment was captured. Settlement and booking confirmation happen in the
// engine; this handler only parses, delegates and notifies.
func VerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	bookingID, _ := uuid.Parse(req.BookingID)

	booking, err := paymentEngine.Verify(c.Context(), req.GatewayOrderID, req.GatewayPaymentID, req.Signature, bookingID)
	if err != nil {
		return serviceError(c, err)
	}

	if booking.Status == models.BookingConfirmed {
		ws.PublishBookingStatus(booking)
		go notifyBookingConfirmed(booking.ID)
		go generateAndAttachReceipt(booking.ID)
	}

	return c.JSON(fiber.Map{
		"message": "Payment verified",
		"booking": booking,
	})
}

// ListMyPayments returns the customer's settlement history.
func ListMyPayments(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var payments []models.Payment
	err = database.DB.
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.customer_id = ?", userID).
		Order("payments.created_at desc").
		Find(&payments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payments"})
	}
	return c.JSON(payments)
}

func notifyBookingConfirmed(bookingID uuid.UUID) {
	var booking models.Booking
	err := database.DB.
		Preload("Customer").
		Preload("Professional").
		Preload("Service").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		log.Printf("🔥 Failed to load booking %s for confirmation email: %v", bookingID, err)
		return
	}

	body := fmt.Sprintf(
		"<h1>Booking Confirmed</h1><p>Your booking <b>%s</b> for <b>%s</b> on %s is confirmed.</p>",
		booking.Reference, booking.Service.Name, booking.ScheduledAt.Format("Monday, January 2 at 3:04 PM"),
	)
	notifications.SendEmail(booking.Customer.FullName, booking.Customer.Email, "Your booking is confirmed", body)

	if booking.Professional != nil {
		proBody := fmt.Sprintf(
			"<h1>New Job</h1><p>Booking <b>%s</b> (%s) on %s has been paid and is now yours.</p>",
			booking.Reference, booking.Service.Name, booking.ScheduledAt.Format("Monday, January 2 at 3:04 PM"),
		)
		notifications.SendEmail(booking.Professional.FullName, booking.Professional.Email, "You have a new confirmed job", proBody)
	}
}

func generateAndAttachReceipt(bookingID uuid.UUID) {
	var booking models.Booking
	err := database.DB.
		Preload("Customer").
		Preload("Service").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		log.Printf("🔥 Failed to load booking %s for receipt: %v", bookingID, err)
		return
	}

	url, err := services.GenerateReceipt(&booking, booking.Customer.FullName, booking.Service.Name, time.Now())
	if err != nil {
		log.Printf("🔥 Failed to generate receipt for booking %s: %v", bookingID, err)
		return
	}

	if err := database.DB.Model(&models.Booking{}).Where("id = ?", bookingID).Update("receipt_url", url).Error; err != nil {
		log.Printf("🔥 Failed to save receipt URL for booking %s: %v", bookingID, err)
		return
	}
	log.Printf("✅ Receipt generated for booking %s", booking.Reference)
}
