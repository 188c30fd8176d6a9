package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/services"
)

var validate = validator.New()

// Engine services are wired once from main before routes are registered.
var (
	bookingEngine *services.BookingService
	paymentEngine *services.PaymentService
	assignments   *services.AssignmentService
)

func Init(bookings *services.BookingService, payments *services.PaymentService, assign *services.AssignmentService) {
	bookingEngine = bookings
	paymentEngine = payments
	assignments = assign
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	return uuid.Parse(claims["user_id"].(string))
}

// actorFromCtx turns the JWT claims into an engine actor. Gateway and
// system actors never come through here; they are minted internally.
func actorFromCtx(c *fiber.Ctx) (services.Actor, error) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)

	id, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{ID: id, Role: services.Role(claims["role"].(string))}, nil
}

// serviceError maps engine sentinels onto HTTP responses so every handler
// reports the same shapes for the same failures.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrIneligibleProfessional):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrPermission):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrIllegalState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "The booking was modified concurrently, please retry"})
	case errors.Is(err, services.ErrSignatureVerification):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payment signature verification failed"})
	case errors.Is(err, services.ErrPaymentGateway):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment gateway is unavailable, please retry"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong"})
	}
}
