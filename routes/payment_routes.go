package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ndegwakip/huduma_hub/handlers"
	"github.com/ndegwakip/huduma_hub/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// The verify callback authenticates itself with the gateway signature,
	// not a user token.
	api.Post("/payments/verify", handlers.VerifyPayment)

	payments := api.Group("/payments", middleware.Protected())
	payments.Post("/bookings/:bookingId/intent", handlers.CreatePaymentIntent)
	payments.Get("/me", handlers.ListMyPayments)
}
