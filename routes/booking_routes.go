package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ndegwakip/huduma_hub/handlers"
	"github.com/ndegwakip/huduma_hub/middleware"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected())
	booking.Get("/me", handlers.GetMyBookings)
	booking.Post("", handlers.CreateBooking)
	booking.Get("/:bookingId", handlers.GetBooking)
	booking.Post("/:bookingId/cancel", handlers.CancelBooking)
	booking.Post("/:bookingId/review", handlers.CreateReview)
	booking.Get("/:bookingId/receipt", handlers.GetBookingReceipt)

	addresses := api.Group("/addresses", middleware.Protected())
	addresses.Post("", handlers.CreateAddress)
	addresses.Get("", handlers.ListMyAddresses)
	addresses.Delete("/:addressId", handlers.DeleteAddress)
}
