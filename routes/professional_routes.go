package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ndegwakip/huduma_hub/handlers"
	"github.com/ndegwakip/huduma_hub/middleware"
)

func ProfessionalRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Any authenticated user may apply; the role flips on approval.
	api.Post("/professionals/apply", middleware.Protected(), handlers.ApplyAsProfessional)

	pro := api.Group("/professionals/me", middleware.Protected(), middleware.ProfessionalRequired())
	pro.Get("", handlers.GetMyProfessionalProfile)
	pro.Get("/offerings", handlers.ListMyOfferings)
	pro.Put("/offerings", handlers.UpsertOffering)
	pro.Delete("/offerings/:offeringId", handlers.DeleteOffering)
	pro.Get("/jobs", handlers.ListMyJobs)
	pro.Post("/jobs/:bookingId/start", handlers.StartJob)
	pro.Post("/jobs/:bookingId/complete", handlers.CompleteJob)
	pro.Get("/earnings", handlers.GetMyEarnings)
	pro.Post("/payouts", handlers.RequestPayout)
}
