package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ndegwakip/huduma_hub/handlers"
)

func PublicRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	services := api.Group("/services")
	services.Get("", handlers.ListServices)
	services.Get("/:serviceId", handlers.GetService)
	services.Get("/:serviceId/professionals", handlers.ListProfessionalsForService)
}
