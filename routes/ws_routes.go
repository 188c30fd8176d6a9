package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/ndegwakip/huduma_hub/handlers"
	"github.com/ndegwakip/huduma_hub/middleware"
)

func WsRoutes(app *fiber.App) {
	app.Use("/api/v1/ws", middleware.Protected(), handlers.WsUpgrade)
	app.Get("/api/v1/ws", websocket.New(handlers.ServeWs))
}
