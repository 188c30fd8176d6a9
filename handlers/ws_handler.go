package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	ws "github.com/ndegwakip/huduma_hub/websocket"
)

// WsUpgrade gates the upgrade: only authenticated requests get through,
// and the user ID is stashed for the connection handler.
func WsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	c.Locals("userID", userID)
	return c.Next()
}

// ServeWs registers the connection with the hub and blocks reading until
// the client goes away. Events flow one way, server to client.
func ServeWs(conn *websocket.Conn) {
	userID := conn.Locals("userID").(uuid.UUID)

	client := &ws.Client{UserID: userID, Conn: conn}
	ws.Register <- client
	defer func() {
		ws.Unregister <- client
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
