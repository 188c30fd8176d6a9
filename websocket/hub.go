package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// BookingEvent is pushed to the customer's and professional's open
// dashboard connections whenever a booking changes status.
type BookingEvent struct {
	BookingID      uuid.UUID            `json:"booking_id"`
	Reference      string               `json:"reference"`
	Status         models.BookingStatus `json:"status"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	ProfessionalID *uuid.UUID           `json:"professional_id,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Events = make(chan *BookingEvent, 64)

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case event := <-Events:
			recipients := []uuid.UUID{event.CustomerID}
			if event.ProfessionalID != nil {
				recipients = append(recipients, *event.ProfessionalID)
			}

			for _, userID := range recipients {
				clientsMu.RLock()
				conn, ok := clients[userID]
				clientsMu.RUnlock()
				if !ok {
					continue
				}
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Error sending booking event to client %s: %v", userID, err)
					conn.Close()
					clientsMu.Lock()
					delete(clients, userID)
					clientsMu.Unlock()
				}
			}
		}
	}
}

// PublishBookingStatus queues a status event for the booking's parties.
// Non-blocking: a full queue drops the event rather than stalling the
// request path.
func PublishBookingStatus(booking *models.Booking) {
	event := &BookingEvent{
		BookingID:      booking.ID,
		Reference:      booking.Reference,
		Status:         booking.Status,
		CustomerID:     booking.CustomerID,
		ProfessionalID: booking.ProfessionalID,
		OccurredAt:     time.Now(),
	}
	select {
	case Events <- event:
	default:
		log.Printf("Booking event queue full, dropping event for %s", booking.ID)
	}
}
