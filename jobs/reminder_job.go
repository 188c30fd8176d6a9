package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/models"
	"github.com/ndegwakip/huduma_hub/notifications"
)

// SendBookingReminders emails both parties about confirmed bookings
// starting in roughly an hour. The five-minute window matches the cron
// cadence so each booking is picked up once.
func SendBookingReminders() {
	log.Println("Running job: SendBookingReminders...")

	now := time.Now()
	lowerBound := now.Add(60 * time.Minute)
	upperBound := now.Add(65 * time.Minute)

	var upcomingBookings []models.Booking

	err := database.DB.
		Preload("Customer").
		Preload("Professional").
		Preload("Service").
		Preload("Address").
		Where("status = ? AND scheduled_at BETWEEN ? AND ?", models.BookingConfirmed, lowerBound, upperBound).
		Find(&upcomingBookings).Error
	if err != nil {
		log.Printf("Error checking for upcoming bookings: %v", err)
		return
	}

	if len(upcomingBookings) == 0 {
		return
	}

	for _, booking := range upcomingBookings {
		log.Printf("Sending reminder for booking ID: %s", booking.ID)

		when := booking.ScheduledAt.Format("3:04 PM")
		customerBody := fmt.Sprintf(
			"<h1>Upcoming Booking</h1><p>Your <b>%s</b> booking (%s) starts at %s. Your professional will arrive at %s, %s.</p>",
			booking.Service.Name, booking.Reference, when, booking.Address.Line1, booking.Address.City,
		)
		notifications.SendEmail(booking.Customer.FullName, booking.Customer.Email, "Reminder: your booking starts soon", customerBody)

		if booking.Professional != nil {
			proBody := fmt.Sprintf(
				"<h1>Upcoming Job</h1><p>Your <b>%s</b> job (%s) starts at %s at %s, %s.</p>",
				booking.Service.Name, booking.Reference, when, booking.Address.Line1, booking.Address.City,
			)
			notifications.SendEmail(booking.Professional.FullName, booking.Professional.Email, "Reminder: your job starts soon", proBody)
		}
	}
}
