package jobs

import (
	"context"
	"log"
	"time"

	"github.com/ndegwakip/huduma_hub/services"
)

var bookingEngine *services.BookingService

// Init hands the jobs package its engine handle. Called once from main
// before the scheduler starts.
func Init(engine *services.BookingService) {
	bookingEngine = engine
}

const (
	pendingBookingTTL = 30 * time.Minute
	expiryBatchSize   = 100
)

// ExpireStaleBookings cancels pending bookings whose payment window has
// lapsed. Paid-but-unassigned bookings are left for admin assignment.
func ExpireStaleBookings() {
	log.Println("Running job: ExpireStaleBookings...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := bookingEngine.ExpireStalePending(ctx, pendingBookingTTL, expiryBatchSize)
	if err != nil {
		log.Printf("Error expiring stale bookings: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("Expired %d stale pending booking(s).", expired)
	}
}
