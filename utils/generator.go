package utils

import (
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/ndegwakip/huduma_hub/models"
)

const bookingReferenceLength = 10
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateUniqueBookingReference produces a short human-readable code a
// customer can quote on the phone, unique across bookings.
func GenerateUniqueBookingReference(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, bookingReferenceLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		code := "HB" + string(b[:bookingReferenceLength-2])

		var booking models.Booking
		err := tx.Where("reference = ?", code).First(&booking).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return code, nil
			}
			return "", err
		}
	}
}
