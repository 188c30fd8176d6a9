package models

import (
	"time"

	"github.com/google/uuid"
)

// Professional is the service-provider profile attached to a user. A user
// only takes jobs once the application is approved and the account role is
// flipped to "professional".
type Professional struct {
	UserID   uuid.UUID `gorm:"primary_key" json:"user_id"`
	Headline *string   `gorm:"size:255" json:"headline"`
	Bio      *string   `gorm:"type:text" json:"bio"`

	// pending | active | rejected | suspended
	Status     string `gorm:"size:20;not null;default:'pending'" json:"status"`
	IsVerified bool   `gorm:"default:false" json:"is_verified"`

	// Identity/KYC document uploaded during application review.
	VerificationDocURL *string `gorm:"size:255" json:"verification_doc_url"`

	AvgRating           float32 `gorm:"default:0" json:"avg_rating"`
	CurrentBalanceCents int64   `gorm:"not null;default:0" json:"-"`

	User      User      `gorm:"foreignkey:UserID" json:"user"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
