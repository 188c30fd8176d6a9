package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is a catalog entry: what customers can book, with platform-wide
// base pricing in minor currency units.
type Service struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name                string    `gorm:"size:255;not null" json:"name"`
	Description         *string   `gorm:"type:text" json:"description"`
	Category            *string   `gorm:"size:100" json:"category"`
	BasePriceCents      int64     `gorm:"not null" json:"base_price_cents"`
	BaseDurationMinutes int       `gorm:"not null;default:60" json:"base_duration_minutes"`
	IsActive            bool      `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
