package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfessionalService is a professional's offering for a catalog service:
// optional price/duration overrides plus an availability switch. A
// professional with no offering row for a service cannot be assigned to it.
type ProfessionalService struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_offering" json:"professional_id"`
	ServiceID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_offering" json:"service_id"`

	PriceCents      *int64 `json:"price_cents"`
	DurationMinutes *int   `json:"duration_minutes"`
	IsAvailable     bool   `gorm:"default:true" json:"is_available"`

	Professional Professional `gorm:"foreignKey:ProfessionalID" json:"-"`
	Service      Service      `gorm:"foreignKey:ServiceID" json:"service,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
