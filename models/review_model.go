package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BookingID      uuid.UUID `gorm:"not null;unique" json:"booking_id"`
	CustomerID     uuid.UUID `gorm:"not null" json:"customer_id"`
	ProfessionalID uuid.UUID `gorm:"not null" json:"professional_id"`
	Rating         int       `gorm:"not null" json:"rating"`
	Comment        string    `gorm:"type:text" json:"comment"`

	Customer     User `gorm:"foreignkey:CustomerID" json:"customer,omitempty"`
	Professional User `gorm:"foreignkey:ProfessionalID" json:"professional,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
