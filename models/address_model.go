package models

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID uuid.UUID `gorm:"not null" json:"-"`
	Label  string    `gorm:"size:50;not null" json:"label"`
	Line1  string    `gorm:"size:255;not null" json:"line1"`
	Line2  *string   `gorm:"size:255" json:"line2"`
	City   string    `gorm:"size:100;not null" json:"city"`
	Notes  *string   `gorm:"type:text" json:"notes"`

	User User `gorm:"foreignkey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
