package entity

import (
	"time"

	"Panikkar/internal/lib/validate"
)

// Worker is a registered tradesperson.
type Worker struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Phone     string    `json:"phone" gorm:"size:20;uniqueIndex" validate:"required,e164"`
	Name      string    `json:"name" gorm:"size:60" validate:"required,min=2,max=60"`
	Category  string    `json:"category" gorm:"size:32;index" validate:"required,category"`
	Latitude  *float64  `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64  `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Place     string    `json:"place,omitempty" gorm:"size:120"`
	PhotoID   string    `json:"photo_id,omitempty" gorm:"size:64"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Worker) Validate() error {
	return validate.Struct(w)
}

// HasLocation reports whether the worker shared coordinates.
func (w *Worker) HasLocation() bool {
	return w.Latitude != nil && w.Longitude != nil
}
