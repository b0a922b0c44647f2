package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"Panikkar/internal/lib/validate"
)

const (
	JobStatusOpen   = "open"
	JobStatusFilled = "filled"
	JobStatusClosed = "closed"
)

// Job is a piece of work posted by a customer.
type Job struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Ref         string    `json:"ref" gorm:"size:36;uniqueIndex" validate:"required,uuid4"`
	PosterPhone string    `json:"poster_phone" gorm:"size:20;index" validate:"required,e164"`
	Category    string    `json:"category" gorm:"size:32;index" validate:"required,category"`
	Title       string    `json:"title" gorm:"size:120" validate:"required,min=3"`
	Description string    `json:"description,omitempty" gorm:"size:1000"`
	Pay         int64     `json:"pay" validate:"gt=0"`
	Latitude    *float64  `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64  `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Place       string    `json:"place,omitempty" gorm:"size:120"`
	Status      string    `json:"status" gorm:"size:16;index" validate:"oneof=open filled closed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewJob creates an open job with a fresh reference.
func NewJob(posterPhone, category, title string, pay int64) *Job {
	return &Job{
		Ref:         uuid.NewString(),
		PosterPhone: posterPhone,
		Category:    category,
		Title:       title,
		Pay:         pay,
		Status:      JobStatusOpen,
	}
}

func (j *Job) Validate() error {
	return validate.Struct(j)
}

func (j *Job) IsOpen() bool {
	return j.Status == JobStatusOpen
}

// ShortRef is the code shown to users in chat.
func (j *Job) ShortRef() string {
	ref := strings.ReplaceAll(j.Ref, "-", "")
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return strings.ToUpper(ref)
}
