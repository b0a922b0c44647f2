package entity

import (
	"time"

	"Panikkar/internal/lib/validate"
)

const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Application is a worker's request to take a job. A worker applies to a job at most once.
type Application struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	JobID       uint      `json:"job_id" gorm:"uniqueIndex:idx_job_worker" validate:"required"`
	WorkerPhone string    `json:"worker_phone" gorm:"size:20;uniqueIndex:idx_job_worker" validate:"required,e164"`
	Note        string    `json:"note,omitempty" gorm:"size:300"`
	Status      string    `json:"status" gorm:"size:16" validate:"oneof=pending accepted rejected"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Application) Validate() error {
	return validate.Struct(a)
}
