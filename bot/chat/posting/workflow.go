package posting

import (
	"context"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/ask"
	"Panikkar/entity"
	"Panikkar/internal/config"
)

const (
	WorkflowID chat.FlowID = "posting"
)

// Step IDs
const (
	StepCategory    chat.StepID = "ask_category"
	StepTitle       chat.StepID = "ask_title"
	StepDescription chat.StepID = "ask_description"
	StepPay         chat.StepID = "ask_pay"
	StepLocation    chat.StepID = "ask_location"
	StepConfirm     chat.StepID = "confirm"
	StepDone        chat.StepID = "done"
)

// Temp data keys
const (
	KeyCategory    = "category"
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyPay         = "pay"
	KeyJobID       = "job_id"
)

// Draft is the typed view of the posting temp data.
type Draft struct {
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Pay         int64    `json:"pay"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Place       *string  `json:"place"`
	JobID       uint     `json:"job_id,omitempty"`
}

// Job builds the open job posted by phone.
func (d Draft) Job(phone string) *entity.Job {
	j := entity.NewJob(phone, d.Category, d.Title, d.Pay)
	j.Latitude = d.Latitude
	j.Longitude = d.Longitude
	if d.Description != nil {
		j.Description = *d.Description
	}
	if d.Place != nil {
		j.Place = *d.Place
	}
	return j
}

// JobService defines the job operations needed by the posting workflow.
type JobService interface {
	PostJob(ctx context.Context, j *entity.Job) (*entity.Job, error)
}

// PostingWorkflow lets a customer post a job.
type PostingWorkflow struct {
	*chat.Sequence
}

func NewPostingWorkflow(jobs JobService, limits config.Limits) *PostingWorkflow {
	return &PostingWorkflow{
		Sequence: chat.NewSequence(WorkflowID).
			Add(
				&ask.Category{
					StepID:   StepCategory,
					Next:     StepTitle,
					Key:      KeyCategory,
					Question: "Let's post your job. Which kind of worker do you need?",
				},
				&ask.Text{
					StepID:   StepTitle,
					Next:     StepDescription,
					Key:      KeyTitle,
					Question: "Describe the job in one line (e.g. \"Fix leaking kitchen tap\").",
					Min:      3,
					Max:      limits.TitleMax,
					Clip:     true,
				},
				&ask.Text{
					StepID:   StepDescription,
					Next:     StepPay,
					Key:      KeyDescription,
					Question: "Any details the worker should know? Timing, materials, floor...",
					Max:      limits.DescriptionMax,
					Optional: true,
					Clip:     true,
				},
				&PayStep{min: limits.MinPay, max: limits.MaxPay},
				&ask.Location{
					StepID:   StepLocation,
					Next:     StepConfirm,
					Question: "Where is the job?",
					Optional: true,
				},
				&ConfirmStep{},
				&DoneStep{jobs: jobs},
			).
			Terminal(StepDone).
			Confirm(StepConfirm, map[string]chat.StepID{
				"category":    StepCategory,
				"title":       StepTitle,
				"description": StepDescription,
				"pay":         StepPay,
				"location":    StepLocation,
			}),
	}
}
