package application

import (
	"context"
	"log/slog"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/ask"
	"Panikkar/entity"
	"Panikkar/internal/lib/sl"
)

const (
	WorkflowID chat.FlowID = "application"
)

// Step IDs
const (
	StepBrowse  chat.StepID = "browse"
	StepView    chat.StepID = "view"
	StepNote    chat.StepID = "ask_note"
	StepConfirm chat.StepID = "confirm"
	StepDone    chat.StepID = "done"
)

// Selection actions: "job.view:<id>", "job.apply:<id>".
const (
	ActionView  = "job.view"
	ActionApply = "job.apply"

	PageNext  = "next"
	PageFirst = "first"
)

// Temp data keys
const (
	KeyPage          = "page"
	KeyJobID         = "job_id"
	KeyJobTitle      = "job_title"
	KeyJobPay        = "job_pay"
	KeyPosterPhone   = "poster_phone"
	KeyNote          = "note"
	KeyApplicationID = "application_id"
)

// pageSize leaves room for two paging rows within the ten-row list limit.
const pageSize = 8

// Draft is the typed view of the application temp data.
type Draft struct {
	JobID         uint    `json:"job_id"`
	JobTitle      string  `json:"job_title"`
	JobPay        int64   `json:"job_pay"`
	PosterPhone   string  `json:"poster_phone"`
	Note          *string `json:"note"`
	ApplicationID uint    `json:"application_id,omitempty"`
}

// WorkerService looks up the applicant.
type WorkerService interface {
	WorkerByPhone(ctx context.Context, phone string) (*entity.Worker, error)
}

// JobService defines the job operations needed by the application workflow.
type JobService interface {
	OpenJobs(ctx context.Context, category string, offset, limit int) ([]entity.Job, error)
	JobByID(ctx context.Context, id uint) (*entity.Job, error)
	Apply(ctx context.Context, jobID uint, workerPhone, note string) (*entity.Application, error)
}

// ApplicationWorkflow lets a registered worker browse open jobs and apply.
type ApplicationWorkflow struct {
	*chat.Sequence
}

func NewApplicationWorkflow(workers WorkerService, jobs JobService, noteMax int, log *slog.Logger) *ApplicationWorkflow {
	return &ApplicationWorkflow{
		Sequence: chat.NewSequence(WorkflowID).
			Add(
				&BrowseStep{workers: workers, jobs: jobs},
				&ViewStep{workers: workers, jobs: jobs},
				&ask.Text{
					StepID:   StepNote,
					Next:     StepConfirm,
					Key:      KeyNote,
					Question: "Add a short note for the customer: your experience, when you can come. Or skip.",
					Max:      noteMax,
					Optional: true,
					Clip:     true,
				},
				&ConfirmStep{},
				&DoneStep{workers: workers, jobs: jobs, log: log.With(sl.Module("application"))},
			).
			Terminal(StepDone).
			Branch(StepView, StepBrowse).
			Confirm(StepConfirm, map[string]chat.StepID{
				"note": StepNote,
			}),
	}
}
