package myjobs

import (
	"context"
	"log/slog"

	"Panikkar/bot/chat"
	"Panikkar/entity"
	"Panikkar/internal/lib/sl"
)

const (
	WorkflowID chat.FlowID = "myjobs"
)

// Step IDs
const (
	StepList   chat.StepID = "list"
	StepReview chat.StepID = "review"
	StepClose  chat.StepID = "confirm_close"
	StepDone   chat.StepID = "done"
)

// Selection actions: "myjob.view:<id>", "myjob.close:<id>".
const (
	ActionView  = "myjob.view"
	ActionClose = "myjob.close"
)

// Temp data keys
const (
	KeyJobID    = "job_id"
	KeyJobTitle = "job_title"
	KeyClosed   = "closed"
)

const (
	// listSize is the WhatsApp limit on list rows.
	listSize = 10
	// shownApplicants keeps the review message readable on a phone.
	shownApplicants = 5
)

// JobService defines the poster-side job operations.
type JobService interface {
	JobsByPoster(ctx context.Context, phone string, limit int) ([]entity.Job, error)
	JobByID(ctx context.Context, id uint) (*entity.Job, error)
	ApplicationCount(ctx context.Context, jobID uint) (int64, error)
	Applicants(ctx context.Context, jobID uint, limit int) ([]entity.Application, error)
	CloseJob(ctx context.Context, jobID uint) error
}

// WorkerService names the applicants.
type WorkerService interface {
	WorkerByPhone(ctx context.Context, phone string) (*entity.Worker, error)
}

// MyJobsWorkflow lets a poster review who applied to their open jobs and
// close a job once it is filled.
type MyJobsWorkflow struct {
	*chat.Sequence
}

func NewMyJobsWorkflow(jobs JobService, workers WorkerService, log *slog.Logger) *MyJobsWorkflow {
	return &MyJobsWorkflow{
		Sequence: chat.NewSequence(WorkflowID).
			Add(
				&ListStep{jobs: jobs},
				&ReviewStep{jobs: jobs, workers: workers},
				&CloseStep{},
				&DoneStep{jobs: jobs, log: log.With(sl.Module("myjobs"))},
			).
			Terminal(StepDone).
			Branch(StepReview, StepList).
			Branch(StepClose, StepReview),
	}
}
