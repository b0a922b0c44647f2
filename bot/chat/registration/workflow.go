package registration

import (
	"context"
	"log/slog"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/ask"
	"Panikkar/entity"
	"Panikkar/internal/lib/sl"
)

const (
	WorkflowID chat.FlowID = "registration"
)

// Step IDs
const (
	StepName     chat.StepID = "ask_name"
	StepCategory chat.StepID = "ask_category"
	StepLocation chat.StepID = "ask_location"
	StepPhoto    chat.StepID = "ask_photo"
	StepConfirm  chat.StepID = "confirm"
	StepDone     chat.StepID = "done"
)

// Temp data keys
const (
	KeyName     = "name"
	KeyCategory = "category"
	KeyPhotoID  = "photo_id"
	KeyWorkerID = "worker_id"
)

// Draft is the typed view of the registration temp data.
type Draft struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Place     *string  `json:"place"`
	PhotoID   *string  `json:"photo_id"`
	WorkerID  uint     `json:"worker_id,omitempty"`
}

// Worker builds the record registered for phone.
func (d Draft) Worker(phone string) *entity.Worker {
	w := &entity.Worker{
		Phone:     phone,
		Name:      d.Name,
		Category:  d.Category,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Active:    true,
	}
	if d.Place != nil {
		w.Place = *d.Place
	}
	if d.PhotoID != nil {
		w.PhotoID = *d.PhotoID
	}
	return w
}

// WorkerService defines the worker operations needed by the registration workflow.
type WorkerService interface {
	WorkerByPhone(ctx context.Context, phone string) (*entity.Worker, error)
	RegisterWorker(ctx context.Context, w *entity.Worker) (*entity.Worker, error)
}

// MediaService stores profile photos received from the messaging platform.
type MediaService interface {
	Store(ctx context.Context, phone, mediaID, mimeType string) (string, error)
	Delete(ctx context.Context, fileID string) error
}

// RegistrationWorkflow signs a tradesperson up as a worker.
type RegistrationWorkflow struct {
	*chat.Sequence
}

func NewRegistrationWorkflow(workers WorkerService, media MediaService, log *slog.Logger) *RegistrationWorkflow {
	return &RegistrationWorkflow{
		Sequence: chat.NewSequence(WorkflowID).
			Add(
				&NameStep{
					Text: ask.Text{
						StepID:   StepName,
						Next:     StepCategory,
						Key:      KeyName,
						Question: "What is your name?",
						Min:      2,
						Max:      60,
					},
					workers: workers,
				},
				&ask.Category{
					StepID:   StepCategory,
					Next:     StepLocation,
					Key:      KeyCategory,
					Question: "Which kind of work do you do?",
				},
				&ask.Location{
					StepID:   StepLocation,
					Next:     StepPhoto,
					Question: "Where are you based? Jobs near you will be shown first.",
					Optional: true,
				},
				&PhotoStep{media: media, log: log.With(sl.Module("registration"))},
				&ConfirmStep{},
				&DoneStep{workers: workers},
			).
			Terminal(StepDone).
			Confirm(StepConfirm, map[string]chat.StepID{
				"name":     StepName,
				"category": StepCategory,
				"location": StepLocation,
				"photo":    StepPhoto,
			}),
	}
}
