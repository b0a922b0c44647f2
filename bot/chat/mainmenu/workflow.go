package mainmenu

import (
	"context"

	"Panikkar/bot/chat"
	"Panikkar/entity"
)

const (
	WorkflowID chat.FlowID = "mainmenu"
)

// Step IDs
const (
	StepMenu chat.StepID = "menu"
)

// ActionStart is the selection action of menu entries: "start:<flow id>".
const ActionStart = "start"

// Option is one entry of the main menu.
type Option struct {
	Flow        chat.FlowID
	Title       string
	Description string
}

// WorkerService looks up the caller to personalise the greeting.
type WorkerService interface {
	WorkerByPhone(ctx context.Context, phone string) (*entity.Worker, error)
}

// MainMenuWorkflow is the default flow: a single menu step that starts other flows.
type MainMenuWorkflow struct {
	*chat.Sequence
}

func NewMainMenuWorkflow(workers WorkerService, options ...Option) *MainMenuWorkflow {
	return &MainMenuWorkflow{
		Sequence: chat.NewSequence(WorkflowID).
			Add(&MenuStep{workers: workers, options: options}).
			Terminal(StepMenu),
	}
}
