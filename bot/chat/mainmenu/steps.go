package mainmenu

import (
	"context"
	"fmt"

	"Panikkar/bot/chat"
)

// MenuStep shows the available flows and starts the chosen one.
type MenuStep struct {
	workers WorkerService
	options []Option
}

func (s *MenuStep) ID() chat.StepID          { return StepMenu }
func (s *MenuStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *MenuStep) buttons() []chat.Button {
	buttons := make([]chat.Button, 0, len(s.options))
	for _, o := range s.options {
		buttons = append(buttons, chat.Button{ID: chat.Select(ActionStart, string(o.Flow)), Title: o.Title})
	}
	return buttons
}

func (s *MenuStep) Prompt(ctx context.Context, m chat.Messenger, state *chat.Session) error {
	greeting := "Namaskaram! 🙏 Welcome to Njaanum Panikkar."
	if s.workers != nil {
		w, err := s.workers.WorkerByPhone(ctx, state.Phone)
		if err != nil {
			return fmt.Errorf("menu greeting: %w", err)
		}
		if w != nil {
			greeting = fmt.Sprintf("Namaskaram %s! 🙏", w.Name)
		}
	}
	body := greeting + "\nWhat would you like to do?"

	if len(s.options) <= chat.MaxButtons {
		return m.SendButtons(state.Phone, body, s.buttons(), chat.Frame{Footer: "Send \"menu\" anytime to come back here"})
	}

	rows := make([]chat.Row, 0, len(s.options))
	for _, o := range s.options {
		rows = append(rows, chat.Row{ID: chat.Select(ActionStart, string(o.Flow)), Title: o.Title, Description: o.Description})
	}
	return m.SendList(state.Phone, body, "Menu", []chat.Section{{Rows: rows}}, chat.Frame{})
}

func (s *MenuStep) HandleInput(ctx context.Context, m chat.Messenger, state *chat.Session, input chat.IncomingMessage) chat.StepResult {
	choice := chat.Choice(input, s.buttons())
	if !choice.Is(ActionStart) {
		return chat.StepResult{Reject: "Please pick one of the options below."}
	}
	return chat.StepResult{Complete: true, NextFlow: chat.FlowID(choice.Value)}
}
