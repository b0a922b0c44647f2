package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/ask"
	"Panikkar/entity"
)

// PayStep asks for the offered pay in rupees.
type PayStep struct {
	min int64
	max int64
}

func (s *PayStep) ID() chat.StepID          { return StepPay }
func (s *PayStep) Accepts() chat.InputKind { return chat.InputText }

func (s *PayStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	return m.SendText(state.Phone, fmt.Sprintf("How much will you pay for this job? Send an amount between %s and %s.",
		ask.Rupees(s.min), ask.Rupees(s.max)))
}

func (s *PayStep) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	pay, err := chat.ParseAmount(in.Content(), s.min, s.max)
	switch {
	case errors.Is(err, chat.ErrAmountTooLow):
		return chat.StepResult{Reject: fmt.Sprintf("The minimum pay is %s.", ask.Rupees(s.min))}
	case errors.Is(err, chat.ErrAmountTooHigh):
		return chat.StepResult{Reject: fmt.Sprintf("The maximum pay is %s.", ask.Rupees(s.max))}
	case err != nil:
		return chat.StepResult{Reject: "Please send the pay as a number, e.g. 800 or ₹1,500."}
	}
	return chat.StepResult{NextStep: StepLocation, UpdateState: map[string]any{KeyPay: pay}}
}

var confirmOptions = []chat.Button{
	{ID: chat.ActionConfirm, Title: "✅ Post job"},
	{ID: chat.Select(chat.ActionEdit, "category"), Title: "Edit trade"},
	{ID: chat.Select(chat.ActionEdit, "title"), Title: "Edit title"},
	{ID: chat.Select(chat.ActionEdit, "description"), Title: "Edit details"},
	{ID: chat.Select(chat.ActionEdit, "pay"), Title: "Edit pay"},
	{ID: chat.Select(chat.ActionEdit, "location"), Title: "Edit location"},
}

// ConfirmStep shows the job before it is posted.
type ConfirmStep struct{}

func (s *ConfirmStep) ID() chat.StepID          { return StepConfirm }
func (s *ConfirmStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *ConfirmStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	var d Draft
	if err := state.Bind(&d); err != nil {
		return err
	}
	details := "None"
	if d.Description != nil && *d.Description != "" {
		details = *d.Description
	}
	body := fmt.Sprintf("Please check your job:\n\n🛠 %s\n📝 %s\nℹ️ %s\n💰 %s\n📍 %s",
		entity.CategoryTitle(d.Category), d.Title, details, ask.Rupees(d.Pay), ask.Where(d.Place, d.Latitude, d.Longitude))

	rows := make([]chat.Row, 0, len(confirmOptions))
	for _, o := range confirmOptions {
		rows = append(rows, chat.Row{ID: o.ID, Title: o.Title})
	}
	return m.SendList(state.Phone, body, "Post or edit", []chat.Section{{Rows: rows}}, chat.Frame{})
}

func (s *ConfirmStep) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	choice := chat.Choice(in, confirmOptions)
	if choice == nil {
		switch strings.ToLower(in.Content()) {
		case "yes", "ok", "post", "confirm":
			choice = chat.ParseSelection(chat.ActionConfirm)
		}
	}
	switch {
	case choice.Is(chat.ActionConfirm):
		return chat.StepResult{NextStep: StepDone}
	case choice.Is(chat.ActionEdit):
		return chat.StepResult{Edit: choice.Value}
	}
	return chat.StepResult{Reject: "Choose Post job to publish it, or pick what to change."}
}

// DoneStep posts the job once per run.
type DoneStep struct {
	jobs JobService
}

func (s *DoneStep) ID() chat.StepID          { return StepDone }
func (s *DoneStep) Accepts() chat.InputKind { return 0 }

func (s *DoneStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	return m.SendText(state.Phone, "Your job is posted.")
}

func (s *DoneStep) HandleInput(context.Context, chat.Messenger, *chat.Session, chat.IncomingMessage) chat.StepResult {
	return chat.StepResult{}
}

func (s *DoneStep) Enter(ctx context.Context, m chat.Messenger, state *chat.Session) chat.StepResult {
	if state.Has(KeyJobID) {
		return chat.StepResult{Complete: true}
	}

	var d Draft
	if err := state.Bind(&d); err != nil {
		return chat.StepResult{Error: err}
	}
	job := d.Job(state.Phone)
	if err := job.Validate(); err != nil {
		return chat.StepResult{Failure: fmt.Errorf("invalid job: %w", err)}
	}

	posted, err := s.jobs.PostJob(ctx, job)
	if err != nil {
		return chat.StepResult{Failure: fmt.Errorf("posting job: %w", err)}
	}
	state.Set(KeyJobID, posted.ID)

	msg := fmt.Sprintf("✅ Your job is live! Reference: %s\n%s workers will see it under Find work. They can apply right here on WhatsApp.",
		posted.ShortRef(), entity.CategoryTitle(posted.Category))
	if err := m.SendText(state.Phone, msg); err != nil {
		// already stored, so the run completes even if the user misses the message
		return chat.StepResult{Complete: true, Error: err}
	}
	return chat.StepResult{Complete: true}
}
