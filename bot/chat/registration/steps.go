package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/ask"
	"Panikkar/entity"
	"Panikkar/internal/lib/sl"
)

// NameStep asks for the worker's name, noting an existing profile first.
type NameStep struct {
	ask.Text
	workers WorkerService
}

func (s *NameStep) Prompt(ctx context.Context, m chat.Messenger, state *chat.Session) error {
	if state.Editing() {
		return s.Text.Prompt(ctx, m, state)
	}
	w, err := s.workers.WorkerByPhone(ctx, state.Phone)
	if err != nil {
		return fmt.Errorf("worker lookup: %w", err)
	}
	if w == nil {
		return m.SendText(state.Phone, "Let's set up your worker profile. It takes a minute.\n\n"+s.Question)
	}
	return m.SendText(state.Phone, fmt.Sprintf("You are registered as %s (%s). Your new answers will replace that profile.\n\n%s",
		w.Name, entity.CategoryTitle(w.Category), s.Question))
}

// PhotoStep takes an optional profile photo and stores it.
type PhotoStep struct {
	media MediaService
	log   *slog.Logger
}

func (s *PhotoStep) ID() chat.StepID { return StepPhoto }

func (s *PhotoStep) Accepts() chat.InputKind {
	return chat.InputImage | chat.InputText | chat.InputButton
}

func (s *PhotoStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	body := "Send a clear photo of yourself. Customers trust profiles with a photo.\nYou can also skip this."
	if state.GetString(KeyPhotoID) != "" {
		body = "Send a new photo to replace the current one, or skip to remove it."
	}
	buttons := []chat.Button{{ID: chat.Select(chat.ActionNav, chat.NavSkip), Title: "Skip"}}
	return m.SendButtons(state.Phone, body, buttons, chat.Frame{})
}

func (s *PhotoStep) HandleInput(ctx context.Context, _ chat.Messenger, state *chat.Session, in chat.IncomingMessage) chat.StepResult {
	previous := state.GetString(KeyPhotoID)

	if chat.IsSkip(in) {
		s.release(ctx, state, previous)
		return chat.StepResult{NextStep: StepConfirm, UpdateState: map[string]any{KeyPhotoID: nil}}
	}

	if in.Type != chat.MessageImage || in.MediaID == "" {
		return chat.StepResult{Reject: "Please send a photo, or tap Skip."}
	}
	if in.MimeType != "" && !strings.HasPrefix(in.MimeType, "image/") {
		return chat.StepResult{Reject: "That file is not a photo. Please send a picture."}
	}

	fileID, err := s.media.Store(ctx, state.Phone, in.MediaID, in.MimeType)
	if errors.Is(err, entity.ErrFileTooLarge) {
		return chat.StepResult{Reject: fmt.Sprintf("That photo is too big. Please send one under %d MB.", entity.MaxFileSize>>20)}
	}
	if err != nil {
		return chat.StepResult{Failure: fmt.Errorf("storing photo: %w", err)}
	}

	s.release(ctx, state, previous)
	return chat.StepResult{NextStep: StepConfirm, UpdateState: map[string]any{KeyPhotoID: fileID}}
}

// Cleanup deletes a photo uploaded during a run that never registered.
func (s *PhotoStep) Cleanup(ctx context.Context, state *chat.Session) error {
	if state.Has(KeyWorkerID) {
		return nil
	}
	id := state.GetString(KeyPhotoID)
	if id == "" {
		return nil
	}
	return s.media.Delete(ctx, id)
}

func (s *PhotoStep) release(ctx context.Context, state *chat.Session, fileID string) {
	if fileID == "" {
		return
	}
	if err := s.media.Delete(ctx, fileID); err != nil {
		s.log.Warn("photo not released",
			slog.String("phone", state.Phone),
			slog.String("file_id", fileID),
			sl.Err(err),
		)
	}
}

var confirmButtons = []chat.Button{
	{ID: chat.ActionConfirm, Title: "✅ Register"},
	{ID: chat.Select(chat.ActionEdit, "name"), Title: "Edit name"},
	{ID: chat.Select(chat.ActionEdit, "category"), Title: "Edit trade"},
	{ID: chat.Select(chat.ActionEdit, "location"), Title: "Edit location"},
	{ID: chat.Select(chat.ActionEdit, "photo"), Title: "Edit photo"},
}

// ConfirmStep shows the collected profile for confirmation.
type ConfirmStep struct{}

func (s *ConfirmStep) ID() chat.StepID          { return StepConfirm }
func (s *ConfirmStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *ConfirmStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	var d Draft
	if err := state.Bind(&d); err != nil {
		return err
	}
	photo := "Not added"
	if d.PhotoID != nil && *d.PhotoID != "" {
		photo = "Added ✅"
	}
	body := fmt.Sprintf("Please check your profile:\n\n👤 Name: %s\n🛠 Trade: %s\n📍 Area: %s\n📷 Photo: %s",
		d.Name, entity.CategoryTitle(d.Category), ask.Where(d.Place, d.Latitude, d.Longitude), photo)
	return m.SendList(state.Phone, body, "Confirm or edit", []chat.Section{{Rows: rows(confirmButtons)}}, chat.Frame{})
}

func (s *ConfirmStep) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	choice := chat.Choice(in, confirmButtons)
	if choice == nil && isYes(in.Content()) {
		choice = chat.ParseSelection(chat.ActionConfirm)
	}
	switch {
	case choice.Is(chat.ActionConfirm):
		return chat.StepResult{NextStep: StepDone}
	case choice.Is(chat.ActionEdit):
		return chat.StepResult{Edit: choice.Value}
	}
	return chat.StepResult{Reject: "Choose Register to finish, or pick what to change."}
}

func isYes(text string) bool {
	switch strings.ToLower(text) {
	case "yes", "ok", "confirm", "register", "save":
		return true
	}
	return false
}

func rows(buttons []chat.Button) []chat.Row {
	out := make([]chat.Row, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, chat.Row{ID: b.ID, Title: b.Title})
	}
	return out
}

// DoneStep registers the worker once per run.
type DoneStep struct {
	workers WorkerService
}

func (s *DoneStep) ID() chat.StepID          { return StepDone }
func (s *DoneStep) Accepts() chat.InputKind { return 0 }

func (s *DoneStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	return m.SendText(state.Phone, "Your profile is saved.")
}

func (s *DoneStep) HandleInput(context.Context, chat.Messenger, *chat.Session, chat.IncomingMessage) chat.StepResult {
	return chat.StepResult{}
}

func (s *DoneStep) Enter(ctx context.Context, m chat.Messenger, state *chat.Session) chat.StepResult {
	if state.Has(KeyWorkerID) {
		return chat.StepResult{Complete: true}
	}

	var d Draft
	if err := state.Bind(&d); err != nil {
		return chat.StepResult{Error: err}
	}
	w := d.Worker(state.Phone)
	if err := w.Validate(); err != nil {
		return chat.StepResult{Failure: fmt.Errorf("invalid worker: %w", err)}
	}

	saved, err := s.workers.RegisterWorker(ctx, w)
	if err != nil {
		return chat.StepResult{Failure: fmt.Errorf("registering worker: %w", err)}
	}
	state.Set(KeyWorkerID, saved.ID)

	msg := fmt.Sprintf("🎉 Done, %s! You are listed as a %s.\nSend \"menu\" and choose Find work to see open jobs.",
		saved.Name, entity.CategoryTitle(saved.Category))
	if err := m.SendText(state.Phone, msg); err != nil {
		// already stored, so the run completes even if the user misses the message
		return chat.StepResult{Complete: true, Error: err}
	}
	return chat.StepResult{Complete: true}
}
