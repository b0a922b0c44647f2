package myjobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/ask"
	"Panikkar/entity"
)

const textGone = "That job is no longer open."

func applicantsLabel(n int64) string {
	switch n {
	case 0:
		return "No applicants"
	case 1:
		return "1 applicant"
	}
	return fmt.Sprintf("%d applicants", n)
}

// ownOpenJob loads the job held in temp data, nil unless it is still open and
// posted from this phone.
func ownOpenJob(ctx context.Context, jobs JobService, state *chat.Session) (*entity.Job, error) {
	job, err := jobs.JobByID(ctx, uint(state.GetInt(KeyJobID)))
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	if job == nil || job.PosterPhone != state.Phone || !job.IsOpen() {
		return nil, nil
	}
	return job, nil
}

// ListStep shows the poster's open jobs with their applicant counts.
type ListStep struct {
	jobs JobService
}

func (s *ListStep) ID() chat.StepID          { return StepList }
func (s *ListStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *ListStep) listing(ctx context.Context, state *chat.Session) ([]chat.Section, error) {
	jobs, err := s.jobs.JobsByPoster(ctx, state.Phone, listSize)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	rows := make([]chat.Row, 0, len(jobs))
	for _, j := range jobs {
		n, err := s.jobs.ApplicationCount(ctx, j.ID)
		if err != nil {
			return nil, fmt.Errorf("counting applicants: %w", err)
		}
		rows = append(rows, chat.Row{
			ID:          chat.SelectID(ActionView, j.ID),
			Title:       chat.Truncate(j.Title, 24),
			Description: applicantsLabel(n) + " · " + ask.Rupees(j.Pay),
		})
	}
	return []chat.Section{{Title: "Open jobs", Rows: rows}}, nil
}

func (s *ListStep) Prompt(ctx context.Context, m chat.Messenger, state *chat.Session) error {
	sections, err := s.listing(ctx, state)
	if err != nil {
		return err
	}
	if sections == nil {
		buttons := []chat.Button{{ID: chat.Select(chat.ActionNav, chat.NavMenu), Title: "Main menu"}}
		return m.SendButtons(state.Phone, "You have no open jobs. Choose Post a job from the main menu to add one.", buttons, chat.Frame{})
	}
	return m.SendList(state.Phone, "Your open jobs. Pick one to see who applied.", "My jobs", sections, chat.Frame{})
}

func (s *ListStep) HandleInput(ctx context.Context, _ chat.Messenger, state *chat.Session, in chat.IncomingMessage) chat.StepResult {
	sections, err := s.listing(ctx, state)
	if err != nil {
		return chat.StepResult{Error: err}
	}
	choice := chat.RowChoice(in, sections)
	if choice.Is(ActionView) && choice.ID() != 0 {
		return chat.StepResult{NextStep: StepReview, UpdateState: map[string]any{KeyJobID: choice.ID()}}
	}
	return chat.StepResult{Reject: "Please pick one of your jobs from the list."}
}

// ReviewStep lists the applicants of one job and offers to close it.
type ReviewStep struct {
	jobs    JobService
	workers WorkerService
}

func (s *ReviewStep) ID() chat.StepID          { return StepReview }
func (s *ReviewStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *ReviewStep) buttons(jobID uint) []chat.Button {
	return []chat.Button{
		{ID: chat.SelectID(ActionClose, jobID), Title: "🔒 Close job"},
		{ID: chat.ActionBack, Title: "⬅ My jobs"},
	}
}

func (s *ReviewStep) summary(ctx context.Context, job *entity.Job) (string, error) {
	total, err := s.jobs.ApplicationCount(ctx, job.ID)
	if err != nil {
		return "", fmt.Errorf("counting applicants: %w", err)
	}
	apps, err := s.jobs.Applicants(ctx, job.ID, shownApplicants)
	if err != nil {
		return "", fmt.Errorf("listing applicants: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 %s (%s)\nRef: %s\n\n", job.Title, ask.Rupees(job.Pay), job.ShortRef())
	if len(apps) == 0 {
		b.WriteString("No applicants yet. Workers in this trade can see your job under Find work.")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "🙋 %s:", applicantsLabel(total))
	for i, a := range apps {
		name := a.WorkerPhone
		w, err := s.workers.WorkerByPhone(ctx, a.WorkerPhone)
		if err != nil {
			return "", fmt.Errorf("applicant lookup: %w", err)
		}
		if w != nil {
			name = fmt.Sprintf("%s (%s)", w.Name, entity.CategoryTitle(w.Category))
		}
		fmt.Fprintf(&b, "\n%d. %s\n📞 %s", i+1, name, a.WorkerPhone)
		if a.Note != "" {
			fmt.Fprintf(&b, "\n💬 %s", a.Note)
		}
	}
	if more := total - int64(len(apps)); more > 0 {
		fmt.Fprintf(&b, "\n…and %d more", more)
	}
	return b.String(), nil
}

func (s *ReviewStep) show(ctx context.Context, m chat.Messenger, state *chat.Session, job *entity.Job) error {
	text, err := s.summary(ctx, job)
	if err != nil {
		return err
	}
	if err := m.SendText(state.Phone, text); err != nil {
		return err
	}
	return m.SendButtons(state.Phone, "Contact applicants directly on WhatsApp. Close the job once you have found your worker.", s.buttons(job.ID), chat.Frame{})
}

func (s *ReviewStep) Enter(ctx context.Context, m chat.Messenger, state *chat.Session) chat.StepResult {
	job, err := ownOpenJob(ctx, s.jobs, state)
	if err != nil {
		return chat.StepResult{Error: err}
	}
	if job == nil {
		if err := m.SendText(state.Phone, textGone); err != nil {
			return chat.StepResult{Error: err}
		}
		return chat.StepResult{NextStep: StepList, UpdateState: map[string]any{KeyJobID: nil}}
	}
	if err := s.show(ctx, m, state, job); err != nil {
		return chat.StepResult{Error: err}
	}
	return chat.StepResult{UpdateState: map[string]any{KeyJobTitle: job.Title}}
}

func (s *ReviewStep) Prompt(ctx context.Context, m chat.Messenger, state *chat.Session) error {
	job, err := ownOpenJob(ctx, s.jobs, state)
	if err != nil {
		return err
	}
	if job == nil {
		buttons := []chat.Button{{ID: chat.ActionBack, Title: "⬅ My jobs"}}
		return m.SendButtons(state.Phone, textGone, buttons, chat.Frame{})
	}
	return s.show(ctx, m, state, job)
}

func (s *ReviewStep) HandleInput(_ context.Context, _ chat.Messenger, state *chat.Session, in chat.IncomingMessage) chat.StepResult {
	choice := chat.Choice(in, s.buttons(uint(state.GetInt(KeyJobID))))
	if choice == nil && strings.EqualFold(in.Content(), "back") {
		choice = chat.ParseSelection(chat.ActionBack)
	}
	switch {
	case choice.Is(chat.ActionBack):
		return chat.StepResult{NextStep: StepList, UpdateState: map[string]any{KeyJobID: nil, KeyJobTitle: nil}}
	case choice.Is(ActionClose):
		return chat.StepResult{NextStep: StepClose}
	}
	return chat.StepResult{Reject: "Tap Close job when the work is taken, or go back to your jobs."}
}

var closeButtons = []chat.Button{
	{ID: chat.ActionConfirm, Title: "✅ Yes, close it"},
	{ID: chat.ActionBack, Title: "No, keep it open"},
}

// CloseStep asks before the job disappears from Find work.
type CloseStep struct{}

func (s *CloseStep) ID() chat.StepID          { return StepClose }
func (s *CloseStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *CloseStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	body := fmt.Sprintf("Close \"%s\"? Workers will no longer see it or be able to apply.", state.GetString(KeyJobTitle))
	return m.SendButtons(state.Phone, body, closeButtons, chat.Frame{})
}

func (s *CloseStep) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	choice := chat.Choice(in, closeButtons)
	if choice == nil {
		switch strings.ToLower(in.Content()) {
		case "yes", "ok", "close":
			choice = chat.ParseSelection(chat.ActionConfirm)
		case "no", "back":
			choice = chat.ParseSelection(chat.ActionBack)
		}
	}
	switch {
	case choice.Is(chat.ActionConfirm):
		return chat.StepResult{NextStep: StepDone}
	case choice.Is(chat.ActionBack):
		return chat.StepResult{NextStep: StepReview}
	}
	return chat.StepResult{Reject: "Tap Yes to close the job, or No to keep it open."}
}

// DoneStep closes the job once per run.
type DoneStep struct {
	jobs JobService
	log  *slog.Logger
}

func (s *DoneStep) ID() chat.StepID          { return StepDone }
func (s *DoneStep) Accepts() chat.InputKind { return 0 }

func (s *DoneStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	return m.SendText(state.Phone, "This job is closed.")
}

func (s *DoneStep) HandleInput(context.Context, chat.Messenger, *chat.Session, chat.IncomingMessage) chat.StepResult {
	return chat.StepResult{}
}

func (s *DoneStep) Enter(ctx context.Context, m chat.Messenger, state *chat.Session) chat.StepResult {
	if state.Has(KeyClosed) {
		return chat.StepResult{Complete: true}
	}

	job, err := ownOpenJob(ctx, s.jobs, state)
	if err != nil {
		return chat.StepResult{Failure: err}
	}
	if job != nil {
		err = s.jobs.CloseJob(ctx, job.ID)
	}
	if job == nil || errors.Is(err, entity.ErrJobNotFound) {
		if err := m.SendText(state.Phone, textGone); err != nil {
			return chat.StepResult{Error: err}
		}
		return chat.StepResult{Complete: true}
	}
	if err != nil {
		return chat.StepResult{Failure: fmt.Errorf("closing job: %w", err)}
	}
	state.Set(KeyClosed, true)

	s.log.Info("job closed by poster",
		slog.String("phone", state.Phone),
		slog.Uint64("job_id", uint64(job.ID)),
	)

	msg := fmt.Sprintf("🔒 \"%s\" is closed. Thank you for hiring through Njaanum Panikkar!", job.Title)
	if err := m.SendText(state.Phone, msg); err != nil {
		// already closed, so the run completes even if the user misses the message
		return chat.StepResult{Complete: true, Error: err}
	}
	return chat.StepResult{Complete: true}
}
