package application

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

// BrowseStep lists open jobs a page at a time.
type BrowseStep struct {
	workers WorkerService
	jobs    JobService
}

func (s *BrowseStep) ID() chat.StepID          { return StepBrowse }
func (s *BrowseStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

// listing loads the current page and renders it as list rows.
func (s *BrowseStep) listing(ctx context.Context, state *chat.Session) (string, []chat.Section, error) {
	category := ""
	worker, err := s.workers.WorkerByPhone(ctx, state.Phone)
	if err != nil {
		return "", nil, fmt.Errorf("worker lookup: %w", err)
	}
	if worker != nil {
		category = worker.Category
	}

	page := int(state.GetInt(KeyPage))
	jobs, err := s.jobs.OpenJobs(ctx, category, page*pageSize, pageSize+1)
	if err != nil {
		return "", nil, fmt.Errorf("listing jobs: %w", err)
	}
	more := len(jobs) > pageSize
	if more {
		jobs = jobs[:pageSize]
	}
	if len(jobs) == 0 && page == 0 {
		return category, nil, nil
	}

	rows := make([]chat.Row, 0, len(jobs)+2)
	for _, j := range jobs {
		desc := ask.Rupees(j.Pay) + " · " + entity.CategoryTitle(j.Category)
		if j.Place != "" {
			desc += " · " + j.Place
		}
		rows = append(rows, chat.Row{
			ID:          chat.SelectID(ActionView, j.ID),
			Title:       chat.Truncate(j.Title, 24),
			Description: desc,
		})
	}
	if more {
		rows = append(rows, chat.Row{ID: chat.Select(chat.ActionPage, PageNext), Title: "More jobs ➡"})
	}
	if page > 0 {
		rows = append(rows, chat.Row{ID: chat.Select(chat.ActionPage, PageFirst), Title: "Back to first page"})
	}
	return category, []chat.Section{{Title: "Open jobs", Rows: rows}}, nil
}

func (s *BrowseStep) Prompt(ctx context.Context, m chat.Messenger, state *chat.Session) error {
	category, sections, err := s.listing(ctx, state)
	if err != nil {
		return err
	}
	if sections == nil {
		buttons := []chat.Button{{ID: chat.Select(chat.ActionNav, chat.NavMenu), Title: "Main menu"}}
		return m.SendButtons(state.Phone, "There are no open jobs right now. Please check again later.", buttons, chat.Frame{})
	}

	body := "Here are the latest open jobs. Pick one to see the details."
	if category != "" {
		body = fmt.Sprintf("Open jobs for %s work. Pick one to see the details.", entity.CategoryTitle(category))
	}
	return m.SendList(state.Phone, body, "View jobs", sections, chat.Frame{})
}

func (s *BrowseStep) HandleInput(ctx context.Context, _ chat.Messenger, state *chat.Session, in chat.IncomingMessage) chat.StepResult {
	_, sections, err := s.listing(ctx, state)
	if err != nil {
		return chat.StepResult{Error: err}
	}

	choice := chat.RowChoice(in, sections)
	switch {
	case choice.Is(chat.ActionPage, PageNext):
		return chat.StepResult{NextStep: StepBrowse, UpdateState: map[string]any{KeyPage: state.GetInt(KeyPage) + 1}}
	case choice.Is(chat.ActionPage, PageFirst):
		return chat.StepResult{NextStep: StepBrowse, UpdateState: map[string]any{KeyPage: 0}}
	case choice.Is(ActionView) && choice.ID() != 0:
		return chat.StepResult{NextStep: StepView, UpdateState: map[string]any{KeyJobID: choice.ID()}}
	}
	return chat.StepResult{Reject: "Please pick a job from the list."}
}

// ViewStep shows one job and offers to apply.
type ViewStep struct {
	workers WorkerService
	jobs    JobService
}

func (s *ViewStep) ID() chat.StepID          { return StepView }
func (s *ViewStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *ViewStep) buttons(jobID uint) []chat.Button {
	return []chat.Button{
		{ID: chat.SelectID(ActionApply, jobID), Title: "🙋 Apply"},
		{ID: chat.ActionBack, Title: "⬅ Back to list"},
	}
}

func details(j *entity.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛠 %s\n📝 %s\n", entity.CategoryTitle(j.Category), j.Title)
	if j.Description != "" {
		fmt.Fprintf(&b, "ℹ️ %s\n", j.Description)
	}
	place := j.Place
	fmt.Fprintf(&b, "💰 %s\n📍 %s\nRef: %s", ask.Rupees(j.Pay), ask.Where(&place, j.Latitude, j.Longitude), j.ShortRef())
	return b.String()
}

// open loads the selected job, nil when it is gone or no longer open.
func (s *ViewStep) open(ctx context.Context, state *chat.Session) (*entity.Job, error) {
	job, err := s.jobs.JobByID(ctx, uint(state.GetInt(KeyJobID)))
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	if job == nil || !job.IsOpen() {
		return nil, nil
	}
	return job, nil
}

func (s *ViewStep) Enter(ctx context.Context, m chat.Messenger, state *chat.Session) chat.StepResult {
	job, err := s.open(ctx, state)
	if err != nil {
		return chat.StepResult{Error: err}
	}
	if job == nil {
		if err := m.SendText(state.Phone, "Sorry, that job is no longer available."); err != nil {
			return chat.StepResult{Error: err}
		}
		return chat.StepResult{NextStep: StepBrowse, UpdateState: map[string]any{KeyJobID: nil}}
	}

	if job.Latitude != nil && job.Longitude != nil {
		loc := chat.Location{Latitude: *job.Latitude, Longitude: *job.Longitude}
		if err := m.SendLocation(state.Phone, loc, job.Title, job.Place); err != nil {
			return chat.StepResult{Error: err}
		}
	}
	if err := m.SendButtons(state.Phone, details(job), s.buttons(job.ID), chat.Frame{}); err != nil {
		return chat.StepResult{Error: err}
	}
	return chat.StepResult{UpdateState: map[string]any{
		KeyJobTitle:    job.Title,
		KeyJobPay:      job.Pay,
		KeyPosterPhone: job.PosterPhone,
	}}
}

func (s *ViewStep) Prompt(ctx context.Context, m chat.Messenger, state *chat.Session) error {
	job, err := s.open(ctx, state)
	if err != nil {
		return err
	}
	if job == nil {
		buttons := []chat.Button{{ID: chat.ActionBack, Title: "⬅ Back to list"}}
		return m.SendButtons(state.Phone, "Sorry, that job is no longer available.", buttons, chat.Frame{})
	}
	return m.SendButtons(state.Phone, details(job), s.buttons(job.ID), chat.Frame{})
}

func (s *ViewStep) HandleInput(ctx context.Context, _ chat.Messenger, state *chat.Session, in chat.IncomingMessage) chat.StepResult {
	jobID := uint(state.GetInt(KeyJobID))
	choice := chat.Choice(in, s.buttons(jobID))
	if choice == nil && strings.EqualFold(in.Content(), "back") {
		choice = chat.ParseSelection(chat.ActionBack)
	}

	switch {
	case choice.Is(chat.ActionBack):
		return chat.StepResult{NextStep: StepBrowse, UpdateState: map[string]any{KeyJobID: nil}}
	case choice.Is(ActionApply):
	default:
		return chat.StepResult{Reject: "Tap Apply to apply for this job, or go back to the list."}
	}

	worker, err := s.workers.WorkerByPhone(ctx, state.Phone)
	if err != nil {
		return chat.StepResult{Error: fmt.Errorf("worker lookup: %w", err)}
	}
	if worker == nil {
		return chat.StepResult{Reject: "Only registered workers can apply. Send \"menu\" and choose Register first."}
	}
	if state.GetString(KeyPosterPhone) == state.Phone {
		return chat.StepResult{Reject: "This is your own job."}
	}
	return chat.StepResult{NextStep: StepNote}
}

var confirmButtons = []chat.Button{
	{ID: chat.ActionConfirm, Title: "✅ Send"},
	{ID: chat.Select(chat.ActionEdit, "note"), Title: "Edit note"},
}

// ConfirmStep shows the application before it is sent.
type ConfirmStep struct{}

func (s *ConfirmStep) ID() chat.StepID          { return StepConfirm }
func (s *ConfirmStep) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

func (s *ConfirmStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	var d Draft
	if err := state.Bind(&d); err != nil {
		return err
	}
	note := "No note"
	if d.Note != nil && *d.Note != "" {
		note = *d.Note
	}
	body := fmt.Sprintf("Send your application?\n\n📝 %s (%s)\n💬 %s", d.JobTitle, ask.Rupees(d.JobPay), note)
	return m.SendButtons(state.Phone, body, confirmButtons, chat.Frame{})
}

func (s *ConfirmStep) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	choice := chat.Choice(in, confirmButtons)
	if choice == nil {
		switch strings.ToLower(in.Content()) {
		case "yes", "ok", "send", "apply":
			choice = chat.ParseSelection(chat.ActionConfirm)
		}
	}
	switch {
	case choice.Is(chat.ActionConfirm):
		return chat.StepResult{NextStep: StepDone}
	case choice.Is(chat.ActionEdit):
		return chat.StepResult{Edit: choice.Value}
	}
	return chat.StepResult{Reject: "Tap Send to apply, or Edit note."}
}

// DoneStep sends the application once per run and tells the job poster.
type DoneStep struct {
	workers WorkerService
	jobs    JobService
	log     *slog.Logger
}

func (s *DoneStep) ID() chat.StepID          { return StepDone }
func (s *DoneStep) Accepts() chat.InputKind { return 0 }

func (s *DoneStep) Prompt(_ context.Context, m chat.Messenger, state *chat.Session) error {
	return m.SendText(state.Phone, "Your application is sent.")
}

func (s *DoneStep) HandleInput(context.Context, chat.Messenger, *chat.Session, chat.IncomingMessage) chat.StepResult {
	return chat.StepResult{}
}

func (s *DoneStep) Enter(ctx context.Context, m chat.Messenger, state *chat.Session) chat.StepResult {
	if state.Has(KeyApplicationID) {
		return chat.StepResult{Complete: true}
	}

	var d Draft
	if err := state.Bind(&d); err != nil {
		return chat.StepResult{Error: err}
	}
	note := ""
	if d.Note != nil {
		note = *d.Note
	}

	app, err := s.jobs.Apply(ctx, d.JobID, state.Phone, note)
	var outcome string
	switch {
	case errors.Is(err, entity.ErrAlreadyApplied):
		outcome = "You have already applied for this job. The customer will contact you if selected."
	case errors.Is(err, entity.ErrJobClosed), errors.Is(err, entity.ErrJobNotFound):
		outcome = "Sorry, this job is no longer open."
	case errors.Is(err, entity.ErrOwnJob):
		outcome = "You cannot apply to your own job."
	case err != nil:
		return chat.StepResult{Failure: fmt.Errorf("applying: %w", err)}
	}
	if outcome != "" {
		if err := m.SendText(state.Phone, outcome); err != nil {
			return chat.StepResult{Error: err}
		}
		return chat.StepResult{Complete: true}
	}
	state.Set(KeyApplicationID, app.ID)

	s.notifyPoster(ctx, m, state, d, note)

	msg := fmt.Sprintf("📨 Application sent for \"%s\"! The customer will contact you on WhatsApp if you are selected.", d.JobTitle)
	if err := m.SendText(state.Phone, msg); err != nil {
		// already stored, so the run completes even if the user misses the message
		return chat.StepResult{Complete: true, Error: err}
	}
	return chat.StepResult{Complete: true}
}

// notifyPoster is best effort: the application is already stored.
func (s *DoneStep) notifyPoster(ctx context.Context, m chat.Messenger, state *chat.Session, d Draft, note string) {
	if d.PosterPhone == "" {
		return
	}
	name, trade := state.Phone, ""
	worker, err := s.workers.WorkerByPhone(ctx, state.Phone)
	if err == nil && worker != nil {
		name = worker.Name
		trade = " (" + entity.CategoryTitle(worker.Category) + ")"
	}

	msg := fmt.Sprintf("🙋 New applicant for \"%s\": %s%s\n📞 %s", d.JobTitle, name, trade, state.Phone)
	if note != "" {
		msg += "\n💬 " + note
	}
	if err := m.SendText(d.PosterPhone, msg); err != nil {
		s.log.Warn("poster not notified",
			slog.String("phone", state.Phone),
			slog.Uint64("job_id", uint64(d.JobID)),
			sl.Err(err),
		)
	}
}
