package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Test flow: ask_name -> ask_amount -> ask_note (optional) -> confirm -> done.

const (
	flowForm FlowID = "form"
	flowMenu FlowID = "menu"

	stepName    StepID = "ask_name"
	stepAmount  StepID = "ask_amount"
	stepNote    StepID = "ask_note"
	stepConfirm StepID = "confirm"
	stepDone    StepID = "done"

	stepMenu StepID = "menu"
)

const (
	promptName    = "What is your name?"
	promptAmount  = "How much?"
	promptNote    = "Any note? Reply skip to leave it empty."
	promptConfirm = "Confirm?"
	promptMenu    = "Main menu"
)

type sent struct {
	kind    string
	to      string
	body    string
	buttons []Button
}

type fakeMessenger struct {
	mu           sync.Mutex
	sent         []sent
	panicButtons bool
	failText     error
}

func (f *fakeMessenger) record(s sent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
}

func (f *fakeMessenger) SendText(to, body string) error {
	if f.failText != nil {
		return f.failText
	}
	f.record(sent{kind: "text", to: to, body: body})
	return nil
}

func (f *fakeMessenger) SendButtons(to, body string, buttons []Button, _ Frame) error {
	if f.panicButtons {
		panic("buttons exploded")
	}
	f.record(sent{kind: "buttons", to: to, body: body, buttons: buttons})
	return nil
}

func (f *fakeMessenger) SendList(to, body, _ string, _ []Section, _ Frame) error {
	f.record(sent{kind: "list", to: to, body: body})
	return nil
}

func (f *fakeMessenger) SendImage(to, mediaURL, caption string) error {
	f.record(sent{kind: "image", to: to, body: caption})
	return nil
}

func (f *fakeMessenger) SendLocation(to string, _ Location, name, _ string) error {
	f.record(sent{kind: "location", to: to, body: name})
	return nil
}

func (f *fakeMessenger) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sent{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.body)
	}
	return out
}

type fakeRecords struct {
	created int
	fail    error
}

func (r *fakeRecords) Create(name string, amount int64) (int, error) {
	if r.fail != nil {
		return 0, r.fail
	}
	r.created++
	return r.created, nil
}

type nameStep struct{}

func (nameStep) ID() StepID         { return stepName }
func (nameStep) Accepts() InputKind { return InputText }
func (nameStep) Prompt(_ context.Context, m Messenger, s *Session) error {
	return m.SendText(s.Phone, promptName)
}
func (nameStep) HandleInput(_ context.Context, _ Messenger, _ *Session, in IncomingMessage) StepResult {
	name := in.Content()
	if len(name) < 2 {
		return StepResult{Reject: "Name is too short."}
	}
	return StepResult{NextStep: stepAmount, UpdateState: map[string]any{"name": name}}
}

type amountStep struct{}

func (amountStep) ID() StepID         { return stepAmount }
func (amountStep) Accepts() InputKind { return InputText }
func (amountStep) Prompt(_ context.Context, m Messenger, s *Session) error {
	return m.SendText(s.Phone, promptAmount)
}
func (amountStep) HandleInput(_ context.Context, _ Messenger, _ *Session, in IncomingMessage) StepResult {
	amount, err := ParseAmount(in.Content(), 100, 100000)
	if err != nil {
		return StepResult{Reject: "Enter an amount between 100 and 100000."}
	}
	return StepResult{NextStep: stepNote, UpdateState: map[string]any{"amount": amount}}
}

type noteStep struct{}

func (noteStep) ID() StepID         { return stepNote }
func (noteStep) Accepts() InputKind { return InputText | InputButton }
func (noteStep) Prompt(_ context.Context, m Messenger, s *Session) error {
	return m.SendButtons(s.Phone, promptNote, []Button{{ID: Select(ActionNav, NavSkip), Title: "Skip"}}, Frame{})
}
func (noteStep) HandleInput(_ context.Context, _ Messenger, _ *Session, in IncomingMessage) StepResult {
	if IsSkip(in) {
		return StepResult{NextStep: stepConfirm, UpdateState: map[string]any{"note": nil}}
	}
	if in.Type != MessageText || in.Content() == "" {
		return StepResult{}
	}
	return StepResult{NextStep: stepConfirm, UpdateState: map[string]any{"note": Truncate(in.Content(), 20)}}
}

var confirmButtons = []Button{
	{ID: Select(ActionConfirm), Title: "Confirm"},
	{ID: Select(ActionEdit, "name"), Title: "Edit name"},
	{ID: Select(ActionEdit, "amount"), Title: "Edit amount"},
}

type confirmStep struct {
	cleaned *int
}

func (confirmStep) ID() StepID         { return stepConfirm }
func (confirmStep) Accepts() InputKind { return InputSelection | InputText }
func (confirmStep) Prompt(_ context.Context, m Messenger, s *Session) error {
	return m.SendButtons(s.Phone, promptConfirm, confirmButtons, Frame{})
}
func (confirmStep) HandleInput(_ context.Context, _ Messenger, _ *Session, in IncomingMessage) StepResult {
	choice := Choice(in, confirmButtons)
	switch {
	case choice.Is(ActionConfirm):
		return StepResult{NextStep: stepDone}
	case choice.Is(ActionEdit):
		return StepResult{Edit: choice.Value}
	}
	return StepResult{}
}
func (c confirmStep) Cleanup(_ context.Context, s *Session) error {
	if c.cleaned != nil && s.Has("name") {
		*c.cleaned++
	}
	return nil
}

type doneStep struct {
	records *fakeRecords
}

func (doneStep) ID() StepID         { return stepDone }
func (doneStep) Accepts() InputKind { return 0 }
func (doneStep) Prompt(_ context.Context, m Messenger, s *Session) error {
	return m.SendText(s.Phone, "Saved.")
}
func (doneStep) HandleInput(context.Context, Messenger, *Session, IncomingMessage) StepResult {
	return StepResult{}
}
func (d doneStep) Enter(_ context.Context, m Messenger, s *Session) StepResult {
	if s.Has("record_id") {
		return StepResult{Complete: true}
	}
	id, err := d.records.Create(s.GetString("name"), s.GetInt("amount"))
	if err != nil {
		return StepResult{Failure: err}
	}
	s.Set("record_id", id)
	_ = m.SendText(s.Phone, "Saved.")
	return StepResult{Complete: true}
}

type formFlow struct {
	*Sequence
}

func newFormFlow(records *fakeRecords, cleaned *int) *formFlow {
	q := NewSequence(flowForm).
		Add(nameStep{}, amountStep{}, noteStep{}, confirmStep{cleaned: cleaned}, doneStep{records: records}).
		Terminal(stepDone).
		Confirm(stepConfirm, map[string]StepID{"name": stepName, "amount": stepAmount})
	return &formFlow{Sequence: q}
}

type menuStep struct{}

func (menuStep) ID() StepID         { return stepMenu }
func (menuStep) Accepts() InputKind { return InputSelection | InputText }
func (menuStep) Prompt(_ context.Context, m Messenger, s *Session) error {
	return m.SendButtons(s.Phone, promptMenu, []Button{{ID: "menu:form", Title: "Form"}}, Frame{})
}
func (menuStep) HandleInput(_ context.Context, _ Messenger, _ *Session, in IncomingMessage) StepResult {
	if Choice(in, []Button{{ID: "menu:form", Title: "Form"}}).Is("menu", "form") {
		return StepResult{Complete: true, NextFlow: flowForm}
	}
	return StepResult{}
}

func newMenuFlow() *Sequence {
	return NewSequence(flowMenu).Add(menuStep{}).Terminal(stepMenu)
}

type harness struct {
	engine  *Engine
	storage *MemoryStorage
	m       *fakeMessenger
	records *fakeRecords
	cleaned int
}

const phone = "+919876543210"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness() *harness {
	h := &harness{
		storage: NewMemoryStorage(),
		m:       &fakeMessenger{},
		records: &fakeRecords{},
	}
	h.engine = NewEngine(h.storage, discardLogger())
	if err := h.engine.RegisterFlow(newMenuFlow()); err != nil {
		panic(err)
	}
	if err := h.engine.RegisterFlow(newFormFlow(h.records, &h.cleaned)); err != nil {
		panic(err)
	}
	if err := h.engine.SetDefaultFlow(flowMenu); err != nil {
		panic(err)
	}
	return h
}

func (h *harness) text(body string) error {
	return h.engine.HandleMessage(context.Background(), h.m, IncomingMessage{From: phone, Type: MessageText, Text: body})
}

func (h *harness) press(id string) error {
	return h.engine.HandleMessage(context.Background(), h.m, IncomingMessage{From: phone, Type: MessageButtonReply, SelectionID: id})
}

func (h *harness) session() *Session {
	s, err := h.storage.Load(context.Background(), phone)
	if err != nil || s == nil {
		return nil
	}
	return s
}

// seed stores a session positioned at step with the given temp data.
func (h *harness) seed(flow FlowID, step StepID, temp map[string]any) {
	s := NewSession(phone)
	s.FlowType = flow
	s.CurrentStep = step
	s.Merge(temp)
	s.UpdatedAt = time.Now()
	_ = h.storage.Save(context.Background(), s)
}

func contains(bodies []string, want string) bool {
	for _, b := range bodies {
		if strings.Contains(b, want) {
			return true
		}
	}
	return false
}

type failingStorage struct {
	*MemoryStorage
	err error
}

func (f failingStorage) Save(context.Context, *Session) error {
	return f.err
}

var errBoom = errors.New("boom")
