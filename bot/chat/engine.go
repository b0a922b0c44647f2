package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Panikkar/internal/lib/sl"
)

const maxTransitions = 20

const (
	textFailure   = "Sorry, something went wrong on our side. You can try again or go back to the menu."
	textCancelled = "Cancelled. Nothing was saved."
	textTimeout   = "Your session timed out and your answers were cleared. Send \"menu\" to start again."
)

// Engine routes inbound messages to flow steps and owns step transitions.
// Messages and timeouts for the same phone are serialized by a per-phone lock.
type Engine struct {
	flows       map[FlowID]Flow
	defaultFlow FlowID
	storage     SessionStorage
	locks       *PhoneLocks
	navigator   *Navigator
	observer    Observer
	listener    SessionListener
	log         *slog.Logger
}

// NewEngine creates a new flow engine.
func NewEngine(storage SessionStorage, log *slog.Logger) *Engine {
	return &Engine{
		flows:     make(map[FlowID]Flow),
		storage:   storage,
		locks:     NewPhoneLocks(),
		navigator: NewNavigator(),
		log:       log.With(sl.Module("chat.engine")),
	}
}

func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

func (e *Engine) SetListener(l SessionListener) {
	e.listener = l
}

func (e *Engine) Navigator() *Navigator {
	return e.navigator
}

// RegisterFlow validates a flow's step table and adds it to the engine.
func (e *Engine) RegisterFlow(f Flow) error {
	if v, ok := f.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for _, id := range f.Steps() {
		if _, ok := f.GetStep(id); !ok {
			return fmt.Errorf("flow %s: step %s has no handler", f.ID(), id)
		}
	}
	e.flows[f.ID()] = f
	e.log.Info("registered flow", slog.String("flow", string(f.ID())))
	return nil
}

// SetDefaultFlow selects the flow started for idle sessions and by the menu command.
func (e *Engine) SetDefaultFlow(id FlowID) error {
	if _, ok := e.flows[id]; !ok {
		return fmt.Errorf("flow not found: %s", id)
	}
	e.defaultFlow = id
	return nil
}

func (e *Engine) DefaultFlow() FlowID {
	return e.defaultFlow
}

// Flow returns a registered flow.
func (e *Engine) Flow(id FlowID) (Flow, bool) {
	f, ok := e.flows[id]
	return f, ok
}

// HandleMessage processes one inbound message to completion:
// load session, navigation, dispatch, save.
func (e *Engine) HandleMessage(ctx context.Context, m Messenger, in IncomingMessage) error {
	if in.From == "" {
		return errors.New("message without sender")
	}
	if in.Selection == nil && in.SelectionID != "" {
		in.Selection = ParseSelection(in.SelectionID)
	}

	unlock := e.locks.Lock(in.From)
	defer unlock()

	s, err := e.storage.Load(ctx, in.From)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		s = NewSession(in.From)
	}

	if e.intercept(ctx, m, in, s) {
		e.observe(s.FlowType, "navigation")
		return nil
	}

	return e.dispatch(ctx, m, s, in)
}

// intercept runs navigation commands on a copy of the session. Any error or panic
// degrades to "not handled" so normal dispatch proceeds with the untouched session.
func (e *Engine) intercept(ctx context.Context, m Messenger, in IncomingMessage, s *Session) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("navigation panic",
				slog.String("phone", s.Phone),
				slog.Any("panic", r),
			)
			handled = false
		}
	}()

	cmd := e.navigator.Match(in)
	if cmd == CommandNone {
		return false
	}

	work := s.clone()
	var err error
	switch cmd {
	case CommandMenu:
		err = e.toDefault(ctx, m, work)
	case CommandCancel:
		err = e.Cancel(ctx, m, work)
	case CommandRetry:
		err = e.PromptCurrentStep(ctx, m, work)
	}
	if err != nil {
		e.log.Warn("navigation failed",
			slog.String("phone", s.Phone),
			slog.String("command", cmd.String()),
			sl.Err(err),
		)
		return false
	}
	return true
}

func (e *Engine) dispatch(ctx context.Context, m Messenger, s *Session, in IncomingMessage) error {
	if s.Idle() {
		return e.toDefault(ctx, m, s)
	}

	f, ok := e.flows[s.FlowType]
	if !ok {
		e.log.Warn("stale flow, restarting",
			slog.String("phone", s.Phone),
			slog.String("flow", string(s.FlowType)),
		)
		e.observe(s.FlowType, "restarted")
		return e.toDefault(ctx, m, s)
	}

	step, ok := f.GetStep(s.CurrentStep)
	if !ok {
		e.log.Warn("stale step, restarting flow",
			slog.String("phone", s.Phone),
			slog.String("flow", string(s.FlowType)),
			slog.String("step", string(s.CurrentStep)),
		)
		e.observe(s.FlowType, "restarted")
		return e.Start(ctx, m, s, f.ID())
	}

	if s.CurrentStep == f.ConfirmStep() && in.Selection.Is(ActionEdit) {
		if target, ok := f.EditTarget(in.Selection.Value); ok {
			return e.editJump(ctx, m, s, f, target)
		}
	}

	if !step.Accepts().Has(in.Kind()) {
		e.log.Debug("unexpected input shape",
			slog.String("phone", s.Phone),
			slog.String("step", string(s.CurrentStep)),
			slog.String("type", string(in.Type)),
		)
		e.observe(s.FlowType, "rejected")
		return step.Prompt(ctx, m, s)
	}

	cp := s.checkpoint()
	res := step.HandleInput(ctx, m, s, in)
	return e.apply(ctx, m, s, f, step, res, cp)
}

// Start begins a fresh run of a flow: temp data cleared, first step entered.
// Calling it again from any state restarts the flow cleanly.
func (e *Engine) Start(ctx context.Context, m Messenger, s *Session, id FlowID) error {
	f, ok := e.flows[id]
	if !ok {
		return fmt.Errorf("flow not found: %s", id)
	}

	s.Clear()
	s.FlowType = id
	s.CurrentStep = f.InitialStep()
	s.ReturnStep = ""

	e.log.Debug("starting flow",
		slog.String("phone", s.Phone),
		slog.String("flow", string(id)),
	)
	e.observe(id, "started")

	return e.enter(ctx, m, s, f, s.checkpoint())
}

// PromptCurrentStep re-renders the current prompt without consuming input.
func (e *Engine) PromptCurrentStep(ctx context.Context, m Messenger, s *Session) error {
	if s.Idle() {
		return e.toDefault(ctx, m, s)
	}
	f, ok := e.flows[s.FlowType]
	if !ok {
		return e.toDefault(ctx, m, s)
	}
	step, ok := f.GetStep(s.CurrentStep)
	if !ok {
		return e.Start(ctx, m, s, f.ID())
	}
	return step.Prompt(ctx, m, s)
}

// Cancel abandons the current run, releases step resources, clears temp data and
// returns the session to the default flow.
func (e *Engine) Cancel(ctx context.Context, m Messenger, s *Session) error {
	if !s.Idle() {
		e.cleanup(ctx, s)
		s.Clear()
		if err := m.SendText(s.Phone, textCancelled); err != nil {
			return err
		}
	}
	return e.toDefault(ctx, m, s)
}

// HandleTimeout resets a session abandoned mid-flow. It is called by an external
// scheduler, never from the message path. s is the snapshot the caller judged
// idle; the stored session is reloaded under the phone lock and left alone if
// it moved on since.
func (e *Engine) HandleTimeout(ctx context.Context, m Messenger, s *Session) error {
	unlock := e.locks.Lock(s.Phone)
	defer unlock()

	stored, err := e.storage.Load(ctx, s.Phone)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if stored == nil || stored.Idle() {
		return nil
	}
	if stored.UpdatedAt.After(s.UpdatedAt) {
		e.log.Debug("session active again, timeout skipped",
			slog.String("phone", s.Phone),
			slog.String("step", string(stored.CurrentStep)),
		)
		e.observe(stored.FlowType, "timeout_skipped")
		return nil
	}
	s = stored
	flow := s.FlowType

	e.cleanup(ctx, s)
	e.reset(s)
	if err := e.save(ctx, s); err != nil {
		return err
	}

	e.log.Info("session timed out",
		slog.String("phone", s.Phone),
		slog.String("flow", string(flow)),
	)
	e.observe(flow, "timeout")

	if m == nil {
		return nil
	}
	return m.SendText(s.Phone, textTimeout)
}

func (e *Engine) toDefault(ctx context.Context, m Messenger, s *Session) error {
	if e.defaultFlow == "" {
		e.reset(s)
		return e.save(ctx, s)
	}
	return e.Start(ctx, m, s, e.defaultFlow)
}

func (e *Engine) editJump(ctx context.Context, m Messenger, s *Session, f Flow, target StepID) error {
	step, ok := f.GetStep(target)
	if !ok {
		return fmt.Errorf("edit target not found: %s", target)
	}
	s.ReturnStep = s.CurrentStep
	s.CurrentStep = target
	e.observeTransition(f.ID(), target)
	if err := e.save(ctx, s); err != nil {
		return err
	}
	return step.Prompt(ctx, m, s)
}

// apply handles the result of HandleInput. cp is the session as loaded, used to
// undo any mutation when the step does not advance.
func (e *Engine) apply(ctx context.Context, m Messenger, s *Session, f Flow, step Step, res StepResult, cp checkpoint) error {
	if res.Complete && res.Error != nil {
		return e.completeAfter(ctx, m, s, res)
	}
	if res.Error != nil {
		s.restore(cp)
		return res.Error
	}
	if res.Failure != nil {
		s.restore(cp)
		return e.fail(ctx, m, s, res.Failure)
	}
	if res.Complete {
		return e.complete(ctx, m, s, res)
	}
	if res.Edit != "" {
		s.restore(cp)
		if target, ok := f.EditTarget(res.Edit); ok && s.CurrentStep == f.ConfirmStep() {
			return e.editJump(ctx, m, s, f, target)
		}
		e.log.Warn("unknown edit target",
			slog.String("phone", s.Phone),
			slog.String("field", res.Edit),
		)
		return step.Prompt(ctx, m, s)
	}

	if res.NextStep == "" {
		s.restore(cp)
		e.log.Debug("input rejected",
			slog.String("phone", s.Phone),
			slog.String("step", string(s.CurrentStep)),
		)
		e.observe(s.FlowType, "rejected")
		if res.Reject != "" {
			if err := m.SendText(s.Phone, res.Reject); err != nil {
				return err
			}
		}
		return step.Prompt(ctx, m, s)
	}

	from, to := s.CurrentStep, res.NextStep
	if s.Editing() && to != from {
		to = s.ReturnStep
		s.ReturnStep = ""
	} else if !f.Allows(from, to) {
		s.restore(cp)
		e.log.Error("undeclared transition",
			slog.String("phone", s.Phone),
			slog.String("flow", string(f.ID())),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		e.observeFailure(f.ID(), "transition")
		return step.Prompt(ctx, m, s)
	}

	s.Merge(res.UpdateState)
	s.CurrentStep = to
	e.observe(f.ID(), "advanced")

	if to == from {
		if err := e.save(ctx, s); err != nil {
			return err
		}
		return step.Prompt(ctx, m, s)
	}

	e.observeTransition(f.ID(), to)
	return e.enter(ctx, m, s, f, cp)
}

// enter runs the current step's entry: Enter for action steps (following
// auto-transitions), Prompt otherwise. The session is saved before prompting.
func (e *Engine) enter(ctx context.Context, m Messenger, s *Session, f Flow, cp checkpoint) error {
	for i := 0; i < maxTransitions; i++ {
		step, ok := f.GetStep(s.CurrentStep)
		if !ok {
			return fmt.Errorf("step not found: %s", s.CurrentStep)
		}

		enterer, ok := step.(Enterer)
		if !ok {
			if err := e.save(ctx, s); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			return step.Prompt(ctx, m, s)
		}

		res := enterer.Enter(ctx, m, s)
		if res.Complete && res.Error != nil {
			return e.completeAfter(ctx, m, s, res)
		}
		if res.Error != nil {
			s.restore(cp)
			return res.Error
		}
		if res.Failure != nil {
			s.restore(cp)
			return e.fail(ctx, m, s, res.Failure)
		}
		if res.Complete {
			return e.complete(ctx, m, s, res)
		}
		if res.NextStep == "" || res.NextStep == s.CurrentStep {
			s.Merge(res.UpdateState)
			return e.save(ctx, s)
		}
		if !f.Allows(s.CurrentStep, res.NextStep) {
			s.restore(cp)
			e.observeFailure(f.ID(), "transition")
			return fmt.Errorf("flow %s: undeclared transition %s -> %s", f.ID(), s.CurrentStep, res.NextStep)
		}

		s.Merge(res.UpdateState)
		s.CurrentStep = res.NextStep
		e.observeTransition(f.ID(), res.NextStep)
	}
	return fmt.Errorf("flow %s: too many transitions", f.ID())
}

func (e *Engine) complete(ctx context.Context, m Messenger, s *Session, res StepResult) error {
	flow := s.FlowType
	e.log.Info("flow completed",
		slog.String("phone", s.Phone),
		slog.String("flow", string(flow)),
	)
	e.observeCompletion(flow)

	if res.NextFlow != "" {
		return e.Start(ctx, m, s, res.NextFlow)
	}
	e.reset(s)
	return e.save(ctx, s)
}

// completeAfter completes a run whose side effect already happened, then
// reports the error that followed it.
func (e *Engine) completeAfter(ctx context.Context, m Messenger, s *Session, res StepResult) error {
	cause := res.Error
	res.Error = nil
	if err := e.complete(ctx, m, s, res); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (e *Engine) fail(ctx context.Context, m Messenger, s *Session, cause error) error {
	e.log.Error("step failed",
		slog.String("phone", s.Phone),
		slog.String("flow", string(s.FlowType)),
		slog.String("step", string(s.CurrentStep)),
		sl.Err(cause),
	)
	e.observeFailure(s.FlowType, "business")

	if err := e.save(ctx, s); err != nil {
		return err
	}
	buttons := []Button{
		{ID: Select(ActionNav, NavRetry), Title: "Try again"},
		{ID: Select(ActionNav, NavMenu), Title: "Main menu"},
	}
	return m.SendButtons(s.Phone, textFailure, buttons, Frame{})
}

// cleanup lets every step of the current flow release external resources.
func (e *Engine) cleanup(ctx context.Context, s *Session) {
	f, ok := e.flows[s.FlowType]
	if !ok {
		return
	}
	for _, id := range f.Steps() {
		step, _ := f.GetStep(id)
		c, ok := step.(Cleaner)
		if !ok {
			continue
		}
		if err := c.Cleanup(ctx, s); err != nil {
			e.log.Warn("step cleanup failed",
				slog.String("phone", s.Phone),
				slog.String("step", string(id)),
				sl.Err(err),
			)
		}
	}
}

func (e *Engine) reset(s *Session) {
	s.Clear()
	s.FlowType = ""
	s.CurrentStep = ""
	s.ReturnStep = ""
}

func (e *Engine) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	if err := e.storage.Save(ctx, s); err != nil {
		return err
	}
	if e.listener != nil {
		e.listener.SessionChanged(*s.clone())
	}
	return nil
}

func (e *Engine) observe(flow FlowID, outcome string) {
	if e.observer != nil {
		e.observer.ObserveMessage(string(flow), outcome)
	}
}

func (e *Engine) observeTransition(flow FlowID, to StepID) {
	if e.observer != nil {
		e.observer.ObserveTransition(string(flow), string(to))
	}
}

func (e *Engine) observeCompletion(flow FlowID) {
	if e.observer != nil {
		e.observer.ObserveCompletion(string(flow))
	}
}

func (e *Engine) observeFailure(flow FlowID, kind string) {
	if e.observer != nil {
		e.observer.ObserveFailure(string(flow), kind)
	}
}
