package chat

import (
	"context"
	"time"
)

// StepID identifies a step within a flow. Each flow declares its own closed set.
type StepID string

// FlowID identifies a conversational flow.
type FlowID string

// InputKind is a bit set of message shapes a step accepts.
type InputKind uint8

const (
	InputText InputKind = 1 << iota
	InputButton
	InputList
	InputImage
	InputDocument
	InputLocation

	InputSelection = InputButton | InputList
	InputAny       = InputText | InputSelection | InputImage | InputDocument | InputLocation
)

// Has reports whether k includes every bit of other.
func (k InputKind) Has(other InputKind) bool {
	return other != 0 && k&other == other
}

// StepResult represents the outcome of handling an event in a step.
//
// A result without NextStep and without Complete keeps the session where it is,
// discards UpdateState and re-sends the current prompt, preceded by Reject if set.
type StepResult struct {
	NextStep    StepID
	UpdateState map[string]any
	Complete    bool
	// NextFlow is started after Complete; empty returns the session to idle.
	NextFlow FlowID
	// Edit jumps from the confirmation step to the step editing this field,
	// for edit choices that arrive as typed text rather than a selection.
	Edit string
	// Reject is a validation notice shown before the prompt is repeated.
	Reject string
	// Failure is a business-service error: logged, reported to the user, state unchanged.
	Failure error
	// Error is a collaborator error (storage, transport), returned to the caller.
	// With Complete the run is still completed and saved first, for failures
	// that happen after the step's side effect.
	Error error
}

// Step defines a single position within a flow.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() StepID

	// Accepts returns the message shapes this step can consume.
	Accepts() InputKind

	// Prompt renders the question for this step. It must not change the session.
	Prompt(ctx context.Context, m Messenger, s *Session) error

	// HandleInput processes user input for this step.
	HandleInput(ctx context.Context, m Messenger, s *Session, in IncomingMessage) StepResult
}

// Enterer is implemented by steps that act on entry instead of only prompting,
// such as terminal steps performing the flow's side effect.
type Enterer interface {
	Enter(ctx context.Context, m Messenger, s *Session) StepResult
}

// Cleaner is implemented by steps holding external resources (uploaded media)
// that must be released when the run is abandoned by timeout or cancel.
type Cleaner interface {
	Cleanup(ctx context.Context, s *Session) error
}

// Flow defines a complete conversational journey.
type Flow interface {
	// ID returns the unique identifier for this flow.
	ID() FlowID

	// InitialStep returns the first step of the flow.
	InitialStep() StepID

	// GetStep returns a step by its ID.
	GetStep(id StepID) (Step, bool)

	// Steps returns the declared step order.
	Steps() []StepID

	// Allows reports whether a transition between two steps is declared.
	Allows(from, to StepID) bool

	// ConfirmStep returns the step that offers edit navigation, or "".
	ConfirmStep() StepID

	// EditTarget resolves an edit command value to the step it jumps to.
	EditTarget(field string) (StepID, bool)
}

// SessionStorage handles persistence of conversation sessions.
// Load returns (nil, nil) when no session exists for the phone.
type SessionStorage interface {
	Load(ctx context.Context, phone string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	ListIdle(ctx context.Context, before time.Time, exclude ...FlowID) ([]*Session, error)
}

// Observer receives engine events for metrics.
type Observer interface {
	ObserveMessage(flow, outcome string)
	ObserveTransition(flow, to string)
	ObserveCompletion(flow string)
	ObserveFailure(flow, kind string)
}
