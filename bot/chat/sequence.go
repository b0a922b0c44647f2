package chat

import (
	"errors"
	"fmt"
)

// Sequence is the reusable step table every flow embeds: an ordered list of steps,
// one terminal step, an optional confirmation step with edit targets, and any
// extra declared branches (skips over conditional steps, early exits).
type Sequence struct {
	id       FlowID
	order    []StepID
	steps    map[StepID]Step
	terminal StepID
	confirm  StepID
	edits    map[string]StepID
	branches map[StepID]map[StepID]struct{}
}

// NewSequence creates an empty sequence for a flow.
func NewSequence(id FlowID) *Sequence {
	return &Sequence{
		id:       id,
		steps:    make(map[StepID]Step),
		edits:    make(map[string]StepID),
		branches: make(map[StepID]map[StepID]struct{}),
	}
}

// Add appends steps in order.
func (q *Sequence) Add(steps ...Step) *Sequence {
	for _, st := range steps {
		q.order = append(q.order, st.ID())
		q.steps[st.ID()] = st
	}
	return q
}

// Terminal marks the step whose arrival performs the flow's side effect.
func (q *Sequence) Terminal(id StepID) *Sequence {
	q.terminal = id
	return q
}

// Confirm marks the confirmation step and registers edit commands
// (field name -> step to jump back into).
func (q *Sequence) Confirm(id StepID, edits map[string]StepID) *Sequence {
	q.confirm = id
	for field, target := range edits {
		q.edits[field] = target
	}
	return q
}

// Branch declares an extra forward transition, e.g. a skip over a conditional step.
func (q *Sequence) Branch(from StepID, to ...StepID) *Sequence {
	if q.branches[from] == nil {
		q.branches[from] = make(map[StepID]struct{})
	}
	for _, t := range to {
		q.branches[from][t] = struct{}{}
	}
	return q
}

func (q *Sequence) ID() FlowID { return q.id }

func (q *Sequence) InitialStep() StepID {
	if len(q.order) == 0 {
		return ""
	}
	return q.order[0]
}

func (q *Sequence) GetStep(id StepID) (Step, bool) {
	st, ok := q.steps[id]
	return st, ok
}

func (q *Sequence) Steps() []StepID {
	return append([]StepID(nil), q.order...)
}

func (q *Sequence) ConfirmStep() StepID { return q.confirm }

func (q *Sequence) EditTarget(field string) (StepID, bool) {
	t, ok := q.edits[field]
	return t, ok
}

func (q *Sequence) index(id StepID) int {
	for i, s := range q.order {
		if s == id {
			return i
		}
	}
	return -1
}

// Next returns the step declared after id.
func (q *Sequence) Next(id StepID) (StepID, bool) {
	i := q.index(id)
	if i < 0 || i+1 >= len(q.order) {
		return "", false
	}
	return q.order[i+1], true
}

// Allows reports whether from -> to is a declared transition:
// staying, the next step, a declared branch, or an edit jump from confirmation.
func (q *Sequence) Allows(from, to StepID) bool {
	if _, ok := q.steps[to]; !ok {
		return false
	}
	if from == to {
		return true
	}
	if next, ok := q.Next(from); ok && next == to {
		return true
	}
	if _, ok := q.branches[from][to]; ok {
		return true
	}
	if from == q.confirm && q.confirm != "" {
		for _, target := range q.edits {
			if target == to {
				return true
			}
		}
	}
	return false
}

// Validate checks the table has no gaps.
func (q *Sequence) Validate() error {
	if q.id == "" {
		return errors.New("flow id is empty")
	}
	if len(q.order) == 0 {
		return fmt.Errorf("flow %s: no steps", q.id)
	}
	seen := make(map[StepID]bool, len(q.order))
	for _, id := range q.order {
		if id == "" {
			return fmt.Errorf("flow %s: empty step id", q.id)
		}
		if seen[id] {
			return fmt.Errorf("flow %s: duplicate step %s", q.id, id)
		}
		seen[id] = true
		st := q.steps[id]
		if st == nil {
			return fmt.Errorf("flow %s: step %s has no handler", q.id, id)
		}
		if st.Accepts() == 0 {
			if _, ok := st.(Enterer); !ok {
				return fmt.Errorf("flow %s: step %s accepts no input and has no entry action", q.id, id)
			}
		}
	}
	if q.terminal == "" {
		return fmt.Errorf("flow %s: no terminal step", q.id)
	}
	if !seen[q.terminal] {
		return fmt.Errorf("flow %s: terminal step %s not declared", q.id, q.terminal)
	}
	if q.confirm != "" && !seen[q.confirm] {
		return fmt.Errorf("flow %s: confirm step %s not declared", q.id, q.confirm)
	}
	for field, target := range q.edits {
		if !seen[target] {
			return fmt.Errorf("flow %s: edit %s targets undeclared step %s", q.id, field, target)
		}
	}
	for from, tos := range q.branches {
		if !seen[from] {
			return fmt.Errorf("flow %s: branch from undeclared step %s", q.id, from)
		}
		for to := range tos {
			if !seen[to] {
				return fmt.Errorf("flow %s: branch to undeclared step %s", q.id, to)
			}
		}
	}
	return nil
}
