package chat

import (
	"strconv"
	"strings"
)

// Selection actions shared across flows. Flows may define their own actions.
const (
	ActionNav     = "nav"
	ActionEdit    = "edit"
	ActionConfirm = "confirm"
	ActionPage    = "page"
	ActionBack    = "back"

	NavMenu   = "menu"
	NavCancel = "cancel"
	NavRetry  = "retry"
	NavSkip   = "skip"
)

// Selection is a decoded button or list reply id.
// Wire format: "action" or "action:value", e.g. "job.apply:42".
type Selection struct {
	Action string
	Value  string
}

// ParseSelection decodes a selection id. It returns nil for empty or malformed ids.
func ParseSelection(id string) *Selection {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	parts := strings.SplitN(id, ":", 2)
	if parts[0] == "" {
		return nil
	}

	sel := &Selection{Action: parts[0]}
	if len(parts) > 1 {
		sel.Value = parts[1]
	}
	return sel
}

// Select builds a selection id.
func Select(action string, value ...string) string {
	if len(value) > 0 && value[0] != "" {
		return action + ":" + value[0]
	}
	return action
}

// SelectID builds a selection id carrying a numeric entity id.
func SelectID(action string, id uint) string {
	return action + ":" + strconv.FormatUint(uint64(id), 10)
}

func (s *Selection) String() string {
	if s == nil {
		return ""
	}
	return Select(s.Action, s.Value)
}

// Is reports whether the selection has the given action and, if provided, value.
func (s *Selection) Is(action string, value ...string) bool {
	if s == nil || s.Action != action {
		return false
	}
	if len(value) > 0 {
		return s.Value == value[0]
	}
	return true
}

// ID returns the numeric entity id carried by the selection, or 0.
func (s *Selection) ID() uint {
	if s == nil {
		return 0
	}
	n, err := strconv.ParseUint(s.Value, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
