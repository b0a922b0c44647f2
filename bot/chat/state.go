package chat

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Session is the persisted conversation state of one phone number.
type Session struct {
	Phone       string         `json:"phone" bson:"phone"`
	UserID      string         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	FlowType    FlowID         `json:"flow_type" bson:"flow_type"`
	CurrentStep StepID         `json:"current_step" bson:"current_step"`
	ReturnStep  StepID         `json:"return_step,omitempty" bson:"return_step,omitempty"`
	TempData    map[string]any `json:"temp_data" bson:"temp_data"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

// NewSession creates an idle session for a phone number.
func NewSession(phone string) *Session {
	return &Session{
		Phone:     phone,
		TempData:  make(map[string]any),
		UpdatedAt: time.Now(),
	}
}

// Idle reports whether no flow owns the session.
func (s *Session) Idle() bool {
	return s.FlowType == ""
}

// Editing reports whether the current step was reached through edit navigation.
func (s *Session) Editing() bool {
	return s.ReturnStep != ""
}

// Get returns the value stored under key, or def when absent.
func (s *Session) Get(key string, def any) any {
	if v, ok := s.TempData[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present, even with a nil value.
func (s *Session) Has(key string) bool {
	_, ok := s.TempData[key]
	return ok
}

// GetString retrieves a string value from temp data.
func (s *Session) GetString(key string) string {
	if v, ok := s.TempData[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// GetInt retrieves an integer value from temp data.
func (s *Session) GetInt(key string) int64 {
	if v, ok := s.TempData[key]; ok {
		switch val := v.(type) {
		case int:
			return int64(val)
		case int32:
			return int64(val)
		case int64:
			return val
		case uint:
			return int64(val)
		case float64:
			return int64(val)
		case json.Number:
			n, _ := val.Int64()
			return n
		}
	}
	return 0
}

// GetFloat retrieves a float value from temp data.
func (s *Session) GetFloat(key string) float64 {
	if v, ok := s.TempData[key]; ok {
		switch val := v.(type) {
		case float64:
			return val
		case float32:
			return float64(val)
		case int:
			return float64(val)
		case int32:
			return float64(val)
		case int64:
			return float64(val)
		}
	}
	return 0
}

// Set stores a value in temp data.
func (s *Session) Set(key string, value any) {
	if s.TempData == nil {
		s.TempData = make(map[string]any)
	}
	s.TempData[key] = value
}

// Merge copies every entry of data into temp data.
func (s *Session) Merge(data map[string]any) {
	if s.TempData == nil {
		s.TempData = make(map[string]any)
	}
	maps.Copy(s.TempData, data)
}

// Clear drops all temp data.
func (s *Session) Clear() {
	s.TempData = make(map[string]any)
}

// checkpoint captures the mutable position of a session so a step that does not
// advance leaves it exactly as loaded.
type checkpoint struct {
	flow       FlowID
	step       StepID
	returnStep StepID
	temp       map[string]any
}

func (s *Session) checkpoint() checkpoint {
	return checkpoint{
		flow:       s.FlowType,
		step:       s.CurrentStep,
		returnStep: s.ReturnStep,
		temp:       maps.Clone(s.TempData),
	}
}

func (s *Session) restore(cp checkpoint) {
	s.FlowType = cp.flow
	s.CurrentStep = cp.step
	s.ReturnStep = cp.returnStep
	s.TempData = maps.Clone(cp.temp)
	if s.TempData == nil {
		s.TempData = make(map[string]any)
	}
}

func (s *Session) clone() *Session {
	c := *s
	c.TempData = maps.Clone(s.TempData)
	return &c
}

// Bind decodes temp data into a flow's typed scratch record using its json tags.
func (s *Session) Bind(v any) error {
	raw, err := json.Marshal(s.TempData)
	if err != nil {
		return fmt.Errorf("encoding temp data: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding temp data: %w", err)
	}
	return nil
}

// Fields flattens a typed scratch record into a map suitable for StepResult.UpdateState.
func Fields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return out, nil
}
