// Package ask holds question steps shared by the marketplace flows.
package ask

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"Panikkar/bot/chat"
	"Panikkar/entity"
)

// ActionCategory is the selection action of category rows: "cat:<id>".
const ActionCategory = "cat"

// Temp data keys written by Location.
const (
	KeyLatitude  = "latitude"
	KeyLongitude = "longitude"
	KeyPlace     = "place"
)

const maxPlaceRunes = 120

var skipButton = chat.Button{ID: chat.Select(chat.ActionNav, chat.NavSkip), Title: "Skip"}

// Text asks for free text of Min..Max runes and stores it under Key.
type Text struct {
	StepID   chat.StepID
	Next     chat.StepID
	Key      string
	Question string
	Min      int
	Max      int
	// Optional steps offer a Skip button and store nil when skipped.
	Optional bool
	// Clip truncates long answers to Max instead of rejecting them.
	Clip bool
}

func (t *Text) ID() chat.StepID { return t.StepID }

func (t *Text) Accepts() chat.InputKind {
	if t.Optional {
		return chat.InputText | chat.InputButton
	}
	return chat.InputText
}

func (t *Text) Prompt(_ context.Context, m chat.Messenger, s *chat.Session) error {
	if t.Optional {
		return m.SendButtons(s.Phone, t.Question, []chat.Button{skipButton}, chat.Frame{})
	}
	return m.SendText(s.Phone, t.Question)
}

func (t *Text) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	if t.Optional && chat.IsSkip(in) {
		return chat.StepResult{NextStep: t.Next, UpdateState: map[string]any{t.Key: nil}}
	}

	text := in.Content()
	n := utf8.RuneCountInString(text)
	if text == "" || n < t.Min {
		return chat.StepResult{Reject: fmt.Sprintf("Please send at least %d characters.", max(t.Min, 1))}
	}
	if t.Max > 0 && n > t.Max {
		if !t.Clip {
			return chat.StepResult{Reject: fmt.Sprintf("That is a bit long. Please keep it under %d characters.", t.Max)}
		}
		text = chat.Truncate(text, t.Max)
	}
	return chat.StepResult{NextStep: t.Next, UpdateState: map[string]any{t.Key: text}}
}

// Category asks for a trade from the category list and stores its id under Key.
type Category struct {
	StepID   chat.StepID
	Next     chat.StepID
	Key      string
	Question string
}

func (c *Category) ID() chat.StepID          { return c.StepID }
func (c *Category) Accepts() chat.InputKind { return chat.InputText | chat.InputSelection }

// CategorySections renders all categories as list rows.
func CategorySections() []chat.Section {
	cats := entity.Categories()
	rows := make([]chat.Row, 0, len(cats))
	for _, cat := range cats {
		rows = append(rows, chat.Row{ID: chat.Select(ActionCategory, cat.ID), Title: cat.Title, Description: cat.Hint})
	}
	return []chat.Section{{Title: "Trades", Rows: rows}}
}

func (c *Category) Prompt(_ context.Context, m chat.Messenger, s *chat.Session) error {
	return m.SendList(s.Phone, c.Question, "Choose trade", CategorySections(), chat.Frame{})
}

func (c *Category) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	choice := chat.RowChoice(in, CategorySections())
	if !choice.Is(ActionCategory) || entity.CategoryByID(choice.Value) == nil {
		return chat.StepResult{Reject: "Please choose a trade from the list."}
	}
	return chat.StepResult{NextStep: c.Next, UpdateState: map[string]any{c.Key: choice.Value}}
}

// Location asks for a shared location pin or a typed area name.
type Location struct {
	StepID   chat.StepID
	Next     chat.StepID
	Question string
	Optional bool
}

func (l *Location) ID() chat.StepID { return l.StepID }

func (l *Location) Accepts() chat.InputKind {
	if l.Optional {
		return chat.InputLocation | chat.InputText | chat.InputButton
	}
	return chat.InputLocation | chat.InputText
}

func (l *Location) Prompt(_ context.Context, m chat.Messenger, s *chat.Session) error {
	body := l.Question + "\n📎 → Location to share a pin, or type your area (e.g. Kakkanad)."
	if l.Optional {
		return m.SendButtons(s.Phone, body, []chat.Button{skipButton}, chat.Frame{})
	}
	return m.SendText(s.Phone, body)
}

func (l *Location) HandleInput(_ context.Context, _ chat.Messenger, _ *chat.Session, in chat.IncomingMessage) chat.StepResult {
	if l.Optional && chat.IsSkip(in) {
		return chat.StepResult{NextStep: l.Next, UpdateState: map[string]any{
			KeyLatitude:  nil,
			KeyLongitude: nil,
			KeyPlace:     nil,
		}}
	}

	if in.Location != nil {
		place := in.Location.Name
		if place == "" {
			place = in.Location.Address
		}
		update := map[string]any{
			KeyLatitude:  in.Location.Latitude,
			KeyLongitude: in.Location.Longitude,
			KeyPlace:     nil,
		}
		if place != "" {
			update[KeyPlace] = chat.Truncate(place, maxPlaceRunes)
		}
		return chat.StepResult{NextStep: l.Next, UpdateState: update}
	}

	place := in.Content()
	if utf8.RuneCountInString(place) < 2 {
		return chat.StepResult{Reject: "Please share a location pin or type the name of your area."}
	}
	return chat.StepResult{NextStep: l.Next, UpdateState: map[string]any{
		KeyLatitude:  nil,
		KeyLongitude: nil,
		KeyPlace:     chat.Truncate(place, maxPlaceRunes),
	}}
}

// Where formats a place and optional coordinates for summaries.
func Where(place *string, lat, lng *float64) string {
	switch {
	case place != nil && *place != "":
		return *place
	case lat != nil && lng != nil:
		return fmt.Sprintf("📍 %.4f, %.4f", *lat, *lng)
	}
	return "Not given"
}

// Rupees formats an amount with Indian digit grouping: ₹1,50,000.
func Rupees(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= 3 {
		return sign + "₹" + digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	out := ""
	for _, g := range groups {
		out += g + ","
	}
	return sign + "₹" + out + tail
}
