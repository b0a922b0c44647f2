package chat

import (
	"strings"
	"time"
)

// MessageType is the shape of an inbound message.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageButtonReply MessageType = "button_reply"
	MessageListReply   MessageType = "list_reply"
	MessageImage       MessageType = "image"
	MessageDocument    MessageType = "document"
	MessageLocation    MessageType = "location"
)

// IncomingMessage is a normalized inbound event. The engine never mutates it.
type IncomingMessage struct {
	ID          string
	From        string
	Name        string
	Type        MessageType
	Text        string
	SelectionID string
	// Selection is SelectionID decoded at ingestion.
	Selection *Selection
	MediaID   string
	MimeType  string
	Caption   string
	Location  *Location
	Timestamp time.Time
}

// Kind maps the message type onto the InputKind bit used by steps.
func (in IncomingMessage) Kind() InputKind {
	switch in.Type {
	case MessageText:
		return InputText
	case MessageButtonReply:
		return InputButton
	case MessageListReply:
		return InputList
	case MessageImage:
		return InputImage
	case MessageDocument:
		return InputDocument
	case MessageLocation:
		if in.Location == nil {
			return 0
		}
		return InputLocation
	}
	return 0
}

// Content returns the trimmed free text of the message.
func (in IncomingMessage) Content() string {
	return strings.TrimSpace(in.Text)
}

// Choice resolves the user's pick among buttons: a decoded selection, a typed
// option number ("2"), or the option title typed verbatim. Returns nil if none match.
func Choice(in IncomingMessage, options []Button) *Selection {
	if in.Selection != nil {
		for _, o := range options {
			if o.ID == in.Selection.String() {
				return in.Selection
			}
		}
		return nil
	}

	text := in.Content()
	if text == "" {
		return nil
	}
	if id := MatchNumberToOption(text, options); id != "" {
		return ParseSelection(id)
	}
	for _, o := range options {
		if strings.EqualFold(text, o.Title) {
			return ParseSelection(o.ID)
		}
	}
	return nil
}

// RowChoice is Choice for list rows.
func RowChoice(in IncomingMessage, sections []Section) *Selection {
	var options []Button
	for _, sec := range sections {
		for _, r := range sec.Rows {
			options = append(options, Button{ID: r.ID, Title: r.Title})
		}
	}
	return Choice(in, options)
}
