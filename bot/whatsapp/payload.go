package whatsapp

import (
	"strconv"
	"time"

	"Panikkar/bot/chat"
)

// WebhookPayload represents the incoming webhook payload from WhatsApp
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value ChangeValue `json:"value"`
	Field string      `json:"field"`
}

type ChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []Contact `json:"contacts"`
	Messages []Message `json:"messages"`
	Statuses []Status  `json:"statuses"`
}

type Contact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

// Status is a delivery receipt for an outbound message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// Message is one inbound message of any supported type.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	// Button is a quick-reply from a template message.
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Image    *MediaRef `json:"image,omitempty"`
	Document *MediaRef `json:"document,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
		Address   string  `json:"address"`
	} `json:"location,omitempty"`
}

type MediaRef struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

// normalize converts a webhook message into the engine's input shape.
// Unsupported types (stickers, reactions, audio) report false.
func (m Message) normalize(name string) (chat.IncomingMessage, bool) {
	in := chat.IncomingMessage{
		ID:        m.ID,
		From:      chat.NormalizePhone(m.From),
		Name:      name,
		Timestamp: parseTimestamp(m.Timestamp),
	}
	if in.From == "" {
		return in, false
	}

	switch m.Type {
	case "text":
		if m.Text == nil {
			return in, false
		}
		in.Type = chat.MessageText
		in.Text = m.Text.Body
	case "interactive":
		if m.Interactive == nil {
			return in, false
		}
		switch {
		case m.Interactive.ButtonReply != nil:
			in.Type = chat.MessageButtonReply
			in.SelectionID = m.Interactive.ButtonReply.ID
			in.Text = m.Interactive.ButtonReply.Title
		case m.Interactive.ListReply != nil:
			in.Type = chat.MessageListReply
			in.SelectionID = m.Interactive.ListReply.ID
			in.Text = m.Interactive.ListReply.Title
		default:
			return in, false
		}
	case "button":
		if m.Button == nil {
			return in, false
		}
		in.Type = chat.MessageButtonReply
		in.SelectionID = m.Button.Payload
		in.Text = m.Button.Text
	case "image":
		if m.Image == nil {
			return in, false
		}
		in.Type = chat.MessageImage
		in.MediaID = m.Image.ID
		in.MimeType = m.Image.MimeType
		in.Caption = m.Image.Caption
	case "document":
		if m.Document == nil {
			return in, false
		}
		in.Type = chat.MessageDocument
		in.MediaID = m.Document.ID
		in.MimeType = m.Document.MimeType
		in.Caption = m.Document.Caption
	case "location":
		if m.Location == nil {
			return in, false
		}
		in.Type = chat.MessageLocation
		in.Location = &chat.Location{
			Latitude:  m.Location.Latitude,
			Longitude: m.Location.Longitude,
			Name:      m.Location.Name,
			Address:   m.Location.Address,
		}
	default:
		return in, false
	}

	in.Selection = chat.ParseSelection(in.SelectionID)
	return in, true
}

func parseTimestamp(ts string) time.Time {
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(sec, 0)
}
