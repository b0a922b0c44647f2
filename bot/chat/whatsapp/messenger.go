package whatsapp

import (
	"context"
	"strings"

	"Panikkar/bot/chat"
	wa "Panikkar/bot/whatsapp"
)

// Cloud API limits for interactive messages.
const (
	maxBodyRunes        = 1024
	maxHeaderRunes      = 60
	maxFooterRunes      = 60
	maxButtonTitleRunes = 20
	maxListButtonRunes  = 20
	maxRowTitleRunes    = 24
	maxRowDescRunes     = 72
	maxSectionRunes     = 24
	maxListRows         = 10
	maxTextRunes        = 4096
)

// MessageSender is the raw WhatsApp transport.
type MessageSender interface {
	SendMessage(recipientPhone, text string) error
	SendInteractive(recipientPhone string, msg wa.Interactive) error
	SendImage(recipientPhone, link, caption string) error
	SendLocation(recipientPhone string, loc wa.LocationMessage) error
}

// Messenger implements chat.Messenger for WhatsApp.
type Messenger struct {
	sender  MessageSender
	baseURL string
}

// NewMessenger creates a new WhatsApp Messenger. baseURL prefixes relative media links.
func NewMessenger(sender MessageSender, baseURL string) *Messenger {
	return &Messenger{sender: sender, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (m *Messenger) SendText(to, body string) error {
	return m.sender.SendMessage(to, chat.Truncate(body, maxTextRunes))
}

// SendButtons sends reply buttons; more than three options fall back to a list.
func (m *Messenger) SendButtons(to, body string, buttons []chat.Button, frame chat.Frame) error {
	if len(buttons) > chat.MaxButtons {
		rows := make([]chat.Row, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, chat.Row{ID: b.ID, Title: b.Title})
		}
		return m.SendList(to, body, "Choose", []chat.Section{{Rows: rows}}, frame)
	}

	msg := m.interactive("button", body, frame)
	for _, b := range buttons {
		msg.Action.Buttons = append(msg.Action.Buttons, wa.NewReplyButton(b.ID, chat.Truncate(b.Title, maxButtonTitleRunes)))
	}
	return m.sender.SendInteractive(to, msg)
}

// SendList sends a list message. Rows beyond the platform limit are dropped.
func (m *Messenger) SendList(to, body, buttonLabel string, sections []chat.Section, frame chat.Frame) error {
	msg := m.interactive("list", body, frame)
	msg.Action.Button = chat.Truncate(buttonLabel, maxListButtonRunes)

	remaining := maxListRows
	for _, sec := range sections {
		if remaining == 0 {
			break
		}
		out := wa.ListSection{Title: chat.Truncate(sec.Title, maxSectionRunes)}
		for _, r := range sec.Rows {
			if remaining == 0 {
				break
			}
			out.Rows = append(out.Rows, wa.ListRow{
				ID:          r.ID,
				Title:       chat.Truncate(r.Title, maxRowTitleRunes),
				Description: chat.Truncate(r.Description, maxRowDescRunes),
			})
			remaining--
		}
		if len(out.Rows) > 0 {
			msg.Action.Sections = append(msg.Action.Sections, out)
		}
	}
	// a single section needs no title; several do
	if len(msg.Action.Sections) > 1 {
		for i := range msg.Action.Sections {
			if msg.Action.Sections[i].Title == "" {
				msg.Action.Sections[i].Title = "Options"
			}
		}
	}
	return m.sender.SendInteractive(to, msg)
}

func (m *Messenger) SendImage(to, mediaURL, caption string) error {
	if strings.HasPrefix(mediaURL, "/") {
		mediaURL = m.baseURL + mediaURL
	}
	return m.sender.SendImage(to, mediaURL, chat.Truncate(caption, maxBodyRunes))
}

func (m *Messenger) SendLocation(to string, loc chat.Location, name, address string) error {
	return m.sender.SendLocation(to, wa.LocationMessage{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Name:      name,
		Address:   address,
	})
}

func (m *Messenger) interactive(kind, body string, frame chat.Frame) wa.Interactive {
	msg := wa.Interactive{
		Type: kind,
		Body: wa.InteractiveText{Text: chat.Truncate(body, maxBodyRunes)},
	}
	if frame.Header != "" {
		msg.Header = &wa.InteractiveHeader{Type: "text", Text: chat.Truncate(frame.Header, maxHeaderRunes)}
	}
	if frame.Footer != "" {
		msg.Footer = &wa.InteractiveText{Text: chat.Truncate(frame.Footer, maxFooterRunes)}
	}
	return msg
}

// Handler feeds inbound WhatsApp messages to the engine, replying through this messenger.
type Handler struct {
	engine    *chat.Engine
	messenger *Messenger
}

func NewHandler(engine *chat.Engine, messenger *Messenger) *Handler {
	return &Handler{engine: engine, messenger: messenger}
}

func (h *Handler) HandleMessage(ctx context.Context, in chat.IncomingMessage) error {
	return h.engine.HandleMessage(ctx, h.messenger, in)
}
