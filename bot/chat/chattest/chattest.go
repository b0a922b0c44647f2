// Package chattest drives flows through a real engine with an in-memory
// session store and a recording messenger.
package chattest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"Panikkar/bot/chat"
)

// Sent is one outbound message captured by Messenger.
type Sent struct {
	Kind     string
	To       string
	Body     string
	Buttons  []chat.Button
	Sections []chat.Section
	Link     string
}

// ErrSend is returned for messages matching Messenger.FailOn.
var ErrSend = errors.New("graph api 503")

// Messenger records every outbound call.
type Messenger struct {
	mu   sync.Mutex
	sent []Sent
	// FailOn makes sends whose body contains it fail with ErrSend; they are not recorded.
	FailOn string
}

func (m *Messenger) record(s Sent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn != "" && strings.Contains(s.Body, m.FailOn) {
		return ErrSend
	}
	m.sent = append(m.sent, s)
	return nil
}

func (m *Messenger) SendText(to, body string) error {
	return m.record(Sent{Kind: "text", To: to, Body: body})
}

func (m *Messenger) SendButtons(to, body string, buttons []chat.Button, _ chat.Frame) error {
	return m.record(Sent{Kind: "buttons", To: to, Body: body, Buttons: buttons})
}

func (m *Messenger) SendList(to, body, _ string, sections []chat.Section, _ chat.Frame) error {
	return m.record(Sent{Kind: "list", To: to, Body: body, Sections: sections})
}

func (m *Messenger) SendImage(to, mediaURL, caption string) error {
	return m.record(Sent{Kind: "image", To: to, Body: caption, Link: mediaURL})
}

func (m *Messenger) SendLocation(to string, _ chat.Location, name, _ string) error {
	return m.record(Sent{Kind: "location", To: to, Body: name})
}

// All returns a copy of everything sent so far.
func (m *Messenger) All() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}

// Last returns the most recent message, or a zero Sent.
func (m *Messenger) Last() Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Sent{}
	}
	return m.sent[len(m.sent)-1]
}

// Saw reports whether any message body contains fragment.
func (m *Messenger) Saw(fragment string) bool {
	for _, s := range m.All() {
		if strings.Contains(s.Body, fragment) {
			return true
		}
	}
	return false
}

// Options flattens the ids offered by a buttons or list message.
func (s Sent) Options() []string {
	var ids []string
	for _, b := range s.Buttons {
		ids = append(ids, b.ID)
	}
	for _, sec := range s.Sections {
		for _, r := range sec.Rows {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Conversation is one phone number talking to an engine.
type Conversation struct {
	t         testing.TB
	Phone     string
	Engine    *chat.Engine
	Storage   *chat.MemoryStorage
	Messenger *Messenger
}

// New registers flows on a fresh engine. The first flow is the default.
func New(t testing.TB, flows ...chat.Flow) *Conversation {
	t.Helper()
	c := &Conversation{
		t:         t,
		Phone:     "+919876543210",
		Storage:   chat.NewMemoryStorage(),
		Messenger: &Messenger{},
	}
	c.Engine = chat.NewEngine(c.Storage, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, f := range flows {
		require.NoError(t, c.Engine.RegisterFlow(f))
	}
	if len(flows) > 0 {
		require.NoError(t, c.Engine.SetDefaultFlow(flows[0].ID()))
	}
	return c
}

func (c *Conversation) send(in chat.IncomingMessage) {
	c.t.Helper()
	require.NoError(c.t, c.Deliver(in))
}

// Deliver hands a message to the engine and returns its error.
func (c *Conversation) Deliver(in chat.IncomingMessage) error {
	in.From = c.Phone
	return c.Engine.HandleMessage(context.Background(), c.Messenger, in)
}

func (c *Conversation) Text(body string) {
	c.t.Helper()
	c.send(chat.IncomingMessage{Type: chat.MessageText, Text: body})
}

// Press answers with a button or list selection id.
func (c *Conversation) Press(id string) {
	c.t.Helper()
	c.send(chat.IncomingMessage{Type: chat.MessageButtonReply, SelectionID: id})
}

func (c *Conversation) Image(mediaID, mimeType string) {
	c.t.Helper()
	c.send(chat.IncomingMessage{Type: chat.MessageImage, MediaID: mediaID, MimeType: mimeType})
}

func (c *Conversation) Location(lat, lng float64, name string) {
	c.t.Helper()
	c.send(chat.IncomingMessage{Type: chat.MessageLocation, Location: &chat.Location{Latitude: lat, Longitude: lng, Name: name}})
}

// Start begins a flow directly, as the main menu would.
func (c *Conversation) Start(id chat.FlowID) {
	c.t.Helper()
	s := c.Session()
	if s == nil {
		s = chat.NewSession(c.Phone)
	}
	require.NoError(c.t, c.Engine.Start(context.Background(), c.Messenger, s, id))
}

// Session returns the stored session, nil before the first message.
func (c *Conversation) Session() *chat.Session {
	c.t.Helper()
	s, err := c.Storage.Load(context.Background(), c.Phone)
	require.NoError(c.t, err)
	return s
}

// Timeout runs the idle-session reset as the sweeper would.
func (c *Conversation) Timeout() {
	c.t.Helper()
	s := c.Session()
	require.NotNil(c.t, s)
	require.NoError(c.t, c.Engine.HandleTimeout(context.Background(), c.Messenger, s))
}
