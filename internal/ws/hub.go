package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"Panikkar/bot/chat"
	"Panikkar/internal/lib/sl"
)

const (
	EventSessionChanged = "session_changed"
	EventSessionReset   = "session_reset"
)

// ClientMessageHandler handles incoming WebSocket messages from dashboard clients.
type ClientMessageHandler interface {
	HandleResetSession(ctx context.Context, username, phone string) error
}

// Event represents a WebSocket event sent to dashboard clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SessionView is the payload of session events.
type SessionView struct {
	Phone      string         `json:"phone"`
	Flow       chat.FlowID    `json:"flow"`
	Step       chat.StepID    `json:"step"`
	ReturnStep chat.StepID    `json:"return_step,omitempty"`
	TempData   map[string]any `json:"temp_data"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func viewOf(s chat.Session) SessionView {
	return SessionView{
		Phone:      s.Phone,
		Flow:       s.FlowType,
		Step:       s.CurrentStep,
		ReturnStep: s.ReturnStep,
		TempData:   s.TempData,
		UpdatedAt:  s.UpdatedAt,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	handler    ClientMessageHandler
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With(sl.Module("ws.hub")),
	}
}

func (h *Hub) SetHandler(handler ClientMessageHandler) {
	h.handler = handler
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("marshal event", slog.String("type", event.Type), sl.Err(err))
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// publish never blocks the caller; events are dropped when the buffer is full.
func (h *Hub) publish(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("event dropped", slog.String("type", event.Type))
	}
}

// SessionChanged pushes every saved session to connected dashboards.
func (h *Hub) SessionChanged(s chat.Session) {
	h.publish(&Event{Type: EventSessionChanged, Data: viewOf(s)})
}

// clientEvent represents an incoming WebSocket message from a dashboard client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(ctx context.Context, username string, raw []byte) {
	if h.handler == nil {
		return
	}

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	switch event.Type {
	case "reset_session":
		var data struct {
			Phone string `json:"phone"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			h.log.Warn("failed to parse reset_session data", sl.Err(err))
			return
		}
		if data.Phone == "" {
			return
		}
		if err := h.handler.HandleResetSession(ctx, username, data.Phone); err != nil {
			h.log.Error("failed to handle reset_session",
				slog.String("username", username),
				slog.String("phone", data.Phone),
				sl.Err(err),
			)
			return
		}
		h.publish(&Event{Type: EventSessionReset, Data: map[string]string{
			"phone":    data.Phone,
			"reset_by": username,
		}})
	default:
		h.log.Debug("unknown client event", slog.String("type", event.Type))
	}
}
