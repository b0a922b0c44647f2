package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"Panikkar/bot/chat"
	"Panikkar/internal/lib/sl"
)

const (
	defaultAPIURL  = "https://graph.facebook.com/v21.0"
	processTimeout = 30 * time.Second
	recentCapacity = 1024
)

// MessageHandler consumes normalized inbound messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in chat.IncomingMessage) error
}

// OutboundObserver counts outbound API calls.
type OutboundObserver interface {
	ObserveOutbound(kind, status string)
}

// WhatsAppBot handles WhatsApp messaging via the Graph API
type WhatsAppBot struct {
	log           *slog.Logger
	accessToken   string
	verifyToken   string
	appSecret     string
	phoneNumberID string
	apiURL        string
	client        *http.Client
	handler       MessageHandler
	observer      OutboundObserver
	senders       *chat.PhoneLocks
	recent        *recentIDs
	wg            sync.WaitGroup
}

// NewWhatsAppBot creates a new WhatsApp bot instance
func NewWhatsAppBot(accessToken, verifyToken, appSecret, phoneNumberID string, log *slog.Logger) *WhatsAppBot {
	return &WhatsAppBot{
		log:           log.With(sl.Module("whatsappbot")),
		accessToken:   accessToken,
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		phoneNumberID: phoneNumberID,
		apiURL:        defaultAPIURL,
		client:        &http.Client{Timeout: 20 * time.Second},
		senders:       chat.NewPhoneLocks(),
		recent:        newRecentIDs(recentCapacity),
	}
}

func (b *WhatsAppBot) SetAPIURL(url string) {
	if url != "" {
		b.apiURL = url
	}
}

func (b *WhatsAppBot) SetHTTPClient(client *http.Client) {
	b.client = client
}

func (b *WhatsAppBot) SetMessageHandler(handler MessageHandler) {
	b.handler = handler
}

func (b *WhatsAppBot) SetObserver(o OutboundObserver) {
	b.observer = o
}

// Wait blocks until all accepted webhook payloads are processed.
func (b *WhatsAppBot) Wait() {
	b.wg.Wait()
}

// HandleWebhookVerification handles the GET request for webhook verification
func (b *WhatsAppBot) HandleWebhookVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && b.verifyToken != "" && token == b.verifyToken {
		b.log.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	b.log.Warn("webhook verification failed",
		slog.String("mode", mode),
		slog.Bool("token_match", token == b.verifyToken),
	)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleWebhook handles incoming webhook POST requests
func (b *WhatsAppBot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		b.log.Error("failed to read request body", sl.Err(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if b.appSecret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !b.verifySignature(body, signature) {
			b.log.Warn("invalid webhook signature")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		b.log.Error("failed to parse webhook payload", sl.Err(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// acknowledge first; slow handling makes WhatsApp redeliver
	w.WriteHeader(http.StatusOK)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processPayload(payload)
	}()
}

func (b *WhatsAppBot) processPayload(payload WebhookPayload) {
	if payload.Object != "whatsapp_business_account" {
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, status := range change.Value.Statuses {
				if status.Status == "failed" {
					b.log.Warn("message delivery failed",
						slog.String("message_id", status.ID),
						slog.String("recipient_phone", status.RecipientID),
					)
				}
			}

			for _, message := range change.Value.Messages {
				in, ok := message.normalize(names[message.From])
				if !ok {
					b.log.Debug("unsupported message",
						slog.String("type", message.Type),
						slog.String("sender_phone", message.From),
					)
					continue
				}
				if !b.recent.add(in.ID) {
					b.log.Debug("duplicate message", slog.String("message_id", in.ID))
					continue
				}
				b.dispatch(in)
			}
		}
	}
}

// dispatch hands one message to the handler while holding the sender's lock.
func (b *WhatsAppBot) dispatch(in chat.IncomingMessage) {
	if b.handler == nil {
		b.log.Warn("no message handler", slog.String("sender_phone", in.From))
		return
	}

	unlock := b.senders.Lock(in.From)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	b.log.Debug("received message",
		slog.String("sender_phone", in.From),
		slog.String("type", string(in.Type)),
	)
	if err := b.handler.HandleMessage(ctx, in); err != nil {
		b.log.Error("failed to handle message",
			slog.String("sender_phone", in.From),
			slog.String("message_id", in.ID),
			sl.Err(err),
		)
	}
}

func (b *WhatsAppBot) observe(kind, status string) {
	if b.observer != nil {
		b.observer.ObserveOutbound(kind, status)
	}
}

// verifySignature verifies the X-Hub-Signature-256 header
func (b *WhatsAppBot) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	// Signature format: "sha256=<hex_signature>"
	if len(signature) < 8 || signature[:7] != "sha256=" {
		return false
	}

	expectedSig := signature[7:]
	mac := hmac.New(sha256.New, []byte(b.appSecret))
	mac.Write(body)
	actualSig := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSig), []byte(actualSig))
}
