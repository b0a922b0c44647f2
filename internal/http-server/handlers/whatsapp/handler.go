package whatsapp

import (
	"log/slog"
	"net/http"

	"Panikkar/internal/lib/sl"
)

// Webhook is the Cloud API webhook receiver.
type Webhook interface {
	HandleWebhookVerification(w http.ResponseWriter, r *http.Request)
	HandleWebhook(w http.ResponseWriter, r *http.Request)
}

// WebhookVerify handles GET requests for webhook verification
func WebhookVerify(log *slog.Logger, bot Webhook) http.HandlerFunc {
	logger := log.With(sl.Module("whatsapp.webhook"))
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("webhook verification request")
		bot.HandleWebhookVerification(w, r)
	}
}

// WebhookHandler handles POST requests for incoming messages
func WebhookHandler(log *slog.Logger, bot Webhook) http.HandlerFunc {
	logger := log.With(sl.Module("whatsapp.webhook"))
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("webhook message received")
		bot.HandleWebhook(w, r)
	}
}
