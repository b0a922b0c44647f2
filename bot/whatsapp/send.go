package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const maxMediaSize = 16 << 20

// Interactive is the body of an interactive (buttons or list) message.
type Interactive struct {
	Type   string             `json:"type"`
	Header *InteractiveHeader `json:"header,omitempty"`
	Body   InteractiveText    `json:"body"`
	Footer *InteractiveText   `json:"footer,omitempty"`
	Action InteractiveAction  `json:"action"`
}

type InteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type InteractiveText struct {
	Text string `json:"text"`
}

type InteractiveAction struct {
	Button   string        `json:"button,omitempty"`
	Buttons  []ReplyButton `json:"buttons,omitempty"`
	Sections []ListSection `json:"sections,omitempty"`
}

type ReplyButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type LocationMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// NewReplyButton builds a reply button entry.
func NewReplyButton(id, title string) ReplyButton {
	b := ReplyButton{Type: "reply"}
	b.Reply.ID = id
	b.Reply.Title = title
	return b
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textBody        `json:"text,omitempty"`
	Interactive      *Interactive     `json:"interactive,omitempty"`
	Image            *imageBody       `json:"image,omitempty"`
	Location         *LocationMessage `json:"location,omitempty"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type imageBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

func newRequest(to, kind string) SendMessageRequest {
	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(to, "+"),
		Type:             kind,
	}
}

// SendMessage sends a text message to the specified recipient
func (b *WhatsAppBot) SendMessage(recipientPhone, text string) error {
	req := newRequest(recipientPhone, "text")
	req.Text = &textBody{Body: text}
	return b.send(context.Background(), req)
}

// SendInteractive sends a reply-buttons or list message.
func (b *WhatsAppBot) SendInteractive(recipientPhone string, msg Interactive) error {
	req := newRequest(recipientPhone, "interactive")
	req.Interactive = &msg
	return b.send(context.Background(), req)
}

// SendImage sends an image by public link.
func (b *WhatsAppBot) SendImage(recipientPhone, link, caption string) error {
	req := newRequest(recipientPhone, "image")
	req.Image = &imageBody{Link: link, Caption: caption}
	return b.send(context.Background(), req)
}

func (b *WhatsAppBot) SendLocation(recipientPhone string, loc LocationMessage) error {
	req := newRequest(recipientPhone, "location")
	req.Location = &loc
	return b.send(context.Background(), req)
}

func (b *WhatsAppBot) send(ctx context.Context, reqBody SendMessageRequest) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", b.apiURL, b.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.accessToken)

	resp, err := b.client.Do(req)
	if err != nil {
		b.observe(reqBody.Type, "error")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.observe(reqBody.Type, "error")
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	b.observe(reqBody.Type, "ok")
	b.log.Debug("message sent",
		slog.String("recipient_phone", reqBody.To),
		slog.String("type", reqBody.Type),
	)
	return nil
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// MediaURL resolves a media id into a short-lived download URL.
func (b *WhatsAppBot) MediaURL(ctx context.Context, mediaID string) (string, string, error) {
	body, err := b.get(ctx, fmt.Sprintf("%s/%s", b.apiURL, mediaID))
	if err != nil {
		return "", "", fmt.Errorf("resolving media %s: %w", mediaID, err)
	}
	var info mediaInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", "", fmt.Errorf("decoding media info: %w", err)
	}
	if info.URL == "" {
		return "", "", fmt.Errorf("media %s has no url", mediaID)
	}
	return info.URL, info.MimeType, nil
}

// DownloadMedia fetches the bytes of an inbound image or document.
func (b *WhatsAppBot) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	url, mimeType, err := b.MediaURL(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}
	data, err := b.get(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("downloading media %s: %w", mediaID, err)
	}
	return data, mimeType, nil
}

func (b *WhatsAppBot) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.accessToken)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxMediaSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxMediaSize)
	}
	return data, nil
}
