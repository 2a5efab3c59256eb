package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
)

// CloudClient sends messages through the WhatsApp Business Cloud API.
type CloudClient struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	http          *http.Client
	log           *zap.Logger
}

type CloudConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string // e.g. https://graph.facebook.com
	APIVersion    string // e.g. v18.0
	HTTPClient    *http.Client
}

func NewCloudClient(cfg CloudConfig, log *zap.Logger) *CloudClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &CloudClient{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIVersion, "/"),
		http:          httpClient,
		log:           log.Named("whatsapp_cloud"),
	}
}

// Configured reports whether credentials are present.
func (w *CloudClient) Configured() bool {
	return w.accessToken != "" && w.phoneNumberID != ""
}

type cloudResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (w *CloudClient) post(ctx context.Context, payload map[string]any) (string, error) {
	if !w.Configured() {
		return "", fmt.Errorf("whatsapp cloud api: %w", entities.ErrNotConfigured)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out cloudResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		w.log.Warn("cloud api rejected message", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return "", fmt.Errorf("whatsapp api error (%d): %s", resp.StatusCode, msg)
	}

	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

func (w *CloudClient) SendText(ctx context.Context, to, body string, opts entities.SendOptions) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"preview_url": opts.PreviewURL,
			"body":        body,
		},
	}
	if opts.ReplyTo != "" {
		payload["context"] = map[string]string{"message_id": opts.ReplyTo}
	}
	return w.post(ctx, payload)
}

func (w *CloudClient) SendButtons(ctx context.Context, to, body string, buttons []entities.Button) (string, error) {
	if err := ValidateButtons(buttons); err != nil {
		return "", err
	}
	replies := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, map[string]any{
			"type":  "reply",
			"reply": map[string]string{"id": b.ID, "title": b.Title},
		})
	}
	return w.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]string{"text": body},
			"action": map[string]any{"buttons": replies},
		},
	})
}

func (w *CloudClient) SendList(ctx context.Context, to, body, buttonText string, sections []entities.ListSection) (string, error) {
	if len(sections) == 0 {
		return "", fmt.Errorf("%w: list needs at least one section", entities.ErrInvalid)
	}
	return w.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "list",
			"body": map[string]string{"text": body},
			"action": map[string]any{
				"button":   buttonText,
				"sections": sections,
			},
		},
	})
}

func (w *CloudClient) MarkAsRead(ctx context.Context, messageID string) error {
	_, err := w.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	})
	return err
}

const (
	MaxButtons        = 3
	MaxButtonTitleLen = 20
)

// ValidateButtons enforces the Cloud API limits on reply buttons.
func ValidateButtons(buttons []entities.Button) error {
	if len(buttons) == 0 || len(buttons) > MaxButtons {
		return fmt.Errorf("%w: between 1 and %d buttons required", entities.ErrInvalid, MaxButtons)
	}
	for _, b := range buttons {
		if b.ID == "" || b.Title == "" {
			return fmt.Errorf("%w: button id and title are required", entities.ErrInvalid)
		}
		if len([]rune(b.Title)) > MaxButtonTitleLen {
			return fmt.Errorf("%w: button title %q exceeds %d characters", entities.ErrInvalid, b.Title, MaxButtonTitleLen)
		}
	}
	return nil
}
