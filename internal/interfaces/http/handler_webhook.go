package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
)

const businessAccountObject = "whatsapp_business_account"

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         webhookMetadata  `json:"metadata"`
	Contacts         []webhookContact `json:"contacts"`
	Messages         []webhookMessage `json:"messages"`
	Statuses         []webhookStatus  `json:"statuses"`
}

// webhookContact carries the sender's WhatsApp profile. The display name
// lives under profile, not at the top level.
type webhookContact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

type webhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type webhookMessage struct {
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
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// text returns the body for text messages and the chosen title for
// interactive replies.
func (m webhookMessage) text() string {
	switch {
	case m.Text != nil:
		return m.Text.Body
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		return m.Interactive.ButtonReply.Title
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		return m.Interactive.ListReply.Title
	}
	return ""
}

type webhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// VerifyWebhook answers Meta's subscription handshake.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.VerifyToken != "" && token == h.VerifyToken {
		h.log.Info("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	fail(c, http.StatusForbidden, "Verification failed")
}

func (h *Handler) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if h.AppSecret != "" && !validSignature(body, c.GetHeader("X-Hub-Signature-256"), h.AppSecret) {
		h.log.Warn("webhook signature mismatch", zap.String("ip", c.ClientIP()))
		fail(c, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if payload.Object != businessAccountObject {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			var contact *entities.Contact
			if len(v.Contacts) > 0 {
				contact = &entities.Contact{Name: v.Contacts[0].Profile.Name, WaID: v.Contacts[0].WaID}
			}
			for _, m := range v.Messages {
				h.Messages.HandleIncoming(ctx, entities.IncomingMessage{
					From:               m.From,
					MessageID:          m.ID,
					Timestamp:          m.Timestamp,
					Type:               m.Type,
					Text:               m.text(),
					Contact:            contact,
					DisplayPhoneNumber: v.Metadata.DisplayPhoneNumber,
					PhoneNumberID:      v.Metadata.PhoneNumberID,
				})
			}
			for _, st := range v.Statuses {
				h.Messages.ApplyStatus(ctx, st.ID, st.Status)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// validSignature checks header "sha256=<hex>" against the HMAC-SHA256 of body.
func validSignature(body []byte, header, secret string) bool {
	sig, found := strings.CutPrefix(header, "sha256=")
	if !found {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
