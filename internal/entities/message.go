package entities

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
	MessageFailed    MessageStatus = "failed"
)

func (s MessageStatus) Valid() bool {
	return s == MessageSent || s == MessageDelivered || s == MessageRead || s == MessageFailed
}

var statusRank = map[MessageStatus]int{MessageSent: 1, MessageDelivered: 2, MessageRead: 3}

// CanAdvanceTo reports whether a message in status s may move to next.
// Receipts arrive out of order; a status never moves backwards and failed
// is final.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	switch {
	case !next.Valid(), s == MessageFailed:
		return false
	case next == MessageFailed:
		return s != MessageRead
	}
	return statusRank[next] > statusRank[s]
}

// StatusesBefore lists the stored statuses that may move to next. The empty
// status stands for messages stored without one.
func StatusesBefore(next MessageStatus) []string {
	var out []string
	for _, s := range []MessageStatus{"", MessageSent, MessageDelivered, MessageRead, MessageFailed} {
		if s.CanAdvanceTo(next) {
			out = append(out, string(s))
		}
	}
	return out
}

// Message is a stored chat message in either direction.
type Message struct {
	ID             string         `json:"id"`
	ClientID       string         `json:"clientId"`
	ConversationID string         `json:"conversationId"`
	Direction      Direction      `json:"direction"`
	Type           string         `json:"type"`
	Content        string         `json:"content"`
	MediaURL       string         `json:"mediaUrl,omitempty"`
	Status         MessageStatus  `json:"status"`
	IsFromBot      bool           `json:"isFromBot"`
	WAMessageID    string         `json:"waMessageId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Contact is the sender profile attached to a webhook delivery.
type Contact struct {
	Name string `json:"name,omitempty"`
	WaID string `json:"wa_id"`
}

// IncomingMessage is a message received from WhatsApp, either through the
// Cloud API webhook or a device session.
type IncomingMessage struct {
	ClientID           string // set by device sessions; empty for webhook deliveries
	From               string
	MessageID          string
	Timestamp          string
	Type               string
	Text               string
	Contact            *Contact
	DisplayPhoneNumber string
	PhoneNumberID      string
}

// Button is an interactive reply button.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// SendOptions tweaks an outbound text message.
type SendOptions struct {
	PreviewURL bool
	ReplyTo    string
}
