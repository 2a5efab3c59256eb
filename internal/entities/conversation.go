package entities

import "time"

type ConversationStatus string

const (
	ConversationActive       ConversationStatus = "active"
	ConversationResolved     ConversationStatus = "resolved"
	ConversationPendingHuman ConversationStatus = "pending_human"
)

func (s ConversationStatus) Valid() bool {
	return s == ConversationActive || s == ConversationResolved || s == ConversationPendingHuman
}

// Open reports whether the bot or an operator is still handling the conversation.
func (s ConversationStatus) Open() bool {
	return s == ConversationActive || s == ConversationPendingHuman
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

type Conversation struct {
	ID        string             `json:"id"`
	ClientID  string             `json:"clientId"`
	MemberID  *string            `json:"memberId,omitempty"`
	Phone     string             `json:"phone"`
	Status    ConversationStatus `json:"status"`
	Sentiment *Sentiment         `json:"sentiment,omitempty"`
	Summary   *string            `json:"summary,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`

	Member   *Member   `json:"member,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// ConversationSummary is the list view: the conversation with its member,
// newest message and message count.
type ConversationSummary struct {
	Conversation
	LastMessage  *Message `json:"lastMessage,omitempty"`
	MessageCount int      `json:"messageCount"`
}

type ConversationFilter struct {
	ClientID string
	Status   ConversationStatus
	Phone    string
	Limit    int
}
