package interfaces

import (
	"context"
	"time"

	"whatsbot/internal/entities"
)

// CompletionRequest is a single-turn chat completion: the conversation history
// travels inside the system prompt.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string
	Temperature  float32
	MaxTokens    int
}

type AIClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

// Messenger delivers outbound WhatsApp messages and returns the provider message id.
type Messenger interface {
	SendText(ctx context.Context, to, body string, opts entities.SendOptions) (string, error)
	SendButtons(ctx context.Context, to, body string, buttons []entities.Button) (string, error)
	SendList(ctx context.Context, to, body, buttonText string, sections []entities.ListSection) (string, error)
	MarkAsRead(ctx context.Context, messageID string) error
}

// MessengerResolver picks the messenger that speaks for a client.
type MessengerResolver interface {
	For(clientID string) Messenger
}

type HandoffAlert struct {
	ClientID       string
	ClientName     string
	ConversationID string
	Phone          string
	MemberName     string
	Text           string
}

type Notifier interface {
	NotifyHandoff(ctx context.Context, alert HandoffAlert) error
}

type ClientStore interface {
	Get(ctx context.Context, id string) (*entities.Client, error)
	FindByPhone(ctx context.Context, phone string) (*entities.Client, error)
	First(ctx context.Context) (*entities.Client, error)
	List(ctx context.Context) ([]entities.Client, error)
	Create(ctx context.Context, c *entities.Client) error
	Update(ctx context.Context, c *entities.Client) error
}

type MemberStore interface {
	List(ctx context.Context, f entities.MemberFilter) ([]entities.Member, error)
	Get(ctx context.Context, id string) (*entities.Member, error)
	FindByPhone(ctx context.Context, clientID, phone string) (*entities.Member, error)
	Create(ctx context.Context, m *entities.Member) error
	Update(ctx context.Context, m *entities.Member) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, clientID string) (int, error)
}

type ConversationStore interface {
	List(ctx context.Context, f entities.ConversationFilter) ([]entities.ConversationSummary, error)
	Get(ctx context.Context, id string) (*entities.Conversation, error)
	FindOpen(ctx context.Context, clientID, phone string) (*entities.Conversation, error)
	Create(ctx context.Context, c *entities.Conversation) error
	Update(ctx context.Context, c *entities.Conversation) error
	Touch(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, clientID string, status entities.ConversationStatus) (int, error)
	// ResolveIdle resolves active conversations untouched since before and
	// returns how many were resolved per client.
	ResolveIdle(ctx context.Context, before time.Time) (map[string]int, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *entities.Message) error
	// List returns up to limit messages of a conversation, oldest first.
	List(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
	// Recent returns the newest limit messages, oldest first.
	Recent(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
	CountSince(ctx context.Context, clientID string, direction entities.Direction, since time.Time) (int, error)
	UpdateStatusByWAID(ctx context.Context, waMessageID string, status entities.MessageStatus) error
}

type TemplateStore interface {
	List(ctx context.Context, f entities.TemplateFilter) ([]entities.Template, error)
	Get(ctx context.Context, id string) (*entities.Template, error)
	Create(ctx context.Context, t *entities.Template) error
	Update(ctx context.Context, t *entities.Template) error
	Delete(ctx context.Context, id string) error
	IncrementUse(ctx context.Context, id string) error
	ListNiche(ctx context.Context, niche entities.Niche) ([]entities.NicheTemplate, error)
	UpsertNiche(ctx context.Context, t *entities.NicheTemplate) error
}

type FlowStore interface {
	List(ctx context.Context, clientID string) ([]entities.Flow, error)
	Get(ctx context.Context, id string) (*entities.Flow, error)
	Create(ctx context.Context, f *entities.Flow) error
	Update(ctx context.Context, f *entities.Flow) error
	Delete(ctx context.Context, id string) error
	IncrementUse(ctx context.Context, id string) error
}

type SettingStore interface {
	All(ctx context.Context, clientID string) (map[string]string, error)
	Upsert(ctx context.Context, clientID, key, value string) error
}

type AnalyticsStore interface {
	Increment(ctx context.Context, clientID string, day time.Time, counter entities.Counter, by int) error
	List(ctx context.Context, clientID string, since time.Time) ([]entities.Analytics, error)
}

type AuditStore interface {
	Create(ctx context.Context, a *entities.AuditLog) error
	List(ctx context.Context, clientID string, limit int) ([]entities.AuditLog, error)
}

type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	List(ctx context.Context) ([]entities.User, error)
	Create(ctx context.Context, u *entities.User) error
	Delete(ctx context.Context, id string) error
}

// Migrator brings the schema up to date.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Store bundles every repository the application needs.
type Store struct {
	Clients       ClientStore
	Members       MemberStore
	Conversations ConversationStore
	Messages      MessageStore
	Templates     TemplateStore
	Flows         FlowStore
	Settings      SettingStore
	Analytics     AnalyticsStore
	Audit         AuditStore
	Users         UserStore
	Migrator      Migrator
}
