package repository

import (
	"whatsbot/internal/infrastructure"
	"whatsbot/internal/interfaces"
)

// NewPostgresStore wires every repository onto one pool.
func NewPostgresStore(pg *infrastructure.PostgresClient) *interfaces.Store {
	db := pg.Pool
	return &interfaces.Store{
		Clients:       NewClientRepository(db),
		Members:       NewMemberRepository(db),
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Templates:     NewTemplateRepository(db),
		Flows:         NewFlowRepository(db),
		Settings:      NewSettingRepository(db),
		Analytics:     NewAnalyticsRepository(db),
		Audit:         NewAuditRepository(db),
		Users:         NewUserRepository(db),
		Migrator:      pg,
	}
}
