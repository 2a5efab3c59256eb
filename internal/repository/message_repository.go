package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, client_id, conversation_id, direction, type, content, COALESCE(media_url, ''),
	status, is_from_bot, COALESCE(wa_message_id, ''), metadata, created_at`

func scanMessages(rows pgx.Rows) ([]entities.Message, error) {
	defer rows.Close()
	out := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ClientID, &m.ConversationID, &m.Direction, &m.Type, &m.Content,
			&m.MediaURL, &m.Status, &m.IsFromBot, &m.WAMessageID, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, m)
	}
	return out, mapError(rows.Err())
}

func (r *MessageRepository) Create(ctx context.Context, m *entities.Message) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, client_id, conversation_id, direction, type, content, media_url, status,
			is_from_bot, wa_message_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.ClientID, m.ConversationID, m.Direction, m.Type, m.Content, nullIfEmpty(m.MediaURL),
		m.Status, m.IsFromBot, nullIfEmpty(m.WAMessageID), m.Metadata, m.CreatedAt)
	return mapError(err)
}

func (r *MessageRepository) List(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, "SELECT "+messageColumns+` FROM messages
		WHERE conversation_id = $1 ORDER BY created_at ASC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return scanMessages(rows)
}

func (r *MessageRepository) Recent(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, "SELECT "+messageColumns+` FROM (
			SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return scanMessages(rows)
}

func (r *MessageRepository) CountSince(ctx context.Context, clientID string, direction entities.Direction, since time.Time) (int, error) {
	var n int
	var err error
	if direction == "" {
		err = r.db.QueryRow(ctx,
			"SELECT COUNT(*) FROM messages WHERE client_id = $1 AND created_at >= $2", clientID, since).Scan(&n)
	} else {
		err = r.db.QueryRow(ctx,
			"SELECT COUNT(*) FROM messages WHERE client_id = $1 AND direction = $2 AND created_at >= $3",
			clientID, direction, since).Scan(&n)
	}
	return n, mapError(err)
}

func (r *MessageRepository) UpdateStatusByWAID(ctx context.Context, waMessageID string, status entities.MessageStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET status = $2
		WHERE wa_message_id = $1 AND (status IS NULL OR status = ANY($3))`,
		waMessageID, status, entities.StatusesBefore(status))
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	// Nothing moved: either the message is unknown or the receipt is stale.
	var exists bool
	if err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM messages WHERE wa_message_id = $1)", waMessageID).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return entities.ErrNotFound
	}
	return nil
}
