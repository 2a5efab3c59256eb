package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `c.id, c.client_id, c.member_id, c.phone, c.status, c.sentiment, c.summary,
	c.created_at, c.updated_at`

func scanConversation(row pgx.Row, extra ...any) (*entities.Conversation, error) {
	var c entities.Conversation
	dest := append([]any{&c.ID, &c.ClientID, &c.MemberID, &c.Phone, &c.Status, &c.Sentiment,
		&c.Summary, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *ConversationRepository) List(ctx context.Context, f entities.ConversationFilter) ([]entities.ConversationSummary, error) {
	var w whereBuilder
	if f.ClientID != "" {
		w.add("c.client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		w.add("c.status = ?", f.Status)
	}
	if f.Phone != "" {
		w.add("c.phone LIKE ?", containsPattern(f.Phone))
	}

	query := "SELECT " + conversationColumns + `,
			m.id, m.name, m.phone, m.status,
			lm.id, lm.direction, lm.type, lm.content, lm.status, lm.is_from_bot, lm.created_at,
			(SELECT COUNT(*) FROM messages x WHERE x.conversation_id = c.id)
		FROM conversations c
		LEFT JOIN members m ON m.id = c.member_id
		LEFT JOIN LATERAL (
			SELECT id, direction, type, content, status, is_from_bot, created_at
			FROM messages WHERE conversation_id = c.id
			ORDER BY created_at DESC LIMIT 1
		) lm ON TRUE` + w.String() + " ORDER BY c.updated_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []entities.ConversationSummary{}
	for rows.Next() {
		var (
			memberID, memberName, memberPhone, memberStatus          *string
			lastID, lastDirection, lastType, lastContent, lastStatus *string
			lastFromBot                                              *bool
			lastAt                                                   *time.Time
			count                                                    int
		)
		c, err := scanConversation(rows,
			&memberID, &memberName, &memberPhone, &memberStatus,
			&lastID, &lastDirection, &lastType, &lastContent, &lastStatus, &lastFromBot, &lastAt,
			&count)
		if err != nil {
			return nil, err
		}

		s := entities.ConversationSummary{Conversation: *c, MessageCount: count}
		if memberID != nil {
			s.Member = &entities.Member{
				ID:       *memberID,
				ClientID: c.ClientID,
				Name:     deref(memberName),
				Phone:    deref(memberPhone),
				Status:   entities.MemberStatus(deref(memberStatus)),
			}
		}
		if lastID != nil {
			s.LastMessage = &entities.Message{
				ID:             *lastID,
				ClientID:       c.ClientID,
				ConversationID: c.ID,
				Direction:      entities.Direction(deref(lastDirection)),
				Type:           deref(lastType),
				Content:        deref(lastContent),
				Status:         entities.MessageStatus(deref(lastStatus)),
				IsFromBot:      lastFromBot != nil && *lastFromBot,
			}
			if lastAt != nil {
				s.LastMessage.CreatedAt = *lastAt
			}
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*entities.Conversation, error) {
	return scanConversation(r.db.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations c WHERE c.id = $1", id))
}

// FindOpen returns the newest active or pending_human conversation.
func (r *ConversationRepository) FindOpen(ctx context.Context, clientID, phone string) (*entities.Conversation, error) {
	return scanConversation(r.db.QueryRow(ctx, "SELECT "+conversationColumns+` FROM conversations c
		WHERE c.client_id = $1 AND c.phone = $2 AND c.status IN ('active', 'pending_human')
		ORDER BY c.created_at DESC LIMIT 1`, clientID, phone))
}

func (r *ConversationRepository) Create(ctx context.Context, c *entities.Conversation) error {
	if c.ID == "" {
		c.ID = newID()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.Exec(ctx, `
		INSERT INTO conversations (id, client_id, member_id, phone, status, sentiment, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.ClientID, c.MemberID, c.Phone, c.Status, c.Sentiment, c.Summary, c.CreatedAt, c.UpdatedAt)
	return mapError(err)
}

func (r *ConversationRepository) Update(ctx context.Context, c *entities.Conversation) error {
	c.UpdatedAt = time.Now()
	return affected(r.db.Exec(ctx, `
		UPDATE conversations SET member_id = $2, status = $3, sentiment = $4, summary = $5, updated_at = $6
		WHERE id = $1`,
		c.ID, c.MemberID, c.Status, c.Sentiment, c.Summary, c.UpdatedAt))
}

func (r *ConversationRepository) Touch(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "UPDATE conversations SET updated_at = NOW() WHERE id = $1", id))
}

func (r *ConversationRepository) CountByStatus(ctx context.Context, clientID string, status entities.ConversationStatus) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM conversations WHERE client_id = $1 AND status = $2", clientID, status).Scan(&n)
	return n, mapError(err)
}

func (r *ConversationRepository) ResolveIdle(ctx context.Context, before time.Time) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		WITH resolved AS (
			UPDATE conversations SET status = 'resolved', updated_at = NOW()
			WHERE status = 'active' AND updated_at < $1
			RETURNING client_id
		)
		SELECT client_id, COUNT(*) FROM resolved GROUP BY client_id`, before)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var clientID string
		var n int
		if err := rows.Scan(&clientID, &n); err != nil {
			return nil, mapError(err)
		}
		out[clientID] = n
	}
	return out, mapError(rows.Err())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
