package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

// AnalyticsRepository keeps daily per-client counters.
type AnalyticsRepository struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Increment bumps one counter for the day, creating the row on first use.
func (r *AnalyticsRepository) Increment(ctx context.Context, clientID string, day time.Time, counter entities.Counter, by int) error {
	if !counter.Valid() {
		return fmt.Errorf("%w: counter %q", entities.ErrInvalid, counter)
	}
	col := string(counter)
	_, err := r.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO analytics (id, client_id, date, %[1]s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, date)
		DO UPDATE SET %[1]s = analytics.%[1]s + EXCLUDED.%[1]s`, col),
		newID(), clientID, entities.DayStart(day), by)
	return mapError(err)
}

func (r *AnalyticsRepository) List(ctx context.Context, clientID string, since time.Time) ([]entities.Analytics, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, date, messages_in, messages_out, new_members, resolved, pending_human
		FROM analytics WHERE client_id = $1 AND date >= $2
		ORDER BY date DESC`, clientID, entities.DayStart(since))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []entities.Analytics{}
	for rows.Next() {
		var a entities.Analytics
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Date, &a.MessagesIn, &a.MessagesOut,
			&a.NewMembers, &a.Resolved, &a.PendingHuman); err != nil {
			return nil, mapError(err)
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err())
}

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, a *entities.AuditLog) error {
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = time.Now()
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, client_id, action, entity, entity_id, details, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, nullIfEmpty(a.ClientID), a.Action, a.Entity, nullIfEmpty(a.EntityID), a.Details,
		nullIfEmpty(a.IP), nullIfEmpty(a.UserAgent), a.CreatedAt)
	return mapError(err)
}

func (r *AuditRepository) List(ctx context.Context, clientID string, limit int) ([]entities.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(client_id, ''), action, entity, COALESCE(entity_id, ''), details,
			COALESCE(ip, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs WHERE client_id = $1
		ORDER BY created_at DESC LIMIT $2`, clientID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []entities.AuditLog{}
	for rows.Next() {
		var a entities.AuditLog
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Action, &a.Entity, &a.EntityID, &a.Details,
			&a.IP, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err())
}
