package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type FlowRepository struct {
	db *pgxpool.Pool
}

func NewFlowRepository(db *pgxpool.Pool) *FlowRepository {
	return &FlowRepository{db: db}
}

const flowColumns = `id, client_id, name, trigger, COALESCE(description, ''), steps, is_active, use_count, created_at, updated_at`

func scanFlow(row pgx.Row) (*entities.Flow, error) {
	var f entities.Flow
	if err := row.Scan(&f.ID, &f.ClientID, &f.Name, &f.Trigger, &f.Description, &f.Steps,
		&f.IsActive, &f.UseCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &f, nil
}

func (r *FlowRepository) List(ctx context.Context, clientID string) ([]entities.Flow, error) {
	rows, err := r.db.Query(ctx, "SELECT "+flowColumns+" FROM flows WHERE client_id = $1 ORDER BY created_at", clientID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []entities.Flow{}
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, mapError(rows.Err())
}

func (r *FlowRepository) Get(ctx context.Context, id string) (*entities.Flow, error) {
	return scanFlow(r.db.QueryRow(ctx, "SELECT "+flowColumns+" FROM flows WHERE id = $1", id))
}

func (r *FlowRepository) Create(ctx context.Context, f *entities.Flow) error {
	if f.ID == "" {
		f.ID = newID()
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	_, err := r.db.Exec(ctx, `
		INSERT INTO flows (id, client_id, name, trigger, description, steps, is_active, use_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID, f.ClientID, f.Name, f.Trigger, nullIfEmpty(f.Description), f.Steps, f.IsActive, f.UseCount,
		f.CreatedAt, f.UpdatedAt)
	return mapError(err)
}

func (r *FlowRepository) Update(ctx context.Context, f *entities.Flow) error {
	f.UpdatedAt = time.Now()
	return affected(r.db.Exec(ctx, `
		UPDATE flows SET name = $2, trigger = $3, description = $4, steps = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		f.ID, f.Name, f.Trigger, nullIfEmpty(f.Description), f.Steps, f.IsActive, f.UpdatedAt))
}

func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "DELETE FROM flows WHERE id = $1", id))
}

func (r *FlowRepository) IncrementUse(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "UPDATE flows SET use_count = use_count + 1 WHERE id = $1", id))
}
