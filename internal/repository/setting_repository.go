package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingRepository stores per-client bot settings as key/value rows.
type SettingRepository struct {
	db *pgxpool.Pool
}

func NewSettingRepository(db *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) All(ctx context.Context, clientID string) (map[string]string, error) {
	rows, err := r.db.Query(ctx, "SELECT key, value FROM settings WHERE client_id = $1", clientID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, mapError(err)
		}
		out[k] = v
	}
	return out, mapError(rows.Err())
}

func (r *SettingRepository) Upsert(ctx context.Context, clientID, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (id, client_id, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		newID(), clientID, key, value)
	return mapError(err)
}
