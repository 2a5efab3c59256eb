package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type TemplateRepository struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, client_id, name, category, content, variables, is_active, use_count, created_at, updated_at`

func scanTemplate(row pgx.Row) (*entities.Template, error) {
	var t entities.Template
	if err := row.Scan(&t.ID, &t.ClientID, &t.Name, &t.Category, &t.Content, &t.Variables,
		&t.IsActive, &t.UseCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context, f entities.TemplateFilter) ([]entities.Template, error) {
	var w whereBuilder
	if f.ClientID != "" {
		w.add("client_id = ?", f.ClientID)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	rows, err := r.db.Query(ctx, "SELECT "+templateColumns+" FROM templates"+w.String()+
		" ORDER BY is_active DESC, name ASC", w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []entities.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, mapError(rows.Err())
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (*entities.Template, error) {
	return scanTemplate(r.db.QueryRow(ctx, "SELECT "+templateColumns+" FROM templates WHERE id = $1", id))
}

func (r *TemplateRepository) Create(ctx context.Context, t *entities.Template) error {
	if t.ID == "" {
		t.ID = newID()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.db.Exec(ctx, `
		INSERT INTO templates (id, client_id, name, category, content, variables, is_active, use_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.ClientID, t.Name, t.Category, t.Content, t.Variables, t.IsActive, t.UseCount, t.CreatedAt, t.UpdatedAt)
	return mapError(err)
}

func (r *TemplateRepository) Update(ctx context.Context, t *entities.Template) error {
	t.UpdatedAt = time.Now()
	return affected(r.db.Exec(ctx, `
		UPDATE templates SET name = $2, category = $3, content = $4, variables = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		t.ID, t.Name, t.Category, t.Content, t.Variables, t.IsActive, t.UpdatedAt))
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "DELETE FROM templates WHERE id = $1", id))
}

func (r *TemplateRepository) IncrementUse(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "UPDATE templates SET use_count = use_count + 1 WHERE id = $1", id))
}

func (r *TemplateRepository) ListNiche(ctx context.Context, niche entities.Niche) ([]entities.NicheTemplate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, niche, name, category, content, variables, is_default, created_at, updated_at
		FROM niche_templates WHERE niche = $1 ORDER BY name ASC`, niche)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []entities.NicheTemplate{}
	for rows.Next() {
		var t entities.NicheTemplate
		if err := rows.Scan(&t.ID, &t.Niche, &t.Name, &t.Category, &t.Content, &t.Variables,
			&t.IsDefault, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err())
}

// UpsertNiche inserts a stock template, refreshing content if (niche, name) exists.
func (r *TemplateRepository) UpsertNiche(ctx context.Context, t *entities.NicheTemplate) error {
	if t.ID == "" {
		t.ID = newID()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO niche_templates (id, niche, name, category, content, variables, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (niche, name)
		DO UPDATE SET category = EXCLUDED.category, content = EXCLUDED.content,
			variables = EXCLUDED.variables, is_default = EXCLUDED.is_default, updated_at = NOW()`,
		t.ID, t.Niche, t.Name, t.Category, t.Content, t.Variables, t.IsDefault)
	return mapError(err)
}
