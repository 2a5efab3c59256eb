package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type ClientRepository struct {
	db *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, name, slug, niche, COALESCE(phone, ''), COALESCE(email, ''),
	COALESCE(address, ''), COALESCE(logo, ''), is_active, plan, created_at, updated_at`

func scanClient(row pgx.Row) (*entities.Client, error) {
	var c entities.Client
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Niche, &c.Phone, &c.Email,
		&c.Address, &c.Logo, &c.IsActive, &c.Plan, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*entities.Client, error) {
	return scanClient(r.db.QueryRow(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id))
}

// FindByPhone matches on digits only so "+55 11 9..." and "55119..." agree.
func (r *ClientRepository) FindByPhone(ctx context.Context, phone string) (*entities.Client, error) {
	return scanClient(r.db.QueryRow(ctx, "SELECT "+clientColumns+` FROM clients
		WHERE phone IS NOT NULL AND regexp_replace(phone, '\D', '', 'g') = regexp_replace($1, '\D', '', 'g')
		ORDER BY created_at LIMIT 1`, phone))
}

func (r *ClientRepository) First(ctx context.Context) (*entities.Client, error) {
	return scanClient(r.db.QueryRow(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at LIMIT 1"))
}

func (r *ClientRepository) List(ctx context.Context) ([]entities.Client, error) {
	rows, err := r.db.Query(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var clients []entities.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, mapError(rows.Err())
}

func (r *ClientRepository) Create(ctx context.Context, c *entities.Client) error {
	if c.ID == "" {
		c.ID = newID()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.Exec(ctx, `
		INSERT INTO clients (id, name, slug, niche, phone, email, address, logo, is_active, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Name, c.Slug, c.Niche, nullIfEmpty(c.Phone), nullIfEmpty(c.Email),
		nullIfEmpty(c.Address), nullIfEmpty(c.Logo), c.IsActive, c.Plan, c.CreatedAt, c.UpdatedAt)
	return mapError(err)
}

func (r *ClientRepository) Update(ctx context.Context, c *entities.Client) error {
	c.UpdatedAt = time.Now()
	return affected(r.db.Exec(ctx, `
		UPDATE clients SET name = $2, slug = $3, niche = $4, phone = $5, email = $6, address = $7,
			logo = $8, is_active = $9, plan = $10, updated_at = $11
		WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Niche, nullIfEmpty(c.Phone), nullIfEmpty(c.Email),
		nullIfEmpty(c.Address), nullIfEmpty(c.Logo), c.IsActive, c.Plan, c.UpdatedAt))
}
