package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	user.CreatedAt = time.Now()
	_, err := r.db.Exec(ctx,
		"INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	return mapError(err)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRow(ctx,
		"SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.Query(ctx, "SELECT id, username, role, created_at FROM users ORDER BY created_at")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		users = append(users, u)
	}
	return users, mapError(rows.Err())
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id))
}
