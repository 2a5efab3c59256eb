package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsbot/internal/entities"
)

type MemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, client_id, name, phone, COALESCE(email, ''), COALESCE(cpf, ''),
	COALESCE(membership_id, ''), COALESCE(category, ''), status, join_date, COALESCE(notes, ''),
	metadata, created_at, updated_at`

func scanMember(row pgx.Row) (*entities.Member, error) {
	var m entities.Member
	err := row.Scan(&m.ID, &m.ClientID, &m.Name, &m.Phone, &m.Email, &m.CPF,
		&m.MembershipID, &m.Category, &m.Status, &m.JoinDate, &m.Notes,
		&m.Metadata, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// whereBuilder accumulates AND-ed predicates with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern matches s literally anywhere in a LIKE/ILIKE operand.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *MemberRepository) List(ctx context.Context, f entities.MemberFilter) ([]entities.Member, error) {
	var w whereBuilder
	if f.ClientID != "" {
		w.add("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if len(f.IDs) > 0 {
		w.add("id = ANY(?)", f.IDs)
	}
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		w.add("(name ILIKE ? OR phone LIKE ? OR email ILIKE ?)", pattern, pattern, pattern)
	}

	query := "SELECT " + memberColumns + " FROM members" + w.String() + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	members := []entities.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, mapError(rows.Err())
}

func (r *MemberRepository) Get(ctx context.Context, id string) (*entities.Member, error) {
	return scanMember(r.db.QueryRow(ctx, "SELECT "+memberColumns+" FROM members WHERE id = $1", id))
}

func (r *MemberRepository) FindByPhone(ctx context.Context, clientID, phone string) (*entities.Member, error) {
	return scanMember(r.db.QueryRow(ctx,
		"SELECT "+memberColumns+" FROM members WHERE client_id = $1 AND phone = $2", clientID, phone))
}

func (r *MemberRepository) Create(ctx context.Context, m *entities.Member) error {
	if m.ID == "" {
		m.ID = newID()
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := r.db.Exec(ctx, `
		INSERT INTO members (id, client_id, name, phone, email, cpf, membership_id, category, status,
			join_date, notes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID, m.ClientID, m.Name, m.Phone, nullIfEmpty(m.Email), nullIfEmpty(m.CPF),
		nullIfEmpty(m.MembershipID), nullIfEmpty(m.Category), m.Status, m.JoinDate,
		nullIfEmpty(m.Notes), m.Metadata, m.CreatedAt, m.UpdatedAt)
	return mapError(err)
}

func (r *MemberRepository) Update(ctx context.Context, m *entities.Member) error {
	m.UpdatedAt = time.Now()
	return affected(r.db.Exec(ctx, `
		UPDATE members SET name = $2, phone = $3, email = $4, cpf = $5, membership_id = $6,
			category = $7, status = $8, join_date = $9, notes = $10, metadata = $11, updated_at = $12
		WHERE id = $1`,
		m.ID, m.Name, m.Phone, nullIfEmpty(m.Email), nullIfEmpty(m.CPF), nullIfEmpty(m.MembershipID),
		nullIfEmpty(m.Category), m.Status, m.JoinDate, nullIfEmpty(m.Notes), m.Metadata, m.UpdatedAt))
}

func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.Exec(ctx, "DELETE FROM members WHERE id = $1", id))
}

func (r *MemberRepository) Count(ctx context.Context, clientID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM members WHERE client_id = $1", clientID).Scan(&n)
	return n, mapError(err)
}
