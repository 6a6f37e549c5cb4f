package principals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
)

// ErrDuplicateEmail indicates the email is already registered.
var ErrDuplicateEmail = errors.New("principals: duplicate email")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all principals.
func (r *Repository) List(ctx context.Context) ([]Principal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, email, name, is_active, created_at, updated_at FROM principals ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var principals []Principal
	for rows.Next() {
		var p Principal
		var kind string
		if err := rows.Scan(&p.ID, &kind, &p.Email, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Kind = accesscontrol.PrincipalKind(kind)
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

// Get fetches a principal by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Principal, error) {
	var p Principal
	var kind string
	err := r.pool.QueryRow(ctx,
		`SELECT id, kind, email, name, is_active, created_at, updated_at FROM principals WHERE id = $1`, id,
	).Scan(&p.ID, &kind, &p.Email, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, accesscontrol.ErrPrincipalNotFound
		}
		return Principal{}, err
	}
	p.Kind = accesscontrol.PrincipalKind(kind)
	return p, nil
}

// Create inserts a principal account.
func (r *Repository) Create(ctx context.Context, kind accesscontrol.PrincipalKind, email, name, passwordHash string) (Principal, error) {
	var p Principal
	var kindOut string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO principals (kind, email, name, password_hash, is_active) VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, kind, email, name, is_active, created_at, updated_at`,
		string(kind), email, name, passwordHash,
	).Scan(&p.ID, &kindOut, &p.Email, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Principal{}, ErrDuplicateEmail
		}
		return Principal{}, err
	}
	p.Kind = accesscontrol.PrincipalKind(kindOut)
	return p, nil
}

// SetActive flips the active flag. Deactivation takes effect on the next
// permission resolution; no separate session invalidation happens here.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE principals SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return accesscontrol.ErrPrincipalNotFound
	}
	return nil
}
