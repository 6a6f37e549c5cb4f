package agreements

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
	"github.com/leasecraft/leasecraft/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agreementColumns = `id, title, property_address, status, rent_amount_cents,
	customer_id, user_id, owner_id, created_by, created_at, updated_at`

func scanAgreement(row pgx.Row) (Agreement, error) {
	var a Agreement
	var status string
	err := row.Scan(&a.ID, &a.Title, &a.PropertyAddress, &status, &a.RentAmountCents,
		&a.CustomerID, &a.UserID, &a.OwnerID, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Agreement{}, err
	}
	a.Status = Status(status)
	return a, nil
}

// List returns agreements matching the scope filter, newest first. A
// match-none filter short-circuits to an empty result without hitting the
// database.
func (r *Repository) List(ctx context.Context, filter accesscontrol.Filter) ([]Agreement, error) {
	if filter.IsNone() {
		return []Agreement{}, nil
	}
	where, args := filter.SQL(1)
	query := fmt.Sprintf(`SELECT %s FROM agreements WHERE %s ORDER BY created_at DESC`, agreementColumns, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	agreements := []Agreement{}
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		agreements = append(agreements, a)
	}
	return agreements, rows.Err()
}

// Get fetches an agreement by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Agreement, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM agreements WHERE id = $1`, agreementColumns), id)
	a, err := scanAgreement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, shared.ErrNotFound
		}
		return Agreement{}, err
	}
	return a, nil
}

// Create inserts an agreement.
func (r *Repository) Create(ctx context.Context, a Agreement) (Agreement, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO agreements
			(title, property_address, status, rent_amount_cents, customer_id, user_id, owner_id, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING %s`, agreementColumns),
		a.Title, a.PropertyAddress, string(a.Status), a.RentAmountCents,
		a.CustomerID, a.UserID, a.OwnerID, a.CreatedBy)
	return scanAgreement(row)
}

// Update rewrites the mutable fields of an agreement.
func (r *Repository) Update(ctx context.Context, a Agreement) (Agreement, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE agreements SET title = $2, property_address = $3, status = $4,
			rent_amount_cents = $5, updated_at = NOW() WHERE id = $1 RETURNING %s`, agreementColumns),
		a.ID, a.Title, a.PropertyAddress, string(a.Status), a.RentAmountCents)
	updated, err := scanAgreement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, shared.ErrNotFound
		}
		return Agreement{}, err
	}
	return updated, nil
}

// Delete removes an agreement.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agreements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
