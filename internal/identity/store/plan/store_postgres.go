package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"imovan/internal/identity"
	"imovan/pkg/platform/sentinel"
)

// PostgresStore reads plans from the plans table.
//
// Expected schema:
//
//	CREATE TABLE plans (
//	    id         TEXT PRIMARY KEY,
//	    name       TEXT NOT NULL,
//	    user_type  TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (identity.Plan, error) {
	var p identity.Plan
	var userType string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_type, created_at FROM plans WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &userType, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Plan{}, sentinel.ErrNotFound
		}
		return identity.Plan{}, fmt.Errorf("find plan: %w", err)
	}
	p.UserType = identity.UserType(userType)
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]identity.Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_type, created_at FROM plans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []identity.Plan
	for rows.Next() {
		var p identity.Plan
		var userType string
		if err := rows.Scan(&p.ID, &p.Name, &userType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.UserType = identity.UserType(userType)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}
