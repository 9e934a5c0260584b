package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"imovan/internal/identity"
	"imovan/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore persists profiles in the user_profiles table.
//
// Expected schema:
//
//	CREATE TABLE user_profiles (
//	    id            UUID PRIMARY KEY,
//	    email         TEXT NOT NULL UNIQUE,
//	    first_name    TEXT NOT NULL,
//	    last_name     TEXT NOT NULL DEFAULT '',
//	    user_type     TEXT NOT NULL,
//	    plan_id       TEXT NOT NULL DEFAULT '',
//	    verified      BOOLEAN NOT NULL DEFAULT FALSE,
//	    password_hash TEXT NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u identity.User) error {
	query := `
		INSERT INTO user_profiles (id, email, first_name, last_name, user_type, plan_id, verified, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, normalizeEmail(u.Email), u.FirstName, u.LastName,
		string(u.UserType), u.PlanID, u.Verified, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

const selectColumns = `id, email, first_name, last_name, user_type, plan_id, verified, password_hash, created_at`

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM user_profiles WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM user_profiles WHERE email = $1`, normalizeEmail(email))
	return scanUser(row)
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, upd identity.ProfileUpdate) (identity.User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if upd.FirstName != nil {
		args = append(args, *upd.FirstName)
		sets = append(sets, fmt.Sprintf("first_name = $%d", len(args)))
	}
	if upd.LastName != nil {
		args = append(args, *upd.LastName)
		sets = append(sets, fmt.Sprintf("last_name = $%d", len(args)))
	}
	if upd.PlanID != nil {
		args = append(args, *upd.PlanID)
		sets = append(sets, fmt.Sprintf("plan_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		return s.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE user_profiles SET %s WHERE id = $%d RETURNING `+selectColumns,
		strings.Join(sets, ", "), len(args),
	)
	return scanUser(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) UpdatePlan(ctx context.Context, id uuid.UUID, planID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_profiles SET plan_id = $1 WHERE id = $2`, planID, id)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (identity.User, error) {
	var u identity.User
	var userType string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&userType, &u.PlanID, &u.Verified, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.User{}, sentinel.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("scan profile: %w", err)
	}
	u.UserType = identity.UserType(userType)
	return u, nil
}
