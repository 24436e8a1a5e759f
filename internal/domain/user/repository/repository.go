// Package repository persists accounts in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
)

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Create inserts a new account. The caller supplies the already-hashed token.
func (r *Repository) Create(ctx context.Context, u *user.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, display_name, token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.DisplayName, u.TokenHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail looks an account up by its unique e-mail address.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, `
		SELECT id, email, display_name, token_hash, created_at, updated_at
		FROM users
		WHERE email = $1`, email))
}

// GetByID looks an account up by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, `
		SELECT id, email, display_name, token_hash, created_at, updated_at
		FROM users
		WHERE id = $1`, id))
}

// EmailFor resolves the notification address for an account. It satisfies
// the reminder service's directory contract.
func (r *Repository) EmailFor(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// UpdateToken replaces the stored token hash, invalidating the old token.
func (r *Repository) UpdateToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET token_hash = $2, updated_at = $3 WHERE id = $1`,
		id, tokenHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.TokenHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
