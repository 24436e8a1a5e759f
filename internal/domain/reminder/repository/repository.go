// Package repository persists reminder rows. The sweep queries by due date
// over the partial index on unsent rows, so the table can grow without the
// daily scan feeling it.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Schedule inserts one queued reminder. A zero ID or CreatedAt is filled in
// here so callers can hand over bare requests.
func (r *Repository) Schedule(ctx context.Context, rem *reminder.Reminder) error {
	if rem.ID == uuid.Nil {
		rem.ID = uuid.New()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now().UTC()
	}

	var docID *uuid.UUID
	if rem.DocumentID != uuid.Nil {
		docID = &rem.DocumentID
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO reminders (id, user_id, document_id, payee, amount_cents, due_date, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rem.ID, rem.UserID, docID, rem.Payee, nullCents(rem.Amount),
		rem.DueDate, rem.Email, rem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// DueOn returns every unsent reminder due on or before the given day. Rows a
// failed sweep left behind come back again until they are marked sent.
func (r *Repository) DueOn(ctx context.Context, day time.Time) ([]reminder.Reminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, document_id, payee, amount_cents, due_date, email, sent_at, created_at
		FROM reminders
		WHERE due_date <= $1 AND sent_at IS NULL
		ORDER BY due_date, created_at`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		var (
			rem   reminder.Reminder
			docID *uuid.UUID
			cents *int64
		)
		if err := rows.Scan(&rem.ID, &rem.UserID, &docID, &rem.Payee, &cents,
			&rem.DueDate, &rem.Email, &rem.SentAt, &rem.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if docID != nil {
			rem.DocumentID = *docID
		}
		if cents != nil {
			rem.Amount = money.New(*cents, money.BRL)
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

// MarkSent stamps a reminder so the next sweep skips it.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE reminders SET sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func nullCents(m *money.Money) *int64 {
	if m == nil {
		return nil
	}
	v := m.Amount()
	return &v
}
