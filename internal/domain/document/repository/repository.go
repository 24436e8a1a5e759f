// Package repository persists confirmed documents. Rows are keyed by the
// extraction result id, so a retried confirmation lands on the same row
// instead of duplicating it.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
)

// Confirmed is one stored row: the extraction result plus its confirmation
// bookkeeping.
type Confirmed struct {
	Result      *document.ExtractionResult `json:"result"`
	UserID      uuid.UUID                  `json:"user_id"`
	Actions     []document.Action          `json:"actions"`
	Paid        bool                       `json:"paid"`
	ConfirmedAt time.Time                  `json:"confirmed_at"`
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// SaveConfirmed upserts one confirmed document. mark_paid among the actions
// also flips the paid flag, which is what the action means.
func (r *Repository) SaveConfirmed(ctx context.Context, doc *document.CommittedDocument) error {
	fields, err := json.Marshal(doc.Result.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	actions := make([]string, 0, len(doc.Actions))
	paid := false
	for _, a := range doc.Actions {
		actions = append(actions, string(a))
		if a == document.ActionMarkPaid {
			paid = true
		}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO documents (
			id, user_id, document_type, fields, confidence,
			source_text, actions, paid, confirmed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			fields = EXCLUDED.fields,
			actions = EXCLUDED.actions,
			paid = EXCLUDED.paid,
			confirmed_at = EXCLUDED.confirmed_at`,
		doc.Result.ID, doc.UserID, string(doc.Result.Type), fields, doc.Result.Confidence,
		doc.Result.SourceText, actions, paid, doc.ConfirmedAt, doc.Result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get returns one confirmed document, or nil when the id is unknown or
// belongs to someone else.
func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (*Confirmed, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, document_type, fields, confidence,
		       source_text, actions, paid, confirmed_at, created_at
		FROM documents
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	doc, err := scanConfirmed(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// List returns a user's confirmed documents, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Confirmed, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, document_type, fields, confidence,
		       source_text, actions, paid, confirmed_at, created_at
		FROM documents
		WHERE user_id = $1
		ORDER BY confirmed_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Confirmed
	for rows.Next() {
		doc, err := scanConfirmed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// AllConfirmed pages through every user's confirmed documents, oldest first.
// The search index is rebuilt from these pages at startup.
func (r *Repository) AllConfirmed(ctx context.Context, limit, offset int) ([]Confirmed, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, document_type, fields, confidence,
		       source_text, actions, paid, confirmed_at, created_at
		FROM documents
		ORDER BY confirmed_at ASC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Confirmed
	for rows.Next() {
		doc, err := scanConfirmed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfirmed(row rowScanner) (*Confirmed, error) {
	var (
		res      document.ExtractionResult
		doc      Confirmed
		docType  string
		rawField []byte
		actions  []string
	)
	err := row.Scan(&res.ID, &doc.UserID, &docType, &rawField, &res.Confidence,
		&res.SourceText, &actions, &doc.Paid, &doc.ConfirmedAt, &res.CreatedAt)
	if err != nil {
		return nil, err
	}

	res.Type = document.Type(docType)
	res.Fields = document.Fields{}
	if len(rawField) > 0 {
		if err := json.Unmarshal(rawField, &res.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	doc.Actions = make([]document.Action, 0, len(actions))
	for _, a := range actions {
		doc.Actions = append(doc.Actions, document.Action(a))
	}
	doc.Result = &res
	return &doc, nil
}
