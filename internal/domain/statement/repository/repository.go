// Package repository persists parsed statements, the per-account transaction
// registry that backs cross-import deduplication, and the learned CSV layout
// table.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Layout is a remembered CSV header shape: once a user has imported a file
// with these headers, the mapping and the bank it belonged to are reusable.
type Layout struct {
	Fingerprint string            `json:"fingerprint"`
	Bank        string            `json:"bank"`
	Mapping     map[string]string `json:"mapping"`
	UseCount    int               `json:"use_count"`
	LastUsedAt  time.Time         `json:"last_used_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

// SaveStatement stores the statement header and its transactions in one
// transaction. Lines already in the registry are skipped by the dedup index;
// the returned count says how many were actually new.
func (r *Repository) SaveStatement(ctx context.Context, st *statement.Statement) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	warnings := st.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO statements (
			id, user_id, bank, bank_id, branch, account,
			holder_name, holder_document, period_start, period_end,
			opening_cents, closing_cents, source, strategy, warnings, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		st.ID, st.UserID, st.Bank, st.BankID, st.Branch, st.Account,
		st.HolderName, st.HolderDocument, nullDate(st.PeriodStart), nullDate(st.PeriodEnd),
		nullCents(st.OpeningBalance), nullCents(st.ClosingBalance),
		string(st.Source), st.Strategy, warnings, st.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert statement: %w", err)
	}

	inserted := 0
	for i := range st.Transactions {
		t := &st.Transactions[i]
		category := t.Category
		if category == "" {
			category = statement.CategoryUncategorized
		}
		var cents int64
		if t.Amount != nil {
			cents = t.Amount.Amount()
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO statement_transactions (
				statement_id, user_id, account, posted_at, description,
				amount_cents, direction, balance_cents, category, fingerprint
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (user_id, account, fingerprint) DO NOTHING`,
			st.ID, st.UserID, st.Account, t.Date, t.Description,
			cents, string(t.Direction), nullCents(t.Balance), category, t.Fingerprint(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert transaction: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// KnownFingerprints reports which of the given fingerprints are already in
// the user's registry for this account.
func (r *Repository) KnownFingerprints(ctx context.Context, userID uuid.UUID, account string, fingerprints []string) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(fingerprints))
	if len(fingerprints) == 0 {
		return known, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT fingerprint FROM statement_transactions
		WHERE user_id = $1 AND account = $2 AND fingerprint = ANY($3)`,
		userID, account, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("known fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		known[fp] = struct{}{}
	}
	return known, rows.Err()
}

// GetStatement loads one statement with its transactions. Returns nil when
// the id does not exist for the user.
func (r *Repository) GetStatement(ctx context.Context, userID, id uuid.UUID) (*statement.Statement, error) {
	var (
		st                     statement.Statement
		periodStart, periodEnd *time.Time
		opening, closing       *int64
		source                 string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, bank, bank_id, branch, account,
		       holder_name, holder_document, period_start, period_end,
		       opening_cents, closing_cents, source, strategy, warnings, created_at
		FROM statements WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(
		&st.ID, &st.UserID, &st.Bank, &st.BankID, &st.Branch, &st.Account,
		&st.HolderName, &st.HolderDocument, &periodStart, &periodEnd,
		&opening, &closing, &source, &st.Strategy, &st.Warnings, &st.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get statement: %w", err)
	}
	st.Source = statement.Source(source)
	if periodStart != nil {
		st.PeriodStart = *periodStart
	}
	if periodEnd != nil {
		st.PeriodEnd = *periodEnd
	}
	if opening != nil {
		st.OpeningBalance = money.New(*opening, money.BRL)
	}
	if closing != nil {
		st.ClosingBalance = money.New(*closing, money.BRL)
	}

	txs, err := r.transactionsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	st.Transactions = txs
	return &st, nil
}

func (r *Repository) transactionsFor(ctx context.Context, statementID uuid.UUID) ([]statement.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT posted_at, description, amount_cents, direction, balance_cents, category
		FROM statement_transactions
		WHERE statement_id = $1
		ORDER BY posted_at, created_at`,
		statementID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []statement.Transaction
	for rows.Next() {
		var (
			t         statement.Transaction
			cents     int64
			balance   *int64
			direction string
		)
		if err := rows.Scan(&t.Date, &t.Description, &cents, &direction, &balance, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = money.New(cents, money.BRL)
		t.Direction = statement.Direction(direction)
		if balance != nil {
			t.Balance = money.New(*balance, money.BRL)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ListStatements returns statement headers, newest first, without their
// transactions.
func (r *Repository) ListStatements(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*statement.Statement, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, bank, bank_id, branch, account,
		       holder_name, holder_document, period_start, period_end,
		       opening_cents, closing_cents, source, strategy, warnings, created_at
		FROM statements
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	defer rows.Close()

	var out []*statement.Statement
	for rows.Next() {
		var (
			st                     statement.Statement
			periodStart, periodEnd *time.Time
			opening, closing       *int64
			source                 string
		)
		if err := rows.Scan(
			&st.ID, &st.UserID, &st.Bank, &st.BankID, &st.Branch, &st.Account,
			&st.HolderName, &st.HolderDocument, &periodStart, &periodEnd,
			&opening, &closing, &source, &st.Strategy, &st.Warnings, &st.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		st.Source = statement.Source(source)
		if periodStart != nil {
			st.PeriodStart = *periodStart
		}
		if periodEnd != nil {
			st.PeriodEnd = *periodEnd
		}
		if opening != nil {
			st.OpeningBalance = money.New(*opening, money.BRL)
		}
		if closing != nil {
			st.ClosingBalance = money.New(*closing, money.BRL)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// TouchLayout upserts a layout and bumps its use counter. A known bank is
// never overwritten by a later import that could not identify one.
func (r *Repository) TouchLayout(ctx context.Context, l *Layout) error {
	if l.Mapping == nil {
		l.Mapping = map[string]string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO statement_layouts (fingerprint, bank, mapping, use_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (fingerprint) DO UPDATE SET
			bank = CASE WHEN EXCLUDED.bank <> '' THEN EXCLUDED.bank
			            ELSE statement_layouts.bank END,
			mapping = EXCLUDED.mapping,
			use_count = statement_layouts.use_count + 1,
			last_used_at = now()`,
		l.Fingerprint, l.Bank, l.Mapping)
	if err != nil {
		return fmt.Errorf("touch layout: %w", err)
	}
	return nil
}

// LookupLayout fetches a remembered layout, or nil when the fingerprint has
// never been seen.
func (r *Repository) LookupLayout(ctx context.Context, fingerprint string) (*Layout, error) {
	var l Layout
	err := r.db.QueryRow(ctx, `
		SELECT fingerprint, bank, mapping, use_count, last_used_at, created_at
		FROM statement_layouts WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&l.Fingerprint, &l.Bank, &l.Mapping, &l.UseCount, &l.LastUsedAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup layout: %w", err)
	}
	return &l, nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullCents(m *money.Money) *int64 {
	if m == nil {
		return nil
	}
	v := m.Amount()
	return &v
}
