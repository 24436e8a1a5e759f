package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

func sampleStatement() *statement.Statement {
	st := statement.New(statement.SourcePDF)
	st.UserID = uuid.New()
	st.Bank = "Nubank"
	st.BankID = "nubank"
	st.Branch = "0001"
	st.Account = "1234567-8"
	st.PeriodStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	st.PeriodEnd = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	st.OpeningBalance = money.New(100000, money.BRL)
	st.Strategy = "textlayer"
	st.Transactions = []statement.Transaction{
		{
			Date:        time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			Description: "PIX RECEBIDO MARIA",
			Amount:      money.New(150000, money.BRL),
			Direction:   statement.DirectionCredit,
			Category:    "transfers",
		},
		{
			Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Description: "COMPRA SUPERMERCADO",
			Amount:      money.New(-25000, money.BRL),
			Direction:   statement.DirectionDebit,
		},
	}
	return st
}

func TestRepository_SaveStatement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := sampleStatement()
	first, second := st.Transactions[0], st.Transactions[1]

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO statements`).
		WithArgs(st.ID, st.UserID, st.Bank, st.BankID, st.Branch, st.Account,
			st.HolderName, st.HolderDocument, &st.PeriodStart, &st.PeriodEnd,
			pgxmock.AnyArg(), (*int64)(nil), "pdf", st.Strategy, []string{}, st.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO statement_transactions`).
		WithArgs(st.ID, st.UserID, st.Account, first.Date, first.Description,
			int64(150000), "credit", (*int64)(nil), "transfers", first.Fingerprint()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// The second line is already in the registry: the dedup index swallows it.
	mock.ExpectExec(`INSERT INTO statement_transactions`).
		WithArgs(st.ID, st.UserID, st.Account, second.Date, second.Description,
			int64(-25000), "debit", (*int64)(nil), statement.CategoryUncategorized, second.Fingerprint()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	repo := New(mock)
	inserted, err := repo.SaveStatement(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted, "only the fresh line counts")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SaveStatement_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := sampleStatement()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO statements`).
		WithArgs(st.ID, st.UserID, st.Bank, st.BankID, st.Branch, st.Account,
			st.HolderName, st.HolderDocument, &st.PeriodStart, &st.PeriodEnd,
			pgxmock.AnyArg(), (*int64)(nil), "pdf", st.Strategy, []string{}, st.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO statement_transactions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := New(mock)
	_, err = repo.SaveStatement(context.Background(), st)
	require.ErrorContains(t, err, "insert transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_KnownFingerprints(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	asked := []string{"fp-1", "fp-2", "fp-3"}

	mock.ExpectQuery(`SELECT fingerprint FROM statement_transactions`).
		WithArgs(userID, "1234567-8", asked).
		WillReturnRows(pgxmock.NewRows([]string{"fingerprint"}).
			AddRow("fp-1").AddRow("fp-3"))

	repo := New(mock)
	known, err := repo.KnownFingerprints(context.Background(), userID, "1234567-8", asked)
	require.NoError(t, err)

	assert.Len(t, known, 2)
	assert.Contains(t, known, "fp-1")
	assert.Contains(t, known, "fp-3")
	assert.NotContains(t, known, "fp-2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_KnownFingerprints_EmptyInput(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	known, err := repo.KnownFingerprints(context.Background(), uuid.New(), "acc", nil)
	require.NoError(t, err)
	assert.Empty(t, known, "no fingerprints means no query at all")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetStatement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	id := uuid.New()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	opening := int64(100000)
	now := time.Now()

	mock.ExpectQuery(`FROM statements WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "bank", "bank_id", "branch", "account",
			"holder_name", "holder_document", "period_start", "period_end",
			"opening_cents", "closing_cents", "source", "strategy", "warnings", "created_at",
		}).AddRow(id, userID, "Nubank", "nubank", "0001", "1234567-8",
			"MARIA DA SILVA", "123.456.789-00", &start, &end,
			&opening, (*int64)(nil), "pdf", "textlayer", []string{"aviso"}, now))
	mock.ExpectQuery(`FROM statement_transactions`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"posted_at", "description", "amount_cents", "direction", "balance_cents", "category",
		}).AddRow(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), "PIX RECEBIDO MARIA",
			int64(150000), "credit", &opening, "transfers"))

	repo := New(mock)
	st, err := repo.GetStatement(context.Background(), userID, id)
	require.NoError(t, err)
	require.NotNil(t, st)

	assert.Equal(t, "nubank", st.BankID)
	assert.Equal(t, start, st.PeriodStart)
	require.NotNil(t, st.OpeningBalance)
	assert.Equal(t, int64(100000), st.OpeningBalance.Amount())
	assert.Nil(t, st.ClosingBalance)
	assert.Equal(t, statement.SourcePDF, st.Source)
	assert.Equal(t, []string{"aviso"}, st.Warnings)

	require.Len(t, st.Transactions, 1)
	assert.Equal(t, int64(150000), st.Transactions[0].Amount.Amount())
	assert.Equal(t, statement.DirectionCredit, st.Transactions[0].Direction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetStatement_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM statements`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	repo := New(mock)
	st, err := repo.GetStatement(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, st, "an unknown id is not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListStatements(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`FROM statements`).
		WithArgs(userID, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "bank", "bank_id", "branch", "account",
			"holder_name", "holder_document", "period_start", "period_end",
			"opening_cents", "closing_cents", "source", "strategy", "warnings", "created_at",
		}).AddRow(uuid.New(), userID, "Nubank", "nubank", "", "",
			"", "", (*time.Time)(nil), (*time.Time)(nil),
			(*int64)(nil), (*int64)(nil), "csv", "csv", []string{}, now).
			AddRow(uuid.New(), userID, "Itaú", "itau", "0017", "12345-6",
				"", "", (*time.Time)(nil), (*time.Time)(nil),
				(*int64)(nil), (*int64)(nil), "ofx", "ofx", []string{}, now.Add(-time.Hour)))

	repo := New(mock)
	list, err := repo.ListStatements(context.Background(), userID, 0, 0)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "nubank", list[0].BankID)
	assert.True(t, list[0].PeriodStart.IsZero())
	assert.Nil(t, list[0].OpeningBalance)
	assert.Equal(t, "itau", list[1].BankID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_TouchLayout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO statement_layouts`).
		WithArgs("fp-abc", "nubank", map[string]string{"0": "Data", "1": "Valor"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := New(mock)
	err = repo.TouchLayout(context.Background(), &Layout{
		Fingerprint: "fp-abc",
		Bank:        "nubank",
		Mapping:     map[string]string{"0": "Data", "1": "Valor"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LookupLayout(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		mock.ExpectQuery(`FROM statement_layouts`).
			WithArgs("fp-abc").
			WillReturnRows(pgxmock.NewRows([]string{
				"fingerprint", "bank", "mapping", "use_count", "last_used_at", "created_at",
			}).AddRow("fp-abc", "nubank", map[string]string{"0": "Data"}, 3, now, now))

		repo := New(mock)
		layout, err := repo.LookupLayout(context.Background(), "fp-abc")
		require.NoError(t, err)
		require.NotNil(t, layout)
		assert.Equal(t, "nubank", layout.Bank)
		assert.Equal(t, 3, layout.UseCount)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("never seen", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM statement_layouts`).
			WithArgs("fp-nova").
			WillReturnError(pgx.ErrNoRows)

		repo := New(mock)
		layout, err := repo.LookupLayout(context.Background(), "fp-nova")
		require.NoError(t, err)
		assert.Nil(t, layout)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
