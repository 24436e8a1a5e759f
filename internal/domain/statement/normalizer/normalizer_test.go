package normalizer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

type stubCategorizer struct{ m map[string]string }

func (s stubCategorizer) Suggest(desc string) (string, bool) {
	c, ok := s.m[desc]
	return c, ok
}

func TestNormalize(t *testing.T) {
	n := New(stubCategorizer{m: map[string]string{"UBER TRIP": "transporte"}}, nil)

	rows := []statement.RawRow{
		{DateText: "05/04/2024", Description: "PIX RECEBIDO MARIA", AmountText: "1.500,00", Marker: "C", BalanceText: "2.700,00"},
		{DateText: "06/04/2024", Description: "UBER TRIP", AmountText: "23,50", Marker: "D"},
		{DateText: "07/04/2024", Description: "TED ENVIADA", AmountText: "-300,00"},
	}

	txs, warnings := n.Normalize(rows, Context{})
	require.Len(t, txs, 3)
	assert.Empty(t, warnings)

	assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, statement.DirectionCredit, txs[0].Direction)
	assert.Equal(t, int64(150000), txs[0].Amount.Amount())
	require.NotNil(t, txs[0].Balance)
	assert.Equal(t, int64(270000), txs[0].Balance.Amount())

	assert.Equal(t, statement.DirectionDebit, txs[1].Direction)
	assert.Equal(t, int64(-2350), txs[1].Amount.Amount(), "debits come out signed")
	assert.Equal(t, "transporte", txs[1].Category)

	assert.Equal(t, statement.DirectionDebit, txs[2].Direction)
	assert.Equal(t, int64(-30000), txs[2].Amount.Amount())
	assert.Equal(t, statement.CategoryUncategorized, txs[2].Category)
}

func TestNormalizeDropsUnreadableRows(t *testing.T) {
	n := New(nil, nil)

	rows := []statement.RawRow{
		{DateText: "05/04/2024", Description: "OK", AmountText: "10,00"},
		{DateText: "sem data", Description: "bad date", AmountText: "10,00"},
		{DateText: "06/04/2024", Description: "bad amount", AmountText: "n/a"},
		{DateText: "07/04/2024", Description: "zero is noise", AmountText: "0,00"},
	}

	txs, warnings := n.Normalize(rows, Context{})
	assert.Len(t, txs, 1)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "1 rows dropped: unreadable date")
	assert.Contains(t, warnings[1], "2 rows dropped: unreadable amount")
}

func TestNormalizeSortsAscending(t *testing.T) {
	n := New(nil, nil)

	rows := []statement.RawRow{
		{DateText: "30/04/2024", Description: "C", AmountText: "3,00"},
		{DateText: "15/04/2024", Description: "B", AmountText: "2,00"},
		{DateText: "01/04/2024", Description: "A", AmountText: "1,00"},
	}

	txs, _ := n.Normalize(rows, Context{})
	require.Len(t, txs, 3)
	assert.Equal(t, "A", txs[0].Description)
	assert.Equal(t, "C", txs[2].Description)
}

func TestInferDirection(t *testing.T) {
	pos := decimal.NewFromInt(10)
	neg := decimal.NewFromInt(-10)

	t.Run("marker wins over everything", func(t *testing.T) {
		assert.Equal(t, statement.DirectionCredit, inferDirection("C", neg, "COMPRA"))
		assert.Equal(t, statement.DirectionDebit, inferDirection("(D)", pos, "RECEBIDO"))
		assert.Equal(t, statement.DirectionCredit, inferDirection("+", pos, ""))
		assert.Equal(t, statement.DirectionDebit, inferDirection("-", pos, ""))
	})

	t.Run("sign beats keywords", func(t *testing.T) {
		assert.Equal(t, statement.DirectionDebit, inferDirection("", neg, "PIX RECEBIDO"))
	})

	t.Run("keywords decide unsigned rows", func(t *testing.T) {
		assert.Equal(t, statement.DirectionCredit, inferDirection("", pos, "DEPOSITO EM CONTA"))
		assert.Equal(t, statement.DirectionCredit, inferDirection("", pos, "Salário Abril"))
		assert.Equal(t, statement.DirectionDebit, inferDirection("", pos, "COMPRA CARTAO"))
	})

	t.Run("unsigned unknown row defaults to debit", func(t *testing.T) {
		assert.Equal(t, statement.DirectionDebit, inferDirection("", pos, "XPTO"))
	})
}

func TestParseRowDate(t *testing.T) {
	t.Run("full layouts", func(t *testing.T) {
		for _, text := range []string{"05/04/2024", "05/04/24", "05.04.2024", "05-04-2024", "2024-04-05"} {
			got, ok := parseRowDate(text, Context{})
			require.True(t, ok, text)
			assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), got, text)
		}
	})

	t.Run("short date takes the reference year", func(t *testing.T) {
		got, ok := parseRowDate("05/04", Context{ReferenceYear: 2024})
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("december line on a january statement wraps back a year", func(t *testing.T) {
		nctx := Context{
			ReferenceYear: 2025,
			PeriodEnd:     time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		}
		got, ok := parseRowDate("28/12", nctx)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.December, 28, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("month first order", func(t *testing.T) {
		got, ok := parseRowDate("04/05/2024", Context{DateOrder: MonthFirst})
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("garbage", func(t *testing.T) {
		_, ok := parseRowDate("hoje", Context{})
		assert.False(t, ok)
		_, ok = parseRowDate("", Context{})
		assert.False(t, ok)
	})
}

func TestParseBalance(t *testing.T) {
	b := parseBalance("1.234,56 C")
	require.NotNil(t, b)
	assert.Equal(t, int64(123456), b.Amount())

	b = parseBalance("500,00 D")
	require.NotNil(t, b)
	assert.Equal(t, int64(-50000), b.Amount())

	assert.Nil(t, parseBalance(""))
	assert.Nil(t, parseBalance("saldo"))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "PIX RECEBIDO MARIA", cleanDescription("  PIX   RECEBIDO\tMARIA "))

	long := strings.Repeat("à", 300)
	got := cleanDescription(long)
	assert.Equal(t, 200, len([]rune(got)))
}

func TestFillRunningBalances(t *testing.T) {
	txs := []statement.Transaction{
		{Amount: money.New(5000, money.BRL)},
		{Amount: money.New(-3000, money.BRL)},
		// This line prints its own balance, off by one cent from the
		// computed value; the printed one wins and reseeds the run.
		{Amount: money.New(-1000, money.BRL), Balance: money.New(10999, money.BRL)},
		{Amount: money.New(2000, money.BRL)},
	}

	FillRunningBalances(txs, money.New(10000, money.BRL))

	require.NotNil(t, txs[0].Balance)
	assert.Equal(t, int64(15000), txs[0].Balance.Amount())
	assert.Equal(t, int64(12000), txs[1].Balance.Amount())
	assert.Equal(t, int64(10999), txs[2].Balance.Amount())
	assert.Equal(t, int64(12999), txs[3].Balance.Amount())
}

func TestFillRunningBalancesNoOpening(t *testing.T) {
	txs := []statement.Transaction{{Amount: money.New(5000, money.BRL)}}
	FillRunningBalances(txs, nil)
	assert.Nil(t, txs[0].Balance)
}
