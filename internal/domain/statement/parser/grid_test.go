package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

func TestGridRowsWithHeader(t *testing.T) {
	rows := [][]string{
		{"Data", "Histórico", "Débito", "Crédito", "Saldo"},
		{"05/04/2024", "PIX RECEBIDO MARIA", "", "1.500,00", "2.500,00"},
		{"06/04/2024", "TARIFA PACOTE", "35,90", "", "2.464,10"},
	}

	var res Result
	gridRows(rows, &res)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "05/04/2024", res.Rows[0].DateText)
	assert.Equal(t, "PIX RECEBIDO MARIA", res.Rows[0].Description)
	assert.Equal(t, "1.500,00", res.Rows[0].AmountText)
	assert.Equal(t, "C", res.Rows[0].Marker)
	assert.Equal(t, "2.500,00", res.Rows[0].BalanceText)

	assert.Equal(t, "35,90", res.Rows[1].AmountText)
	assert.Equal(t, "D", res.Rows[1].Marker)
}

func TestGridRowsHeaderAfterTitleRows(t *testing.T) {
	rows := [][]string{
		{"Extrato de Conta Corrente", "", ""},
		{"Data", "Lançamento", "Valor"},
		{"05/04/2024", "PIX ENVIADO JOAO", "-100,00"},
	}

	var res Result
	gridRows(rows, &res)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "PIX ENVIADO JOAO", res.Rows[0].Description)
	assert.Equal(t, "-100,00", res.Rows[0].AmountText)
	assert.Empty(t, res.Rows[0].Marker)
}

func TestGridRowsPositional(t *testing.T) {
	// No header at all: roles come from the cell shapes, with the last two
	// money columns read as amount and balance.
	rows := [][]string{
		{"05/04/2024", "PIX RECEBIDO MARIA", "1.500,00", "2.500,00"},
		{"06/04/2024", "COMPRA PADARIA", "-23,50", "2.476,50"},
	}

	var res Result
	gridRows(rows, &res)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "PIX RECEBIDO MARIA", res.Rows[0].Description)
	assert.Equal(t, "1.500,00", res.Rows[0].AmountText)
	assert.Equal(t, "2.500,00", res.Rows[0].BalanceText)
}

func TestGridRowsPositionalSingleMoneyColumn(t *testing.T) {
	rows := [][]string{
		{"05/04/2024", "UBER TRIP", "-23,50"},
	}

	var res Result
	gridRows(rows, &res)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "-23,50", res.Rows[0].AmountText)
	assert.Empty(t, res.Rows[0].BalanceText)
}

func TestGridRowsHarvestsBalanceRows(t *testing.T) {
	rows := [][]string{
		{"Data", "Descrição", "Valor"},
		{"", "SALDO ANTERIOR", "1.000,00"},
		{"05/04/2024", "PIX RECEBIDO", "50,00"},
		{"", "SALDO FINAL", "1.050,00"},
	}

	var res Result
	gridRows(rows, &res)

	require.Len(t, res.Rows, 1)
	require.NotNil(t, res.Opening)
	assert.Equal(t, int64(100000), res.Opening.Amount())
	require.NotNil(t, res.Closing)
	assert.Equal(t, int64(105000), res.Closing.Amount())
}

func TestGridRowsSkipsNonTransactionRows(t *testing.T) {
	rows := [][]string{
		{"Data", "Descrição", "Valor"},
		{"05/04/2024", "PIX", "50,00"},
		{"", "linha institucional sem data", ""},
		{"não é data", "outra", "1,00"},
	}

	var res Result
	gridRows(rows, &res)
	assert.Len(t, res.Rows, 1)
}

func TestGridRowsProseGridContributesNothing(t *testing.T) {
	rows := [][]string{
		{"Ouvidoria", "0800 570 0011"},
		{"Atendimento", "segunda a sexta"},
	}

	var res Result
	gridRows(rows, &res)
	assert.Empty(t, res.Rows)
}

func TestTableStrategy(t *testing.T) {
	t.Run("nil extractor is unavailable", func(t *testing.T) {
		s := &tableStrategy{}
		assert.Equal(t, "tables", s.Name())
		_, err := s.Extract(context.Background(), Input{})
		assert.ErrorIs(t, err, statement.ErrStrategyUnavailable)
	})

	t.Run("rows from every table feed one result", func(t *testing.T) {
		s := &tableStrategy{extractor: &fakeTables{
			name: "primary",
			tables: []Table{
				{Page: 1, Rows: [][]string{
					{"Data", "Descrição", "Valor"},
					{"05/04/2024", "PIX A", "10,00"},
				}},
				{Page: 2, Rows: [][]string{
					{"Data", "Descrição", "Valor"},
					{"06/04/2024", "PIX B", "20,00"},
				}},
			},
		}}

		assert.Equal(t, "tables/primary", s.Name())
		res, err := s.Extract(context.Background(), Input{})
		require.NoError(t, err)
		assert.Len(t, res.Rows, 2)
	})
}
