package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

func TestParseCSVKnownHeaders(t *testing.T) {
	// Inter-style export: metadata lines, then semicolon-separated columns
	// with Portuguese names.
	data := []byte("Extrato Conta Corrente\n" +
		"Conta: 123456-7\n" +
		"\n" +
		"Data Lançamento;Histórico;Valor;Saldo\n" +
		"05/04/2024;Pix recebido - Maria;1.500,00;2.500,00\n" +
		"06/04/2024;Compra no débito - Padaria;-23,50;2.476,50\n")

	res, meta, err := ParseCSV(data)
	require.NoError(t, err)

	assert.Equal(t, ';', int32(meta.Delimiter))
	assert.NotEmpty(t, meta.Fingerprint)
	require.NotNil(t, meta.Dialect)
	assert.True(t, meta.Dialect.DayFirst)
	assert.True(t, meta.Dialect.EuropeanAmounts)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "05/04/2024", res.Rows[0].DateText)
	assert.Equal(t, "Pix recebido - Maria", res.Rows[0].Description)
	assert.Equal(t, "1.500,00", res.Rows[0].AmountText)
	assert.Equal(t, "2.500,00", res.Rows[0].BalanceText)
	assert.Equal(t, "-23,50", res.Rows[1].AmountText)
}

func TestParseCSVNubankStyle(t *testing.T) {
	// Nubank account export: comma separated, dot decimals, dd/mm dates.
	data := []byte("Data,Valor,Identificador,Descrição\n" +
		"05/04/2024,1500.00,abc-123,Transferência recebida pelo Pix - MARIA\n" +
		"06/04/2024,-23.50,def-456,Compra no débito - PADARIA\n")

	res, meta, err := ParseCSV(data)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "1500.00", res.Rows[0].AmountText)
	assert.Equal(t, "Transferência recebida pelo Pix - MARIA", res.Rows[0].Description)

	require.NotNil(t, meta.Dialect)
	assert.False(t, meta.Dialect.EuropeanAmounts)
	assert.True(t, meta.Dialect.DayFirst,
		"dot decimals alone must not flip the date order")
}

func TestParseCSVCreditDebitColumns(t *testing.T) {
	data := []byte("Data;Histórico;Débito;Crédito\n" +
		"05/04/2024;PIX RECEBIDO;;1.500,00\n" +
		"06/04/2024;TARIFA;35,90;\n")

	res, _, err := ParseCSV(data)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "1.500,00", res.Rows[0].AmountText)
	assert.Equal(t, "C", res.Rows[0].Marker)
	assert.Equal(t, "35,90", res.Rows[1].AmountText)
	assert.Equal(t, "D", res.Rows[1].Marker)
}

func TestParseCSVHeaderlessFallsBackToPositional(t *testing.T) {
	data := []byte("05/04/2024;PIX RECEBIDO MARIA;1.500,00\n" +
		"06/04/2024;COMPRA PADARIA;-23,50\n")

	res, _, err := ParseCSV(data)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "PIX RECEBIDO MARIA", res.Rows[0].Description)
	assert.Equal(t, "1.500,00", res.Rows[0].AmountText)
}

func TestParseCSVBalanceRowsBecomeBalances(t *testing.T) {
	data := []byte("Data;Descrição;Valor\n" +
		";SALDO ANTERIOR;1.000,00\n" +
		"05/04/2024;PIX;50,00\n" +
		";SALDO FINAL;1.050,00\n")

	res, _, err := ParseCSV(data)
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	require.NotNil(t, res.Opening)
	assert.Equal(t, int64(100000), res.Opening.Amount())
	require.NotNil(t, res.Closing)
	assert.Equal(t, int64(105000), res.Closing.Amount())
}

func TestParseCSVByteOrderMark(t *testing.T) {
	data := []byte("\ufeffData;Descrição;Valor\n05/04/2024;PIX;50,00\n")

	res, _, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestParseCSVLatin1(t *testing.T) {
	// Itaú exports still ship ISO-8859-1. 0xE7 0xE3 is "çã" in Latin-1 and
	// invalid UTF-8, so the decoder has to kick in.
	data := []byte("Data;Descri\xe7\xe3o;Valor\n05/04/2024;Transfer\xeancia;50,00\n")

	res, meta, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Transferência", res.Rows[0].Description)
	assert.Equal(t, []string{"Data", "Descrição", "Valor"}, meta.Headers)
}

func TestParseCSVEmpty(t *testing.T) {
	_, _, err := ParseCSV(nil)
	assert.ErrorIs(t, err, statement.ErrEmptyDocument)

	_, _, err = ParseCSV([]byte("\n\n   \n"))
	assert.ErrorIs(t, err, statement.ErrEmptyDocument)
}

func TestParseCSVProse(t *testing.T) {
	_, _, err := ParseCSV([]byte("olá mundo\nsem dados tabulares aqui\n"))
	assert.ErrorIs(t, err, statement.ErrNoTransactions)
}
