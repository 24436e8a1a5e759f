package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}, password string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var opts []excelize.Options
	if password != "" {
		opts = append(opts, excelize.Options{Password: password})
	}
	var buf bytes.Buffer
	err := f.Write(&buf, opts...)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, "Extrato", [][]interface{}{
		{"Data", "Histórico", "Débito", "Crédito", "Saldo"},
		{"05/04/2024", "PIX RECEBIDO MARIA", "", "1.500,00", "2.500,00"},
		{"06/04/2024", "COMPRA PADARIA", "23,50", "", "2.476,50"},
	}, "")

	res, err := ParseXLSX(data, "")
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "05/04/2024", res.Rows[0].DateText)
	assert.Equal(t, "PIX RECEBIDO MARIA", res.Rows[0].Description)
	assert.Equal(t, "1.500,00", res.Rows[0].AmountText)
	assert.Equal(t, "C", res.Rows[0].Marker)
	assert.Equal(t, "2.500,00", res.Rows[0].BalanceText)
	assert.Equal(t, "D", res.Rows[1].Marker)
}

func TestParseXLSXPassword(t *testing.T) {
	data := buildWorkbook(t, "Extrato", [][]interface{}{
		{"Data", "Descrição", "Valor"},
		{"05/04/2024", "PIX", "50,00"},
	}, "segredo")

	t.Run("missing password", func(t *testing.T) {
		_, err := ParseXLSX(data, "")
		assert.ErrorIs(t, err, statement.ErrPasswordRequired)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := ParseXLSX(data, "errada")
		assert.ErrorIs(t, err, statement.ErrPasswordRequired)
	})

	t.Run("correct password", func(t *testing.T) {
		res, err := ParseXLSX(data, "segredo")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "PIX", res.Rows[0].Description)
	})
}

func TestParseXLSXPrefersStatementSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Resumo"))
	require.NoError(t, f.SetSheetRow("Resumo", "A1", &[]interface{}{"Resumo da conta", "abril"}))

	_, err := f.NewSheet("Extrato")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Extrato", "A1", &[]interface{}{"Data", "Descrição", "Valor"}))
	require.NoError(t, f.SetSheetRow("Extrato", "A2", &[]interface{}{"05/04/2024", "PIX", "50,00"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := ParseXLSX(buf.Bytes(), "")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "PIX", res.Rows[0].Description)
}

func TestParseXLSXEmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = ParseXLSX(buf.Bytes(), "")
	assert.ErrorIs(t, err, statement.ErrEmptyDocument)
}

func TestParseXLSXProseOnly(t *testing.T) {
	data := buildWorkbook(t, "Extrato", [][]interface{}{
		{"Relatório gerado em abril"},
		{"sem movimentações no período"},
	}, "")

	_, err := ParseXLSX(data, "")
	assert.ErrorIs(t, err, statement.ErrNoTransactions)
}

func TestParseXLSXGarbage(t *testing.T) {
	_, err := ParseXLSX([]byte("not a zip archive"), "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, statement.ErrPasswordRequired)
}
