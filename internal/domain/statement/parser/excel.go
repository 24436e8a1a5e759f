package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// Sheet names banks actually use for the transaction tab, checked in order
// before falling back to the first sheet.
var preferredSheets = []string{
	"extrato", "movimentos", "movimentações", "movimentacoes",
	"lançamentos", "lancamentos", "transactions", "statement",
	"planilha1", "sheet1",
}

// ParseXLSX reads a spreadsheet statement export. Sheet rows go through the
// same grid pipeline as PDF tables, so header-based and headerless layouts
// both work.
func ParseXLSX(data []byte, password string) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{Password: password})
	if err != nil {
		if errors.Is(err, excelize.ErrWorkbookPassword) {
			return Result{}, statement.ErrPasswordRequired
		}
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := findStatementSheet(f)
	if sheet == "" {
		return Result{}, statement.ErrEmptyDocument
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Result{}, statement.ErrEmptyDocument
	}

	var res Result
	gridRows(rows, &res)
	if len(res.Rows) == 0 {
		return res, statement.ErrNoTransactions
	}
	return res, nil
}

func findStatementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range preferredSheets {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}
