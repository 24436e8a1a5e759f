package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// tableStrategy wraps one injected table extractor. The chain carries two of
// these, so a layout the primary backend cannot see may still come out of the
// fallback one.
type tableStrategy struct {
	extractor TableExtractor
}

func (s *tableStrategy) Name() string {
	if s.extractor == nil {
		return "tables"
	}
	return "tables/" + s.extractor.Name()
}

func (s *tableStrategy) Extract(ctx context.Context, in Input) (Result, error) {
	if s.extractor == nil {
		return Result{}, statement.ErrStrategyUnavailable
	}
	tables, err := s.extractor.ExtractTables(ctx, in.Data, in.Password)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, table := range tables {
		gridRows(table.Rows, &res)
	}
	return res, nil
}

// columnMap holds the index of each recognized column, -1 when absent.
type columnMap struct {
	date, desc, amount, credit, debit, balance int
}

func emptyColumnMap() columnMap {
	return columnMap{date: -1, desc: -1, amount: -1, credit: -1, debit: -1, balance: -1}
}

func (cm columnMap) usable() bool {
	return cm.date >= 0 && (cm.amount >= 0 || cm.credit >= 0 || cm.debit >= 0)
}

// gridRows feeds one grid of cells into the result: locate the header, map
// the columns, emit rows, harvest balance lines. Grids that do not look like
// a transaction table contribute nothing.
func gridRows(rows [][]string, res *Result) {
	headerIdx, cm := findHeader(rows)
	start := headerIdx + 1
	if headerIdx < 0 {
		var ok bool
		cm, ok = positionalColumns(rows)
		if !ok {
			return
		}
		start = 0
	}
	for _, cells := range rows[start:] {
		if harvestCellBalance(cells, len(res.Rows) == 0, res) {
			continue
		}
		if row, ok := rowFromCells(cells, cm); ok {
			res.Rows = append(res.Rows, row)
		}
	}
}

// findHeader looks for a header row near the top of the grid.
func findHeader(rows [][]string) (int, columnMap) {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		if cm, ok := mapColumns(rows[i]); ok {
			return i, cm
		}
	}
	return -1, emptyColumnMap()
}

// mapColumns resolves column roles from header labels.
func mapColumns(header []string) (columnMap, bool) {
	cm := emptyColumnMap()
	hits := 0
	for i, cell := range header {
		c := strings.ToLower(strings.TrimSpace(cell))
		if c == "" {
			continue
		}
		switch {
		case strings.Contains(c, "data"):
			if cm.date < 0 {
				cm.date = i
				hits++
			}
		case strings.Contains(c, "hist"), strings.Contains(c, "descri"),
			strings.Contains(c, "lançamento"), strings.Contains(c, "lancamento"),
			strings.Contains(c, "moviment"), strings.Contains(c, "transa"):
			if cm.desc < 0 {
				cm.desc = i
				hits++
			}
		case strings.Contains(c, "créd"), strings.Contains(c, "cred"):
			if cm.credit < 0 {
				cm.credit = i
				hits++
			}
		case strings.Contains(c, "déb"), strings.Contains(c, "deb"):
			if cm.debit < 0 {
				cm.debit = i
				hits++
			}
		case strings.Contains(c, "saldo"):
			if cm.balance < 0 {
				cm.balance = i
				hits++
			}
		case strings.Contains(c, "valor"), strings.Contains(c, "montante"), c == "amount":
			if cm.amount < 0 {
				cm.amount = i
				hits++
			}
		}
	}
	return cm, hits >= 2 && cm.usable()
}

var cellDateRe = regexp.MustCompile(`^\d{1,2}[/.\-]\d{1,2}(?:[/.\-]\d{2,4})?$|^\d{4}-\d{2}-\d{2}$`)

func dateLike(cell string) bool {
	return cellDateRe.MatchString(strings.TrimSpace(cell))
}

func amountLike(cell string) bool {
	return moneyTokenRe.MatchString(cell)
}

// positionalColumns guesses roles for headerless grids: the date column is
// the one holding dates, the last money column is the amount (with a column
// to its right becoming the balance), and the widest remaining column is the
// description.
func positionalColumns(rows [][]string) (columnMap, bool) {
	cm := emptyColumnMap()
	if len(rows) == 0 {
		return cm, false
	}
	probe := rows[0]
	if len(rows) > 1 && !dateRowLike(rows[0]) {
		probe = rows[1]
	}
	var moneyCols []int
	for i, cell := range probe {
		cell = strings.TrimSpace(cell)
		switch {
		case cm.date < 0 && dateLike(cell):
			cm.date = i
		case amountLike(cell):
			moneyCols = append(moneyCols, i)
		}
	}
	switch len(moneyCols) {
	case 0:
		return cm, false
	case 1:
		cm.amount = moneyCols[0]
	default:
		cm.amount = moneyCols[len(moneyCols)-2]
		cm.balance = moneyCols[len(moneyCols)-1]
	}
	widest := -1
	for i, cell := range probe {
		if i == cm.date || i == cm.amount || i == cm.balance {
			continue
		}
		if widest < 0 || len(cell) > len(probe[widest]) {
			widest = i
		}
	}
	cm.desc = widest
	return cm, cm.usable()
}

func dateRowLike(cells []string) bool {
	for _, cell := range cells {
		if dateLike(cell) {
			return true
		}
	}
	return false
}

func rowFromCells(cells []string, cm columnMap) (statement.RawRow, bool) {
	get := func(i int) string {
		if i >= 0 && i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	date := get(cm.date)
	if !dateLike(date) {
		return statement.RawRow{}, false
	}

	row := statement.RawRow{
		DateText:    date,
		Description: get(cm.desc),
		BalanceText: get(cm.balance),
	}

	switch {
	case get(cm.credit) != "":
		row.AmountText = get(cm.credit)
		row.Marker = "C"
	case get(cm.debit) != "":
		row.AmountText = get(cm.debit)
		row.Marker = "D"
	default:
		row.AmountText = get(cm.amount)
	}
	if row.AmountText == "" {
		return statement.RawRow{}, false
	}

	if row.Description == "" {
		// Headerless single-column descriptions may sit anywhere; take the
		// longest textual cell.
		for i, cell := range cells {
			if i == cm.date || i == cm.amount || i == cm.balance || i == cm.credit || i == cm.debit {
				continue
			}
			cell = strings.TrimSpace(cell)
			if anyLetterRe.MatchString(cell) && len(cell) > len(row.Description) {
				row.Description = cell
			}
		}
	}
	return row, true
}

// harvestCellBalance spots SALDO rows inside a table and records them as
// opening/closing balances instead of transactions.
func harvestCellBalance(cells []string, beforeRows bool, res *Result) bool {
	joined := strings.ToUpper(strings.Join(cells, " "))
	if !strings.Contains(joined, "SALDO") {
		return false
	}
	value := balanceFromLine(strings.Join(cells, " "))
	switch {
	case strings.Contains(joined, "ANTERIOR"), strings.Contains(joined, "INICIAL"):
		if value != nil && res.Opening == nil {
			res.Opening = value
		}
	case strings.Contains(joined, "FINAL"), strings.Contains(joined, "ATUAL"):
		if value != nil {
			res.Closing = value
		}
	default:
		if value != nil && !beforeRows {
			res.Closing = value
		}
	}
	return true
}
