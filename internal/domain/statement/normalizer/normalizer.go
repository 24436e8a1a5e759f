// Package normalizer turns the raw rows produced by extraction strategies
// into typed transactions: dates resolved against the statement period,
// Brazilian amount formats parsed, direction inferred, categories suggested.
package normalizer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Categorizer suggests a spending category for a transaction description.
// Implementations must be safe for concurrent use.
type Categorizer interface {
	Suggest(description string) (string, bool)
}

// DateOrder says how ambiguous numeric dates read.
type DateOrder int

const (
	DayFirst DateOrder = iota // Brazilian default: dd/mm
	MonthFirst
)

// Context carries per-statement hints the rows themselves do not have.
type Context struct {
	// ReferenceYear resolves dd/mm dates without a year. Zero means the
	// current year.
	ReferenceYear int
	// PeriodEnd, when known, corrects year wrap-around: a December line on a
	// January statement belongs to the previous year.
	PeriodEnd time.Time
	DateOrder DateOrder
}

const maxDescriptionRunes = 200

// Normalizer is stateless apart from its collaborators; one instance serves
// all statements.
type Normalizer struct {
	categorizer Categorizer
	logger      *slog.Logger
}

func New(categorizer Categorizer, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{categorizer: categorizer, logger: logger}
}

// Normalize converts raw rows to transactions. Rows that cannot yield a
// dated, valued transaction are dropped and summarized in the warnings.
// Large statements fan out to a bounded worker pool.
func (n *Normalizer) Normalize(rows []statement.RawRow, nctx Context) ([]statement.Transaction, []string) {
	if len(rows) >= parallelThreshold {
		return n.normalizeParallel(rows, nctx)
	}

	txs := make([]statement.Transaction, 0, len(rows))
	badDates, badAmounts := 0, 0
	for _, row := range rows {
		tx, outcome := n.normalizeRow(row, nctx)
		switch outcome {
		case rowBadDate:
			badDates++
		case rowBadAmount:
			badAmounts++
		default:
			txs = append(txs, tx)
		}
	}

	ensureAscending(txs)
	return txs, dropWarnings(badDates, badAmounts)
}

type rowOutcome int

const (
	rowOK rowOutcome = iota
	rowBadDate
	rowBadAmount
)

func (n *Normalizer) normalizeRow(row statement.RawRow, nctx Context) (statement.Transaction, rowOutcome) {
	date, ok := parseRowDate(row.DateText, nctx)
	if !ok {
		return statement.Transaction{}, rowBadDate
	}
	dec, err := money.ParseDecimal(row.AmountText)
	if err != nil || dec.IsZero() {
		return statement.Transaction{}, rowBadAmount
	}
	amount := money.NewFromDecimal(dec, money.BRL)

	direction := inferDirection(row.Marker, dec, row.Description)
	if direction == statement.DirectionCredit {
		amount = amount.Abs()
	} else {
		amount = amount.Abs().Negate()
	}

	return statement.Transaction{
		Date:        date,
		Description: cleanDescription(row.Description),
		Amount:      amount,
		Direction:   direction,
		Balance:     parseBalance(row.BalanceText),
		Category:    n.suggest(row.Description),
	}, rowOK
}

func dropWarnings(badDates, badAmounts int) []string {
	var warnings []string
	if badDates > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows dropped: unreadable date", badDates))
	}
	if badAmounts > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows dropped: unreadable amount", badAmounts))
	}
	return warnings
}

func (n *Normalizer) suggest(description string) string {
	if n.categorizer == nil {
		return statement.CategoryUncategorized
	}
	if category, ok := n.categorizer.Suggest(description); ok && category != "" {
		return category
	}
	return statement.CategoryUncategorized
}

// FillRunningBalances computes per-line balances from the opening balance for
// statements that do not print a balance column. Lines that already carry a
// balance keep it.
func FillRunningBalances(txs []statement.Transaction, opening *money.Money) {
	if opening == nil {
		return
	}
	running := opening
	for i := range txs {
		if txs[i].Amount == nil {
			continue
		}
		running = running.MustAdd(txs[i].Amount)
		if txs[i].Balance == nil {
			txs[i].Balance = running
		} else {
			running = txs[i].Balance
		}
	}
}

// inferDirection applies the cascade: explicit marker, then the sign parsed
// from the amount, then description keywords, then the debit default.
func inferDirection(marker string, dec decimal.Decimal, description string) statement.Direction {
	switch strings.Trim(strings.ToUpper(strings.TrimSpace(marker)), "()") {
	case "C", "+":
		return statement.DirectionCredit
	case "D", "-":
		return statement.DirectionDebit
	}
	if dec.IsNegative() {
		return statement.DirectionDebit
	}
	// A plain positive number is not evidence by itself.
	if dir, ok := directionFromKeywords(description); ok {
		return dir
	}
	return statement.DirectionDebit
}

var creditKeywords = []string{
	"RECEBID", "RECEBIMENTO", "DEPÓSITO", "DEPOSITO", "CRÉDITO", "CREDITO",
	"SALÁRIO", "SALARIO", "RENDIMENTO", "RESGATE", "ESTORNO", "REEMBOLSO",
	"CASHBACK", "PROVENTO",
}

var debitKeywords = []string{
	"PAGAMENTO", "PAGTO", "ENVIAD", "COMPRA", "SAQUE", "DÉBITO", "DEBITO",
	"TARIFA", "TRANSFERIDO", "APLICAÇÃO", "APLICACAO", "MENSALIDADE", "JUROS",
	"IOF", "ANUIDADE",
}

func directionFromKeywords(description string) (statement.Direction, bool) {
	upper := strings.ToUpper(description)
	for _, kw := range creditKeywords {
		if strings.Contains(upper, kw) {
			return statement.DirectionCredit, true
		}
	}
	for _, kw := range debitKeywords {
		if strings.Contains(upper, kw) {
			return statement.DirectionDebit, true
		}
	}
	return "", false
}

var rowDateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"02.01.2006",
	"02-01-2006",
	"2006-01-02",
}

var shortRowDateLayouts = []string{
	"02/01",
	"02.01",
}

func parseRowDate(text string, nctx Context) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	layouts := rowDateLayouts
	short := shortRowDateLayouts
	if nctx.DateOrder == MonthFirst {
		layouts = []string{"01/02/2006", "01/02/06", "2006-01-02"}
		short = []string{"01/02"}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	for _, layout := range short {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		year := nctx.ReferenceYear
		if year == 0 {
			year = time.Now().Year()
		}
		resolved := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// A dd/mm line months past the period end belongs to the year
		// before: December lines on a January statement.
		if !nctx.PeriodEnd.IsZero() && resolved.After(nctx.PeriodEnd.AddDate(0, 1, 0)) {
			resolved = resolved.AddDate(-1, 0, 0)
		}
		return resolved, true
	}
	return time.Time{}, false
}

// parseBalance reads a balance cell, honoring a trailing C/D marker.
func parseBalance(text string) *money.Money {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	negative := false
	upper := strings.ToUpper(text)
	if strings.HasSuffix(upper, "D") {
		negative = true
	}
	text = strings.TrimRight(text, "CDcd ")
	dec, err := money.ParseDecimal(text)
	if err != nil {
		return nil
	}
	m := money.NewFromDecimal(dec, money.BRL)
	if negative {
		m = m.Abs().Negate()
	}
	return m
}

func cleanDescription(desc string) string {
	desc = strings.Join(strings.Fields(desc), " ")
	if utf8.RuneCountInString(desc) > maxDescriptionRunes {
		desc = string([]rune(desc)[:maxDescriptionRunes])
	}
	return desc
}

// ensureAscending flips statements printed newest-first and stable-sorts the
// rest so running balances make sense.
func ensureAscending(txs []statement.Transaction) {
	if len(txs) < 2 {
		return
	}
	descending := true
	for i := 1; i < len(txs); i++ {
		if txs[i].Date.After(txs[i-1].Date) {
			descending = false
			break
		}
	}
	if descending && txs[0].Date.After(txs[len(txs)-1].Date) {
		for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
			txs[i], txs[j] = txs[j], txs[i]
		}
		return
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}
