package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/bank"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// textLayerStrategy parses the embedded PDF text layer with the generic line
// shapes only: the text layer keeps column spacing well enough that the
// generic rules are usually right, and bank quirks stay out of it.
type textLayerStrategy struct {
	extractor TextLayerExtractor
}

func (s *textLayerStrategy) Name() string { return "textlayer" }

func (s *textLayerStrategy) Extract(ctx context.Context, in Input) (Result, error) {
	if s.extractor == nil {
		return Result{}, statement.ErrStrategyUnavailable
	}
	text, err := s.extractor.ExtractTextLayer(ctx, in.Data, in.Password)
	if err != nil {
		return Result{}, err
	}
	return parseTextRows(text, bank.GenericRules), nil
}

// lineStrategy is the last resort: the full extracted text (OCR included,
// when the backend has it) against the identified bank's own line
// expressions, with the generic ones after them.
type lineStrategy struct {
	extractor TextExtractor
}

func (s *lineStrategy) Name() string { return "lines" }

func (s *lineStrategy) Extract(ctx context.Context, in Input) (Result, error) {
	if s.extractor == nil {
		return Result{}, statement.ErrStrategyUnavailable
	}
	text, err := s.extractor.ExtractText(ctx, in.Data, in.Password)
	if err != nil {
		return Result{}, err
	}
	return parseTextRows(text, in.Profile.Rules()), nil
}

// denyWords disqualify a line from being a transaction or a continuation:
// headers, totals and page furniture.
var denyWords = []string{
	"SALDO", "SUBTOTAL", "TOTAIS", "TOTAL",
	"EXTRATO", "HISTÓRICO", "HISTORICO",
	"PÁGINA", "PAGINA", "FOLHA",
	"OUVIDORIA", "SAC ", "CENTRAL DE ATENDIMENTO",
	"LANÇAMENTOS FUTUROS", "LANCAMENTOS FUTUROS",
}

var (
	moneyTokenRe   = regexp.MustCompile(`-?\d{1,3}(?:\.\d{3})*,\d{2}-?`)
	balanceTokenRe = regexp.MustCompile(`(-?\d{1,3}(?:\.\d{3})*,\d{2}-?)\s*([CD])?\s*$`)
	anyLetterRe    = regexp.MustCompile(`\p{L}`)
)

// parseTextRows runs the line rules over the text. Lines that open or close
// the balance are harvested, deny-listed lines are skipped, and lines that
// match no rule but look like prose are glued onto the previous
// transaction's description.
func parseTextRows(text string, rules []bank.LineRule) Result {
	var res Result
	var last *statement.RawRow

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			last = nil
			continue
		}

		if harvestBalance(line, len(res.Rows) == 0, &res) {
			last = nil
			continue
		}
		if denied(line) {
			last = nil
			continue
		}

		if row, ok := matchRow(line, rules); ok {
			res.Rows = append(res.Rows, row)
			last = &res.Rows[len(res.Rows)-1]
			continue
		}

		if last != nil && isContinuation(line) {
			last.Description += " " + line
		}
	}
	return res
}

func matchRow(line string, rules []bank.LineRule) (statement.RawRow, bool) {
	for _, rule := range rules {
		m := rule.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := map[string]string{}
		for i, name := range rule.Pattern.SubexpNames() {
			if name != "" && i < len(m) {
				groups[name] = m[i]
			}
		}
		return statement.RawRow{
			DateText:    groups["date"],
			Description: strings.TrimSpace(groups["desc"]),
			AmountText:  strings.TrimSpace(groups["amount"]),
			Marker:      strings.TrimSpace(groups["marker"]),
			BalanceText: strings.TrimSpace(groups["balance"]),
		}, true
	}
	return statement.RawRow{}, false
}

func denied(line string) bool {
	upper := strings.ToUpper(line)
	for _, word := range denyWords {
		if strings.Contains(upper, word) {
			return true
		}
	}
	return false
}

// isContinuation accepts wrapped description text: prose without its own
// amount.
func isContinuation(line string) bool {
	if len(line) < 3 {
		return false
	}
	if !anyLetterRe.MatchString(line) {
		return false
	}
	return !moneyTokenRe.MatchString(line)
}

// harvestBalance reads opening/closing balances off "SALDO ..." lines. A bare
// "SALDO EM <date>" line counts as the opening balance before any
// transaction was seen and as the closing balance after.
func harvestBalance(line string, beforeRows bool, res *Result) bool {
	upper := strings.ToUpper(line)
	if !strings.Contains(upper, "SALDO") {
		return false
	}
	value := balanceFromLine(line)

	switch {
	case strings.Contains(upper, "ANTERIOR"), strings.Contains(upper, "INICIAL"):
		if value != nil && res.Opening == nil {
			res.Opening = value
		}
	case strings.Contains(upper, "FINAL"), strings.Contains(upper, "ATUAL"),
		strings.Contains(upper, "DISPONÍVEL"), strings.Contains(upper, "DISPONIVEL"):
		if value != nil {
			res.Closing = value
		}
	case strings.Contains(upper, "SALDO EM"):
		if value == nil {
			break
		}
		if beforeRows && res.Opening == nil {
			res.Opening = value
		} else if !beforeRows {
			res.Closing = value
		}
	}
	// Whatever kind of SALDO line it was, it is not a transaction.
	return true
}

func balanceFromLine(line string) *money.Money {
	m := balanceTokenRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	dec, err := money.ParseDecimal(m[1])
	if err != nil {
		return nil
	}
	value := money.NewFromDecimal(dec, money.BRL)
	if m[2] == "D" {
		value = value.Abs().Negate()
	}
	return value
}
