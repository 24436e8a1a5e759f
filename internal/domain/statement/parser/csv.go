package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gocarina/gocsv"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/sniffer"
)

func init() {
	// Bank exports capitalize headers every which way; match them
	// case-insensitively against the statementRow tags.
	gocsv.SetHeaderNormalizer(strings.ToLower)
}

// statementRow mirrors the column names Brazilian banks use on CSV exports.
// gocsv matches fields by header name, so each alias gets its own field and
// coalesce picks the populated one after unmarshaling.
type statementRow struct {
	Data           string `csv:"data"`
	DataLancamento string `csv:"data lançamento"`
	DataLanc       string `csv:"data lancamento"`
	DataMov        string `csv:"data mov."`
	Date           string `csv:"date"`

	Historico   string `csv:"histórico"`
	Historico2  string `csv:"historico"`
	Descricao   string `csv:"descrição"`
	Descricao2  string `csv:"descricao"`
	Lancamento  string `csv:"lançamento"`
	Lancamento2 string `csv:"lancamento"`
	Title       string `csv:"title"`
	Description string `csv:"description"`

	Valor  string `csv:"valor"`
	Amount string `csv:"amount"`

	Debito  string `csv:"débito"`
	Debito2 string `csv:"debito"`
	Debit   string `csv:"debit"`

	Credito  string `csv:"crédito"`
	Credito2 string `csv:"credito"`
	Credit   string `csv:"credit"`

	Saldo   string `csv:"saldo"`
	Balance string `csv:"balance"`
}

// CSVMeta carries what the sniffer learned about the file, so the caller can
// pick date order for normalization and remember the layout by fingerprint.
type CSVMeta struct {
	Delimiter   rune
	Headers     []string
	Fingerprint string
	Dialect     *sniffer.Dialect
}

// ParseCSV reads a CSV statement export. Known header names go through the
// gocsv path; anything else falls back to the positional grid pipeline shared
// with PDF tables and spreadsheets.
func ParseCSV(data []byte) (Result, CSVMeta, error) {
	var meta CSVMeta

	data = normalizeCSVBytes(data)
	cfg, err := sniffer.DetectConfig(data)
	if err != nil {
		if errors.Is(err, sniffer.ErrEmptyFile) {
			return Result{}, meta, statement.ErrEmptyDocument
		}
		return Result{}, meta, statement.ErrNoTransactions
	}
	meta = CSVMeta{
		Delimiter:   cfg.Delimiter,
		Headers:     cfg.Headers,
		Fingerprint: cfg.Fingerprint,
		Dialect:     sniffer.ProbeDialect(cfg.SampleRows),
	}

	body := csvBody(data, cfg.SkipLines)

	rows, err := unmarshalRows(body, cfg.Delimiter)
	if err == nil {
		if res := rowsFromStructs(rows); len(res.Rows) > 0 {
			return res, meta, nil
		}
	}

	records, err := readRecords(body, cfg.Delimiter)
	if err != nil {
		return Result{}, meta, fmt.Errorf("read csv: %w", err)
	}
	var res Result
	gridRows(records, &res)
	if len(res.Rows) == 0 {
		return res, meta, statement.ErrNoTransactions
	}
	return res, meta, nil
}

func rowsFromStructs(rows []statementRow) Result {
	var res Result
	for _, row := range rows {
		date := coalesce(row.Data, row.DataLancamento, row.DataLanc, row.DataMov, row.Date)
		desc := coalesce(row.Historico, row.Historico2, row.Descricao, row.Descricao2,
			row.Lancamento, row.Lancamento2, row.Title, row.Description)
		amount := coalesce(row.Valor, row.Amount)
		debit := coalesce(row.Debito, row.Debito2, row.Debit)
		credit := coalesce(row.Credito, row.Credito2, row.Credit)
		balance := coalesce(row.Saldo, row.Balance)

		if harvestCellBalance([]string{date, desc, amount, balance}, len(res.Rows) == 0, &res) {
			continue
		}

		raw := statement.RawRow{
			DateText:    date,
			Description: desc,
			BalanceText: balance,
		}
		switch {
		case strings.ContainsAny(credit, "0123456789"):
			raw.AmountText = credit
			raw.Marker = "C"
		case strings.ContainsAny(debit, "0123456789"):
			raw.AmountText = debit
			raw.Marker = "D"
		default:
			raw.AmountText = amount
		}
		if raw.DateText == "" || raw.AmountText == "" {
			continue
		}
		res.Rows = append(res.Rows, raw)
	}
	return res
}

func unmarshalRows(body []byte, delimiter rune) ([]statementRow, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var rows []statementRow
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func readRecords(body []byte, delimiter rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// normalizeCSVBytes strips the UTF-8 BOM Excel likes to prepend and converts
// Latin-1 exports (Itaú and Bradesco still produce them) to UTF-8.
func normalizeCSVBytes(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}

func csvBody(data []byte, skip int) []byte {
	for ; skip > 0; skip-- {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return nil
		}
		data = data[idx+1:]
	}
	return data
}

func coalesce(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
