// Package sniffer detects the shape of CSV statement exports before parsing:
// delimiter, header row position, regional dialect, and a header fingerprint
// that lets repeated imports from the same bank skip detection entirely.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Header words Brazilian banks put on statement exports, plus the English set
// Nubank and fintech exports use.
var headerKeywords = []string{
	"data", "lançamento", "lancamento", "histórico", "historico",
	"descrição", "descricao", "valor", "saldo", "débito", "debito",
	"crédito", "credito", "documento", "identificador", "movimentação",
	"movimentacao",
	"date", "description", "amount", "debit", "credit", "balance", "title",
}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not find data headers")
)

// FileConfig holds the detected layout of a CSV export.
type FileConfig struct {
	Delimiter   rune       // field delimiter (';', ',', '\t' or '|')
	SkipLines   int        // metadata lines before the header row
	Headers     []string   // trimmed header names
	Fingerprint string     // sha256 of normalized headers, for layout recognition
	SampleRows  [][]string // first data rows, used for dialect probing
}

// Dialect is the regional formatting inferred from sample rows. Brazilian
// exports are day-first with comma decimals, so that is the default when the
// sample gives no evidence either way.
type Dialect struct {
	DayFirst        bool
	EuropeanAmounts bool
	Currency        string
	Confidence      float64
}

// DetectConfig analyzes a CSV/TSV export and returns its layout.
func DetectConfig(data []byte) (*FileConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")
	delimiter, skipLines, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	headers := splitLine(cleanLine(lines[skipLines], skipLines == 0), delimiter)
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(h), `"`))
	}

	cfg := &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
	}
	for i := skipLines + 1; i < len(lines) && len(cfg.SampleRows) < 5; i++ {
		line := cleanLine(lines[i], false)
		if line == "" {
			continue
		}
		cfg.SampleRows = append(cfg.SampleRows, splitLine(line, delimiter))
	}
	return cfg, nil
}

// ProbeDialect votes on amount and date formats across the sample rows.
func ProbeDialect(rows [][]string) *Dialect {
	dialect := &Dialect{
		DayFirst:        true,
		EuropeanAmounts: true,
		Confidence:      0.5,
	}

	europeanVotes, usVotes := 0, 0
	dayFirstSeen, monthFirstSeen := false, false

	for _, row := range rows {
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}

			switch {
			case strings.Contains(cell, "R$") || strings.Contains(cell, "BRL"):
				dialect.Currency = "BRL"
				europeanVotes++
			case strings.Contains(cell, "€") || strings.Contains(cell, "EUR"):
				if dialect.Currency == "" {
					dialect.Currency = "EUR"
				}
				europeanVotes++
			case strings.Contains(cell, "$"):
				if dialect.Currency == "" {
					dialect.Currency = "USD"
				}
				usVotes++
			}

			if vote := amountFormatVote(cell); vote > 0 {
				europeanVotes++
			} else if vote < 0 {
				usVotes++
			}

			if first, second, ok := dateParts(cell); ok {
				if first > 12 && first <= 31 {
					dayFirstSeen = true
				}
				if second > 12 && second <= 31 {
					monthFirstSeen = true
				}
			}
		}
	}

	if usVotes > europeanVotes {
		dialect.EuropeanAmounts = false
	}
	if total := europeanVotes + usVotes; total > 0 {
		winner := europeanVotes
		if usVotes > winner {
			winner = usVotes
		}
		dialect.Confidence = float64(winner) / float64(total)
	}

	// A first part above 12 proves day-first; a second part above 12 proves
	// month-first. Only proof moves the needle: Nubank exports pair dd/mm
	// dates with dot-decimal amounts, so the amount vote says nothing about
	// date order.
	if monthFirstSeen && !dayFirstSeen {
		dialect.DayFirst = false
	}

	return dialect
}

// Fingerprint hashes normalized header names so a layout seen once can be
// recognized on the next upload.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}

// findHeaderRow locates the header line and its delimiter. Bank exports often
// open with account metadata, so keyword-bearing lines win over earlier lines
// that merely have many columns.
func findHeaderRow(lines []string) (rune, int, error) {
	type candidate struct {
		index     int
		delimiter rune
		score     int
	}
	var keyword, fallback *candidate

	for i, line := range lines {
		if i > 20 {
			break
		}
		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delimiter, columns := detectDelimiter(line)
		if columns < 1 {
			continue
		}

		matches := 0
		lower := strings.ToLower(line)
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}

		if matches > 0 {
			score := columns*10 + matches
			if keyword == nil || score > keyword.score {
				keyword = &candidate{index: i, delimiter: delimiter, score: score}
			}
		} else if fallback == nil || columns > fallback.score {
			fallback = &candidate{index: i, delimiter: delimiter, score: columns}
		}
	}

	if keyword != nil {
		return keyword.delimiter, keyword.index, nil
	}
	if fallback != nil && fallback.score >= 2 {
		return fallback.delimiter, fallback.index, nil
	}
	return 0, 0, ErrNoHeadersFound
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	best, bestCount := rune(0), 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if count := strings.Count(line, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best, bestCount
}

func splitLine(line string, delimiter rune) []string {
	return strings.Split(line, string(delimiter))
}

// amountFormatVote returns >0 for European formatting, <0 for US, 0 when the
// cell is not an amount or could be either.
func amountFormatVote(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, val)
	cleaned = strings.TrimPrefix(cleaned, "-")
	if cleaned == "" || !strings.ContainsAny(cleaned, "0123456789") {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			return 1 // 1.234,56
		}
		return -1 // 1,234.56
	case hasComma:
		if idx := strings.LastIndex(cleaned, ","); len(cleaned)-idx-1 <= 2 {
			return 1
		}
	case hasDot:
		if idx := strings.LastIndex(cleaned, "."); len(cleaned)-idx-1 <= 2 {
			return -1
		}
	}
	return 0
}

var datePartsRe = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})(?:[/.\-]\d{2,4})?$`)

func dateParts(cell string) (first, second int, ok bool) {
	m := datePartsRe.FindStringSubmatch(cell)
	if m == nil {
		return 0, 0, false
	}
	for _, c := range m[1] {
		first = first*10 + int(c-'0')
	}
	for _, c := range m[2] {
		second = second*10 + int(c-'0')
	}
	return first, second, true
}
