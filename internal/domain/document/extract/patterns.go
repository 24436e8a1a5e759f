package extract

import (
	"regexp"
	"strings"
	"time"
)

var (
	// A run of digits broken only by the separators printers use inside
	// typed lines and barcodes. Long enough to exclude dates, phone numbers
	// and account numbers.
	digitRunRe = regexp.MustCompile(`\d[\d.\- ]{35,90}\d`)

	cnpjRe  = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)
	cpfRe   = regexp.MustCompile(`\d{3}\.?\d{3}\.?\d{3}-?\d{2}`)
	uuidRe  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// +55 mobile numbers, with or without punctuation.
	phoneRe = regexp.MustCompile(`\+?55\s?\(?\d{2}\)?\s?9?\d{4}[\- ]?\d{4}`)
	// End-to-end id: "E", the 8-digit ISPB, then timestamp and sequence.
	e2eRe = regexp.MustCompile(`(?i)\bE\d{8}[0-9a-z]{10,24}\b`)

	branchRe      = regexp.MustCompile(`\d{4}(?:-?[\dXx])?`)
	accountRe     = regexp.MustCompile(`\d[\d.\-]{3,14}[\dXx]`)
	bankCodeRe    = regexp.MustCompile(`^\d{3}\b`)
	monthYearRe   = regexp.MustCompile(`\b(0[1-9]|1[0-3])\s?/\s?(\d{4})\b`)
	yearOnlyRe    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	revenueCodeRe = regexp.MustCompile(`\b\d{4}(?:-\d{2})?\b`)

	// "10 de dezembro de 2024" and friends.
	longDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})º?\s+de\s+([\p{L}]+)\s+de\s+(\d{4})\b`)
)

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2006-01-02",
	"02.01.2006",
	"02-01-2006",
}

var monthsPT = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

var shortDateRe = regexp.MustCompile(`\d{1,4}[./-]\d{1,2}[./-]\d{1,4}`)

// parseDate finds and parses the first date in raw. It accepts the numeric
// formats Brazilian documents use plus the spelled-out form.
func parseDate(raw string) (time.Time, bool) {
	if m := shortDateRe.FindString(raw); m != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, m); err == nil {
				return t, true
			}
		}
	}
	if m := longDateRe.FindStringSubmatch(raw); m != nil {
		month, ok := monthsPT[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		day := atoiSafe(m[1])
		year := atoiSafe(m[3])
		if day < 1 || day > 31 {
			return time.Time{}, false
		}
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day {
			// Normalized away, e.g. 31 de fevereiro.
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// digitRuns scans text for payment-code digit runs and returns the first
// typed line (47 or 48 digits) and the first barcode (44 digits) found.
func digitRuns(text string) (typedLine, barcode string) {
	for _, run := range digitRunRe.FindAllString(text, -1) {
		digits := digitsOf(run)
		switch len(digits) {
		case 47, 48:
			if typedLine == "" {
				typedLine = digits
			}
		case 44:
			if barcode == "" {
				barcode = digits
			}
		}
		if typedLine != "" && barcode != "" {
			break
		}
	}
	return typedLine, barcode
}

func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
