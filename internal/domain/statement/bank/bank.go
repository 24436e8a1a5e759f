// Package bank identifies which institution issued a statement and carries
// the per-bank parsing profiles. Profiles are plain data: recognition
// patterns plus the transaction-line expressions the text strategies use.
package bank

import (
	"regexp"
	"strings"
)

// ID is the stable slug for an institution.
type ID string

const (
	Itau          ID = "itau"
	Bradesco      ID = "bradesco"
	Santander     ID = "santander"
	BancoDoBrasil ID = "banco-do-brasil"
	Caixa         ID = "caixa"
	Nubank        ID = "nubank"
	Inter         ID = "inter"
	C6            ID = "c6"
	Sicoob        ID = "sicoob"
	Sicredi       ID = "sicredi"
)

// LineRule is one transaction-line shape. Patterns use named groups: date,
// desc, amount and optionally marker and balance.
type LineRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Profile describes one institution: how to recognize its statements and how
// its transaction lines look.
type Profile struct {
	ID          ID
	DisplayName string
	COMPE       string
	// Uppercase substrings looked up in the statement text.
	contentPatterns []string
	// Lowercase substrings looked up in the uploaded filename.
	filenameHints []string
	// Bank-specific line shapes, tried before the generic ones.
	LineRules []LineRule
}

const (
	datePart    = `(?P<date>\d{2}[/.]\d{2}(?:[/.]\d{2,4})?)`
	amountPart  = `(?P<amount>-?\s?R?\$?\s?-?\d{1,3}(?:\.\d{3})*,\d{2}-?)`
	balancePart = `(?P<balance>-?\d{1,3}(?:\.\d{3})*,\d{2}-?\s?[CD]?)`
	markerPart  = `(?P<marker>\(?[CD+-]\)?)`
)

// GenericRules are the fallback line shapes appended after every profile's
// own rules: date, description, amount, then optional direction marker and
// optional running balance.
var GenericRules = []LineRule{
	{
		Name: "generic-balance",
		Pattern: regexp.MustCompile(
			`^` + datePart + `\s+(?P<desc>.+?)\s+` + amountPart + `\s*` + markerPart + `?\s+` + balancePart + `\s*$`),
	},
	{
		Name: "generic",
		Pattern: regexp.MustCompile(
			`^` + datePart + `\s+(?P<desc>.+?)\s+` + amountPart + `\s*` + markerPart + `?\s*$`),
	},
}

// profiles is the identification and parsing table, in tie-break order.
var profiles = []Profile{
	{
		ID:              Itau,
		DisplayName:     "Itaú",
		COMPE:           "341",
		contentPatterns: []string{"ITAÚ UNIBANCO", "ITAU UNIBANCO", "BANCO ITAÚ", "BANCO ITAU", "ITAÚ", "ITAU"},
		filenameHints:   []string{"itau", "itaú"},
		LineRules: []LineRule{
			// Short date, leading minus on debits, optional balance column.
			{Name: "itau", Pattern: regexp.MustCompile(
				`^(?P<date>\d{2}/\d{2})\s+(?P<desc>.+?)\s+(?P<amount>-?\d{1,3}(?:\.\d{3})*,\d{2})(?:\s+(?P<balance>-?\d{1,3}(?:\.\d{3})*,\d{2}))?\s*$`)},
		},
	},
	{
		ID:              Bradesco,
		DisplayName:     "Bradesco",
		COMPE:           "237",
		contentPatterns: []string{"BRADESCO"},
		filenameHints:   []string{"bradesco"},
		LineRules: []LineRule{
			// Debits carry a trailing minus; an optional document number sits
			// between the history and the amount.
			{Name: "bradesco", Pattern: regexp.MustCompile(
				`^(?P<date>\d{2}/\d{2}/\d{2,4})\s+(?P<desc>.+?)\s+(?:\d{4,12}\s+)?(?P<amount>\d{1,3}(?:\.\d{3})*,\d{2}-?)(?:\s+(?P<balance>\d{1,3}(?:\.\d{3})*,\d{2}-?))?\s*$`)},
		},
	},
	{
		ID:              Santander,
		DisplayName:     "Santander",
		COMPE:           "033",
		contentPatterns: []string{"SANTANDER"},
		filenameHints:   []string{"santander"},
	},
	{
		ID:              BancoDoBrasil,
		DisplayName:     "Banco do Brasil",
		COMPE:           "001",
		contentPatterns: []string{"BANCO DO BRASIL", "BB.COM.BR", "OUROCARD"},
		filenameHints:   []string{"banco_do_brasil", "bancodobrasil", "bb_"},
		LineRules: []LineRule{
			// C/D marker after the amount.
			{Name: "bb", Pattern: regexp.MustCompile(
				`^(?P<date>\d{2}/\d{2}/\d{4})\s+(?P<desc>.+?)\s+(?P<amount>\d{1,3}(?:\.\d{3})*,\d{2})\s*(?P<marker>[CD])\s*$`)},
		},
	},
	{
		ID:              Caixa,
		DisplayName:     "Caixa Econômica Federal",
		COMPE:           "104",
		contentPatterns: []string{"CAIXA ECONÔMICA", "CAIXA ECONOMICA", "CEF"},
		filenameHints:   []string{"caixa", "cef"},
		LineRules: []LineRule{
			// Document number column, C/D marker on both amount and balance.
			{Name: "caixa", Pattern: regexp.MustCompile(
				`^(?P<date>\d{2}/\d{2}/\d{4})\s+(?:\d{4,12}\s+)?(?P<desc>.+?)\s+(?P<amount>\d{1,3}(?:\.\d{3})*,\d{2})\s*(?P<marker>[CD])(?:\s+(?P<balance>\d{1,3}(?:\.\d{3})*,\d{2}\s?[CD]))?\s*$`)},
		},
	},
	{
		ID:              Nubank,
		DisplayName:     "Nubank",
		COMPE:           "260",
		contentPatterns: []string{"NUBANK", "NU PAGAMENTOS"},
		filenameHints:   []string{"nubank", "nu_"},
		LineRules: []LineRule{
			// Full date and a signed amount, sometimes with the R$ symbol.
			{Name: "nubank", Pattern: regexp.MustCompile(
				`^(?P<date>\d{2}/\d{2}/\d{4})\s+(?P<desc>.+?)\s+(?P<amount>-?\s?R?\$?\s?-?\d{1,3}(?:\.\d{3})*,\d{2})\s*$`)},
		},
	},
	{
		ID:              Inter,
		DisplayName:     "Banco Inter",
		COMPE:           "077",
		contentPatterns: []string{"BANCO INTER"},
		filenameHints:   []string{"inter"},
	},
	{
		ID:              C6,
		DisplayName:     "C6 Bank",
		COMPE:           "336",
		contentPatterns: []string{"C6 BANK"},
		filenameHints:   []string{"c6"},
	},
	{
		ID:              Sicoob,
		DisplayName:     "Sicoob",
		COMPE:           "756",
		contentPatterns: []string{"SICOOB"},
		filenameHints:   []string{"sicoob"},
	},
	{
		ID:              Sicredi,
		DisplayName:     "Sicredi",
		COMPE:           "748",
		contentPatterns: []string{"SICREDI"},
		filenameHints:   []string{"sicredi"},
	},
}

// Identify picks the issuer whose patterns score highest against the
// statement text, with the filename as an extra hint. Ties break by table
// order; zero evidence means no identification.
func Identify(text, filename string) (Profile, bool) {
	upper := strings.ToUpper(text)
	lower := strings.ToLower(filename)

	best := -1
	bestScore := 0
	for i, p := range profiles {
		score := 0
		for _, pat := range p.contentPatterns {
			if strings.Contains(upper, pat) {
				score++
				break
			}
		}
		for _, hint := range p.filenameHints {
			if hint != "" && strings.Contains(lower, hint) {
				score++
				break
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 {
		return Profile{}, false
	}
	return profiles[best], true
}

// ByID resolves a profile from its slug.
func ByID(id ID) (Profile, bool) {
	for _, p := range profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// ByCOMPE resolves a profile from the 3-digit clearing code OFX files carry.
func ByCOMPE(code string) (Profile, bool) {
	code = strings.TrimSpace(code)
	for _, p := range profiles {
		if p.COMPE != "" && p.COMPE == code {
			return p, true
		}
	}
	return Profile{}, false
}

// Profiles returns the identification table in tie-break order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Rules returns the profile's line rules followed by the generic fallbacks.
func (p Profile) Rules() []LineRule {
	rules := make([]LineRule, 0, len(p.LineRules)+len(GenericRules))
	rules = append(rules, p.LineRules...)
	rules = append(rules, GenericRules...)
	return rules
}
