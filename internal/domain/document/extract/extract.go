// Package extract pulls structured fields out of the raw text of Brazilian
// financial documents. Labels are matched per field in priority order; the
// value is whatever follows the label on the same line, cut at the next known
// label and sanity-checked per field. Extraction never fails: a field that
// cannot be read is simply absent.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/boleto"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

const trimCutset = " \t\r:;,.*|–—-"

type validator func(raw string) (string, bool)

type rule struct {
	label string
	re    *regexp.Regexp
}

type fieldSpec struct {
	rules    []rule
	minLen   int
	maxLen   int
	validate validator
}

type bankAlias struct {
	upper   string
	display string
}

// Extractor holds the compiled label rules. Build it once with New and share
// it; it is immutable and safe for concurrent use.
type Extractor struct {
	specs       map[document.FieldKind]*fieldSpec
	boundary    *regexp.Regexp
	plans       map[document.Type][]document.FieldKind
	bankAliases []bankAlias
}

// New compiles the synonym dictionary into an Extractor.
func New() *Extractor {
	e := &Extractor{
		specs: make(map[document.FieldKind]*fieldSpec),
		plans: buildPlans(),
	}

	bounds := map[document.FieldKind]struct{ min, max int }{
		document.FieldValue:       {1, 40},
		document.FieldDueDate:     {6, 40},
		document.FieldBeneficiary: {3, 100},
		document.FieldPayer:       {3, 100},
		document.FieldBank:        {2, 60},
		document.FieldBranch:      {4, 20},
		document.FieldAccount:     {5, 20},
		document.FieldTaxPeriod:   {4, 30},
		document.FieldRevenueCode: {4, 30},
		document.FieldDocumentID:  {4, 60},
		document.FieldCNPJ:        {11, 60},
		document.FieldPixKey:      {5, 80},
		document.FieldEndToEndID:  {10, 60},
	}
	validators := map[document.FieldKind]validator{
		document.FieldValue:       validateMoney,
		document.FieldDueDate:     validateDate,
		document.FieldBeneficiary: validateName,
		document.FieldPayer:       validateName,
		document.FieldBank:        validateBank,
		document.FieldBranch:      validateBranch,
		document.FieldAccount:     validateAccount,
		document.FieldTaxPeriod:   validateTaxPeriod,
		document.FieldRevenueCode: validateRevenueCode,
		document.FieldDocumentID:  validateDocumentID,
		document.FieldCNPJ:        validateCNPJ,
		document.FieldPixKey:      validatePixKey,
		document.FieldEndToEndID:  validateEndToEnd,
	}

	for kind, labels := range synonymDictionary {
		spec := &fieldSpec{
			minLen:   bounds[kind].min,
			maxLen:   bounds[kind].max,
			validate: validators[kind],
		}
		for _, label := range labels {
			spec.rules = append(spec.rules, rule{label: label, re: labelPattern(label)})
		}
		e.specs[kind] = spec
	}

	e.boundary = buildBoundary()

	for _, name := range boleto.Names() {
		upper := strings.ToUpper(name)
		switch upper {
		case "REAL", "SAFRA", "RURAL":
			// Ordinary Portuguese words, matched via labels only.
			continue
		}
		e.bankAliases = append(e.bankAliases, bankAlias{upper: upper, display: name})
	}

	return e
}

// Extract reads every field the document type calls for. Missing or garbled
// fields are left out of the result.
func (e *Extractor) Extract(docType document.Type, text string) document.Fields {
	fields := document.Fields{}
	if strings.TrimSpace(text) == "" {
		return fields
	}
	kinds, ok := e.plans[docType]
	if !ok {
		kinds = e.plans[document.TypeUnknown]
	}

	var typedLine, barcode string
	scanned := false
	for _, kind := range kinds {
		switch kind {
		case document.FieldLinhaDigitavel, document.FieldCodigoBarras:
			if !scanned {
				typedLine, barcode = digitRuns(text)
				scanned = true
			}
			if kind == document.FieldLinhaDigitavel && typedLine != "" {
				fields[document.FieldLinhaDigitavel] = typedLine
			}
			if kind == document.FieldCodigoBarras && barcode != "" {
				fields[document.FieldCodigoBarras] = barcode
			}
		case document.FieldBank:
			value, ok := e.Field(text, kind)
			if !ok {
				value, ok = e.bankFromText(text)
			}
			if ok {
				fields[kind] = value
			}
		default:
			if value, ok := e.Field(text, kind); ok {
				fields[kind] = value
			}
		}
	}

	if fields[document.FieldDocumentID] != "" &&
		fields[document.FieldDocumentID] == fields[document.FieldEndToEndID] {
		delete(fields, document.FieldDocumentID)
	}
	return fields
}

// Field extracts a single field from text. The labels for the field are tried
// in dictionary order; the first capture that survives the sanity checks
// wins.
func (e *Extractor) Field(text string, kind document.FieldKind) (string, bool) {
	spec := e.specs[kind]
	if spec == nil {
		return "", false
	}
	for _, r := range spec.rules {
		m := r.re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		raw := text[m[2]:m[3]]
		raw = e.cutAtBoundary(raw)
		raw = strings.Trim(raw, trimCutset)
		if raw == "" {
			continue
		}
		if utf8.RuneCountInString(raw) < spec.minLen {
			continue
		}
		raw = truncateRunes(raw, spec.maxLen)
		if value, ok := spec.validate(raw); ok {
			return value, true
		}
	}
	return "", false
}

func (e *Extractor) cutAtBoundary(span string) string {
	if loc := e.boundary.FindStringIndex(span); loc != nil {
		return span[:loc[0]]
	}
	return span
}

// bankFromText is the fallback when no bank label is present: scan for a
// known institution name as a standalone word.
func (e *Extractor) bankFromText(text string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, alias := range e.bankAliases {
		start := 0
		for {
			idx := strings.Index(upper[start:], alias.upper)
			if idx < 0 {
				break
			}
			idx += start
			if isStandalone(upper, idx, len(alias.upper)) {
				return alias.display, true
			}
			start = idx + 1
		}
	}
	return "", false
}

func isStandalone(s string, start, length int) bool {
	if before, _ := utf8.DecodeLastRuneInString(s[:start]); unicode.IsLetter(before) {
		return false
	}
	if after, _ := utf8.DecodeRuneInString(s[start+length:]); unicode.IsLetter(after) {
		return false
	}
	return true
}

func labelPattern(label string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?i)`)
	if startsWithLetter(label) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(label))
	if endsWithLetter(label) {
		b.WriteString(`\b[ \t]*[:.\-]?[ \t]*`)
	} else {
		b.WriteString(`[ \t]*`)
	}
	b.WriteString(`([^\n]*)`)
	return regexp.MustCompile(b.String())
}

// buildBoundary compiles every known label into one alternation used to cut
// captured spans. Longest tokens first so "valor total" wins over "valor".
func buildBoundary() *regexp.Regexp {
	seen := make(map[string]struct{})
	var tokens []string
	for _, labels := range synonymDictionary {
		for _, label := range labels {
			if _, dup := seen[label]; !dup {
				seen[label] = struct{}{}
				tokens = append(tokens, label)
			}
		}
	}
	for _, label := range extraBoundaries {
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			tokens = append(tokens, label)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	var b strings.Builder
	b.WriteString(`(?i)(?:`)
	for i, token := range tokens {
		if i > 0 {
			b.WriteByte('|')
		}
		if startsWithLetter(token) {
			b.WriteString(`\b`)
		}
		b.WriteString(regexp.QuoteMeta(token))
		if endsWithLetter(token) {
			b.WriteString(`\b`)
		}
	}
	b.WriteString(`)`)
	return regexp.MustCompile(b.String())
}

func buildPlans() map[document.Type][]document.FieldKind {
	taxGuide := []document.FieldKind{
		document.FieldLinhaDigitavel,
		document.FieldCodigoBarras,
		document.FieldValue,
		document.FieldDueDate,
		document.FieldTaxPeriod,
		document.FieldPayer,
		document.FieldCNPJ,
		document.FieldDocumentID,
	}
	plans := map[document.Type][]document.FieldKind{
		document.TypeBoleto: {
			document.FieldLinhaDigitavel,
			document.FieldCodigoBarras,
			document.FieldValue,
			document.FieldDueDate,
			document.FieldBeneficiary,
			document.FieldPayer,
			document.FieldCNPJ,
			document.FieldDocumentID,
			document.FieldBank,
		},
		document.TypePix: {
			document.FieldValue,
			document.FieldBeneficiary,
			document.FieldPayer,
			document.FieldPixKey,
			document.FieldEndToEndID,
			document.FieldCNPJ,
			document.FieldBank,
			document.FieldDocumentID,
		},
		document.TypeTransfer: {
			document.FieldValue,
			document.FieldBeneficiary,
			document.FieldPayer,
			document.FieldBank,
			document.FieldBranch,
			document.FieldAccount,
			document.FieldCNPJ,
			document.FieldDocumentID,
		},
		document.TypeBankStatement: {
			document.FieldBank,
			document.FieldBranch,
			document.FieldAccount,
			document.FieldCNPJ,
		},
		document.TypeUnknown: {
			document.FieldLinhaDigitavel,
			document.FieldCodigoBarras,
			document.FieldValue,
			document.FieldDueDate,
			document.FieldBeneficiary,
			document.FieldPayer,
			document.FieldCNPJ,
			document.FieldDocumentID,
		},
	}
	for _, t := range document.TaxGuideTypes {
		plans[t] = taxGuide
	}
	// DARF and GPS carry a revenue code that picks the exact tax.
	withRevenue := append([]document.FieldKind{document.FieldRevenueCode}, taxGuide...)
	plans[document.TypeDARF] = withRevenue
	plans[document.TypeGPS] = withRevenue
	return plans
}

func validateMoney(raw string) (string, bool) {
	token := moneyTokenRe.FindString(raw)
	if token == "" {
		return "", false
	}
	dec, err := money.ParseDecimal(token)
	if err != nil {
		return "", false
	}
	if !dec.IsPositive() || dec.GreaterThan(money.MaxPlausibleAmount) {
		return "", false
	}
	return dec.StringFixed(2), true
}

var moneyTokenRe = regexp.MustCompile(`\d(?:[\d.,]*\d)?`)

func validateDate(raw string) (string, bool) {
	t, ok := parseDate(raw)
	if !ok {
		return "", false
	}
	return t.Format(document.DateLayout), true
}

func validateName(raw string) (string, bool) {
	// Collapse the space runs OCR leaves behind.
	name := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(name) < 3 {
		return "", false
	}
	return name, true
}

func validateBank(raw string) (string, bool) {
	if code := bankCodeRe.FindString(raw); code != "" {
		return boleto.BankName(code), true
	}
	if utf8.RuneCountInString(raw) >= 2 {
		return raw, true
	}
	return "", false
}

func validateBranch(raw string) (string, bool) {
	if m := branchRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

func validateAccount(raw string) (string, bool) {
	if m := accountRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

func validateTaxPeriod(raw string) (string, bool) {
	// Month 13 is the GPS thirteenth-salary competência.
	if m := monthYearRe.FindStringSubmatch(raw); m != nil {
		return m[1] + "/" + m[2], true
	}
	if m := yearOnlyRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

func validateRevenueCode(raw string) (string, bool) {
	if m := revenueCodeRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

func validateDocumentID(raw string) (string, bool) {
	if !strings.ContainsAny(raw, "0123456789") {
		return "", false
	}
	return raw, true
}

func validateCNPJ(raw string) (string, bool) {
	if m := cnpjRe.FindString(raw); m != "" {
		return m, true
	}
	if m := cpfRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

func validatePixKey(raw string) (string, bool) {
	// Phone before CPF: a bare mobile number also looks like eleven CPF
	// digits.
	for _, re := range []*regexp.Regexp{emailRe, uuidRe, cnpjRe, phoneRe, cpfRe} {
		if m := re.FindString(raw); m != "" {
			return m, true
		}
	}
	return "", false
}

func validateEndToEnd(raw string) (string, bool) {
	if m := e2eRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

// \b in regexp is ASCII-only, so tokens that start or end on an accented
// letter skip the word-boundary anchor and lean on trimming instead.
func startsWithLetter(s string) bool {
	return len(s) > 0 && isASCIIAlnum(rune(s[0]))
}

func endsWithLetter(s string) bool {
	return len(s) > 0 && isASCIIAlnum(rune(s[len(s)-1]))
}

func isASCIIAlnum(r rune) bool {
	return r == '_' ||
		('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z')
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimRight(string([]rune(s)[:max]), " ")
}
