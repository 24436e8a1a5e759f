// Package document defines the normalized output of the extraction pipeline:
// every supported Brazilian document kind (boletos, PIX/TED receipts, tax
// guides, statements) converges on an ExtractionResult with a confidence
// score before reaching the confirmation step.
package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Type identifies the kind of financial document.
type Type string

const (
	TypeBoleto        Type = "boleto"
	TypePix           Type = "pix"
	TypeTransfer      Type = "transfer"
	TypeBankStatement Type = "bank_statement"
	TypeDARF          Type = "darf"
	TypeGPS           Type = "gps"
	TypeDAS           Type = "das"
	TypeDASMEI        Type = "das_mei"
	TypeFGTS          Type = "fgts"
	TypeIPTU          Type = "iptu"
	TypeIPVA          Type = "ipva"
	TypeICMS          Type = "icms"
	TypeISS           Type = "iss"
	TypeITR           Type = "itr"
	TypeITBI          Type = "itbi"
	TypeITCMD         Type = "itcmd"
	TypeUnknown       Type = "unknown"
)

// TaxGuideTypes lists the tax-guide kinds, most specific first. The order is
// also the tie-break priority used by the classifier.
var TaxGuideTypes = []Type{
	TypeDARF, TypeGPS, TypeFGTS, TypeDASMEI, TypeDAS,
	TypeIPTU, TypeIPVA, TypeICMS, TypeISS, TypeITR, TypeITBI, TypeITCMD,
}

// IsTaxGuide reports whether t is one of the tax-guide kinds.
func (t Type) IsTaxGuide() bool {
	for _, g := range TaxGuideTypes {
		if t == g {
			return true
		}
	}
	return false
}

// FieldKind names a semantic field an extractor can produce.
type FieldKind string

const (
	FieldValue          FieldKind = "value"
	FieldDueDate        FieldKind = "due_date"
	FieldBeneficiary    FieldKind = "beneficiary"
	FieldPayer          FieldKind = "payer"
	FieldBank           FieldKind = "bank"
	FieldBranch         FieldKind = "branch"
	FieldAccount        FieldKind = "account"
	FieldTaxPeriod      FieldKind = "tax_period"
	FieldRevenueCode    FieldKind = "revenue_code"
	FieldDocumentID     FieldKind = "document_id"
	FieldLinhaDigitavel FieldKind = "linha_digitavel"
	FieldCodigoBarras   FieldKind = "codigo_barras"
	FieldCNPJ           FieldKind = "cnpj"
	FieldPixKey         FieldKind = "pix_key"
	FieldEndToEndID     FieldKind = "end_to_end_id"
)

// DateLayout is the wire format for due_date field values.
const DateLayout = "2006-01-02"

// MaxSourceText bounds how much of the original text an ExtractionResult
// retains for audit.
const MaxSourceText = 2000

// Fields maps semantic field names to their extracted string values. Absence
// of a key means "unknown", never "zero".
type Fields map[FieldKind]string

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Value parses the monetary value field, if present and well-formed.
func (f Fields) Value() (*money.Money, bool) {
	raw, ok := f[FieldValue]
	if !ok {
		return nil, false
	}
	m, err := money.ParseBRL(raw)
	if err != nil {
		return nil, false
	}
	return m, true
}

// DueDate parses the due-date field, if present and well-formed.
func (f Fields) DueDate() (time.Time, bool) {
	raw, ok := f[FieldDueDate]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ExtractionResult is the universal output of the pipeline. It is created once
// per submission and is immutable after scoring; the confirmation workflow
// edits a copy, whose confidence is trusted as-is, not recomputed.
type ExtractionResult struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"document_type"`
	Fields     Fields    `json:"fields"`
	Confidence float64   `json:"confidence"`
	SourceText string    `json:"source_text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewExtractionResult builds a result with a fresh id and bounded source text.
func NewExtractionResult(docType Type, fields Fields, sourceText string) *ExtractionResult {
	if fields == nil {
		fields = Fields{}
	}
	return &ExtractionResult{
		ID:         uuid.New(),
		Type:       docType,
		Fields:     fields,
		SourceText: truncate(sourceText, MaxSourceText),
		CreatedAt:  time.Now().UTC(),
	}
}

// Clone returns a deep copy, used when the confirmation workflow edits fields.
func (r *ExtractionResult) Clone() *ExtractionResult {
	cp := *r
	cp.Fields = r.Fields.Clone()
	return &cp
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

// CommittedDocument is what confirmation hands to the bookkeeping collaborator:
// the accepted result plus the actions the user selected.
type CommittedDocument struct {
	Result      *ExtractionResult `json:"result"`
	UserID      uuid.UUID         `json:"user_id"`
	Actions     []Action          `json:"actions"`
	ConfirmedAt time.Time         `json:"confirmed_at"`
}

// Action is a side effect the user can select at confirmation time.
type Action string

const (
	ActionScheduleReminder Action = "schedule_reminder"
	ActionRecordExpense    Action = "record_expense"
	ActionMarkPaid         Action = "mark_paid"
)

// ValidAction reports whether a is one of the fixed action set.
func ValidAction(a Action) bool {
	switch a {
	case ActionScheduleReminder, ActionRecordExpense, ActionMarkPaid:
		return true
	}
	return false
}

// DecimalFromFields is a convenience for repositories storing the value as a
// numeric column.
func DecimalFromFields(f Fields) (decimal.Decimal, bool) {
	m, ok := f.Value()
	if !ok {
		return decimal.Zero, false
	}
	return m.ToDecimal(), true
}
