// Package statement holds the bank-statement domain model: the parsed
// statement with its ordered transactions, the parse-state vocabulary shared
// by the extraction strategies, and the duplicate detection used when a
// statement is imported more than once.
package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Direction tells whether a transaction moves money in or out.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Source records which file format a statement came from.
type Source string

const (
	SourcePDF   Source = "pdf"
	SourceCSV   Source = "csv"
	SourceOFX   Source = "ofx"
	SourceExcel Source = "xlsx"
)

// ParseState tracks a statement through the extraction pipeline.
type ParseState string

const (
	StateNotStarted          ParseState = "not_started"
	StateBankIdentified      ParseState = "bank_identified"
	StateExtractionAttempted ParseState = "extraction_attempted"
	StateParsed              ParseState = "parsed"
	StateFailed              ParseState = "failed"
)

// CategoryUncategorized is the suggested category when no rule matches.
const CategoryUncategorized = "uncategorized"

var (
	// ErrBankNotRecognized means no issuer profile matched the document.
	ErrBankNotRecognized = errors.New("statement: bank not recognized")
	// ErrPasswordRequired means the PDF is encrypted and no (or a wrong)
	// password was given. It is not a parse failure.
	ErrPasswordRequired = errors.New("statement: password required")
	// ErrEmptyDocument means the file had no extractable content at all.
	ErrEmptyDocument = errors.New("statement: document is empty")
	// ErrNoTransactions means every strategy ran and none produced a single
	// valid transaction.
	ErrNoTransactions = errors.New("statement: no transactions extracted")
	// ErrStrategyUnavailable is returned by a strategy whose capability was
	// not provided; the chain moves on to the next one.
	ErrStrategyUnavailable = errors.New("statement: strategy unavailable")
)

// RawRow is the uniform contract between extraction strategies and the
// normalizer: untyped text cells exactly as they appeared in the document.
type RawRow struct {
	DateText    string
	Description string
	AmountText  string
	// Marker is an explicit direction mark next to the amount: "C", "D",
	// "+", "-", "(+)" or "(-)".
	Marker      string
	BalanceText string
}

// Attempt records one strategy run, for diagnostics and the parse trace.
type Attempt struct {
	Strategy     string `json:"strategy"`
	Rows         int    `json:"rows"`
	Transactions int    `json:"transactions"`
	Err          string `json:"error,omitempty"`
}

// Transaction is one normalized statement line. Amount is signed: credits
// positive, debits negative.
type Transaction struct {
	Date        time.Time    `json:"date"`
	Description string       `json:"description"`
	Amount      *money.Money `json:"amount"`
	Direction   Direction    `json:"direction"`
	Balance     *money.Money `json:"balance,omitempty"`
	Category    string       `json:"suggested_category,omitempty"`
}

// Fingerprint derives the stable duplicate-detection id: the hash of the
// date, the amount in cents and the normalized description.
func (t Transaction) Fingerprint() string {
	var cents int64
	if t.Amount != nil {
		cents = t.Amount.Amount()
	}
	seed := fmt.Sprintf("%s|%d|%s",
		t.Date.Format("2006-01-02"), cents, NormalizeDescription(t.Description))
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription uppercases and collapses whitespace so cosmetic
// differences between imports of the same line do not defeat deduplication.
func NormalizeDescription(desc string) string {
	return strings.Join(strings.Fields(strings.ToUpper(desc)), " ")
}

// Statement is a fully parsed bank statement.
type Statement struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id,omitempty"`
	Bank           string        `json:"bank"`
	BankID         string        `json:"bank_id"`
	Branch         string        `json:"branch,omitempty"`
	Account        string        `json:"account,omitempty"`
	HolderName     string        `json:"holder_name,omitempty"`
	HolderDocument string        `json:"holder_document,omitempty"`
	PeriodStart    time.Time     `json:"period_start,omitempty"`
	PeriodEnd      time.Time     `json:"period_end,omitempty"`
	OpeningBalance *money.Money  `json:"opening_balance,omitempty"`
	ClosingBalance *money.Money  `json:"closing_balance,omitempty"`
	Transactions   []Transaction `json:"transactions"`
	Warnings       []string      `json:"warnings,omitempty"`
	Source         Source        `json:"source"`
	Strategy       string        `json:"strategy,omitempty"`
	Attempts       []Attempt     `json:"attempts,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// New creates an empty statement shell with a fresh id.
func New(source Source) *Statement {
	return &Statement{
		ID:        uuid.New(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// NetMovement sums the signed transaction amounts.
func (s *Statement) NetMovement() *money.Money {
	total := money.New(0, money.BRL)
	for _, t := range s.Transactions {
		if t.Amount != nil {
			total = total.MustAdd(t.Amount)
		}
	}
	return total
}

// Reconcile checks closing ≈ opening + net movement. A mismatch is reported
// as a warning on the statement, never as an error: OCR statements routinely
// lose a line and the user can still work with the rest.
func (s *Statement) Reconcile(toleranceCents int64) bool {
	if s.OpeningBalance == nil || s.ClosingBalance == nil {
		return true
	}
	expected := s.OpeningBalance.MustAdd(s.NetMovement())
	if expected.WithinTolerance(s.ClosingBalance, toleranceCents) {
		return true
	}
	s.Warnings = append(s.Warnings, fmt.Sprintf(
		"balances do not reconcile: opening %s + movement %s = %s, statement says %s",
		s.OpeningBalance.Display(), s.NetMovement().Display(),
		expected.Display(), s.ClosingBalance.Display()))
	return false
}

// RecalculatePeriod derives the covered period from the transaction dates
// when the header did not state one.
func (s *Statement) RecalculatePeriod() {
	if !s.PeriodStart.IsZero() && !s.PeriodEnd.IsZero() {
		return
	}
	for _, t := range s.Transactions {
		if t.Date.IsZero() {
			continue
		}
		if s.PeriodStart.IsZero() || t.Date.Before(s.PeriodStart) {
			s.PeriodStart = t.Date
		}
		if s.PeriodEnd.IsZero() || t.Date.After(s.PeriodEnd) {
			s.PeriodEnd = t.Date
		}
	}
}

// Dedupe splits incoming transactions into fresh ones and duplicates of the
// already-known set. A transaction is a duplicate when date, amount and
// normalized description all match. Neither input is modified and input
// order does not matter.
func Dedupe(incoming, existing []Transaction) (fresh, duplicates []Transaction) {
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[t.Fingerprint()] = struct{}{}
	}
	for _, t := range incoming {
		if _, dup := known[t.Fingerprint()]; dup {
			duplicates = append(duplicates, t)
		} else {
			fresh = append(fresh, t)
		}
	}
	return fresh, duplicates
}
