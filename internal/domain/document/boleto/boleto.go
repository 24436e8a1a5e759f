// Package boleto decodes the numeric codes printed on Brazilian payment
// slips: the 44-digit barcode and its 47-48 digit typed representation
// ("linha digitável"). Both encode the destination bank, a due date expressed
// as a day offset from a fixed epoch, and the face value in cents.
package boleto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Epoch is the clearing-system reference date: the due-date factor counts
// days from here.
var Epoch = time.Date(1997, time.October, 7, 0, 0, 0, 0, time.UTC)

// The factor field hit 9999 on 2025-02-21 and restarted at 1000 the next
// day, so a factor names one date per 9000-day cycle. Decoding picks the
// cycle whose date lies nearest the processing date: anything more than half
// a cycle overdue reads as the next cycle.
const (
	factorCycleDays = 9000
	factorHalfCycle = 4500
)

var now = time.Now

// Amounts above this many cents mean the value field was not really a value
// (common on convênio/utility slips, which reuse those positions).
const maxPlausibleCents = 1_000_000_000 // R$ 10,000,000.00

// Field positions per layout.
const (
	typedLineFactorStart = 33
	typedLineFactorEnd   = 37
	typedLineAmountStart = 37
	typedLineAmountEnd   = 47

	barcodeFactorStart = 5
	barcodeFactorEnd   = 9
	barcodeAmountStart = 9
	barcodeAmountEnd   = 19
)

// MalformedCodeError reports input whose digit count matches no known layout.
// This is the only hard decoding failure; everything else degrades to a
// partial Result.
type MalformedCodeError struct {
	Digits int
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("payment code has %d digits, want 44 (barcode) or 47-48 (typed line)", e.Digits)
}

// Result is the decoded content of a payment code. DueDate is nil when the
// factor field is zero (no due date encoded); Amount is nil when the value
// field is zero or implausible.
type Result struct {
	BankCode string
	BankName string
	DueDate  *time.Time
	Amount   *money.Money
	Raw44    string
	Raw47    string
}

// Decode normalizes the input and dispatches on digit count.
func Decode(code string) (*Result, error) {
	digits := onlyDigits(code)
	switch len(digits) {
	case 44:
		return decodeDigits(digits, "", barcodeFactorStart, barcodeFactorEnd, barcodeAmountStart, barcodeAmountEnd)
	case 47, 48:
		return decodeDigits("", digits, typedLineFactorStart, typedLineFactorEnd, typedLineAmountStart, typedLineAmountEnd)
	default:
		return nil, &MalformedCodeError{Digits: len(digits)}
	}
}

// DecodeBarcode decodes the 44-digit barcode layout.
func DecodeBarcode(code string) (*Result, error) {
	digits := onlyDigits(code)
	if len(digits) != 44 {
		return nil, &MalformedCodeError{Digits: len(digits)}
	}
	return decodeDigits(digits, "", barcodeFactorStart, barcodeFactorEnd, barcodeAmountStart, barcodeAmountEnd)
}

// DecodeLinhaDigitavel decodes the 47-48 digit typed line layout.
func DecodeLinhaDigitavel(code string) (*Result, error) {
	digits := onlyDigits(code)
	if len(digits) != 47 && len(digits) != 48 {
		return nil, &MalformedCodeError{Digits: len(digits)}
	}
	return decodeDigits("", digits, typedLineFactorStart, typedLineFactorEnd, typedLineAmountStart, typedLineAmountEnd)
}

func decodeDigits(raw44, raw47 string, factorStart, factorEnd, amountStart, amountEnd int) (*Result, error) {
	digits := raw44
	if digits == "" {
		digits = raw47
	}

	r := &Result{
		BankCode: digits[0:3],
		BankName: BankName(digits[0:3]),
		Raw44:    raw44,
		Raw47:    raw47,
	}

	// Integer day arithmetic from the epoch; factor zero means the slip
	// carries no due date.
	if factor, err := strconv.Atoi(digits[factorStart:factorEnd]); err == nil && factor > 0 {
		r.DueDate = dueDate(factor, now())
	}

	if cents, err := strconv.ParseInt(digits[amountStart:amountEnd], 10, 64); err == nil {
		if cents > 0 && cents <= maxPlausibleCents {
			r.Amount = money.New(cents, money.BRL)
		}
	}

	return r, nil
}

// DueDateFromFactor exposes the factor-to-date conversion for callers that
// already isolated the 4-digit field.
func DueDateFromFactor(factor int) *time.Time {
	return dueDate(factor, now())
}

func dueDate(factor int, ref time.Time) *time.Time {
	if factor <= 0 {
		return nil
	}
	due := Epoch.AddDate(0, 0, factor)
	for ref.Sub(due) > factorHalfCycle*24*time.Hour {
		due = due.AddDate(0, 0, factorCycleDays)
	}
	return &due
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
