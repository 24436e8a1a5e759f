// Package money provides currency-safe financial arithmetic using integer cents
// and the Fowler Money pattern. Amounts from Brazilian documents arrive in mixed
// notations ("1.234,56", "1,234.56", "R$ 50,00"); Parse resolves the decimal
// separator by position instead of assuming a locale.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	BRL = "BRL" // Brazilian Real
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
)

// MaxPlausibleAmount is the upper bound for values extracted from free text.
// Anything above this is treated as a mis-parse (digits of a barcode or a
// document number mistaken for a price), not a real amount.
var MaxPlausibleAmount = decimal.NewFromInt(10_000_000)

var ErrImplausibleAmount = errors.New("amount outside plausible range")

// Money represents a monetary value with currency.
// It wraps go-money for safe arithmetic and shopspring/decimal for precision.
type Money struct {
	m *money.Money
}

// New creates a Money value from cents (minor units) and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromFloat creates Money from a floating-point value.
// Prefer New() with integer cents when possible.
func NewFromFloat(amount float64, currencyCode string) *Money {
	return NewFromDecimal(decimal.NewFromFloat(amount), currencyCode)
}

// NewFromDecimal creates Money from a decimal.Decimal value.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BRL)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()
	return New(cents, currency.Code)
}

// Parse reads an amount in either Brazilian ("1.234,56") or international
// ("1,234.56") notation. When both separators occur, the one appearing last is
// the decimal separator. A lone separator followed by at most two digits is
// decimal; otherwise it is a thousands separator.
func Parse(amount string, currencyCode string) (*Money, error) {
	d, err := ParseDecimal(amount)
	if err != nil {
		return nil, err
	}
	return NewFromDecimal(d, currencyCode), nil
}

// ParseBRL is Parse fixed to BRL, additionally rejecting amounts beyond
// MaxPlausibleAmount.
func ParseBRL(amount string) (*Money, error) {
	d, err := ParseDecimal(amount)
	if err != nil {
		return nil, err
	}
	if d.Abs().GreaterThan(MaxPlausibleAmount) {
		return nil, ErrImplausibleAmount
	}
	return NewFromDecimal(d, BRL), nil
}

// ParseDecimal implements the separator disambiguation and returns the raw
// decimal value.
func ParseDecimal(amount string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amount)
	for _, sym := range []string{"R$", "US$", "$", "€", "£"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	neg := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "(") {
		neg = true
		s = strings.TrimPrefix(s, "-")
		s = strings.Trim(s, "()")
	}
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}

	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// NewFromString parses with an explicit dialect, for callers that already
// sniffed the file format (CSV/Excel imports).
func NewFromString(amount string, currencyCode string, brazilianFormat bool) (*Money, error) {
	s := strings.TrimSpace(amount)
	for _, sym := range []string{"R$", "US$", "$", "€", "£"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")

	if brazilianFormat {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	return NewFromDecimal(d, currencyCode), nil
}

// normalizeSeparators rewrites s into plain decimal notation ("1234.56").
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// Brazilian: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// International: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 <= 2 {
			s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if len(s)-lastDot-1 > 2 {
			// 1.234 with three digits after: thousands separator
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// Zero returns a zero Money value for the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units (cents).
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero.
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsPositive returns true if the amount is greater than zero.
func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

// IsNegative returns true if the amount is less than zero.
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero(BRL)
	}
	return &Money{m: m.m.Absolute()}
}

// Negate returns the negated value.
func (m *Money) Negate() *Money {
	if m == nil || m.m == nil {
		return Zero(BRL)
	}
	return &Money{m: m.m.Negative()}
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// MustAdd adds two Money values, panics if currencies don't match.
func (m *Money) MustAdd(other *Money) *Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract subtracts other from m. Returns error if currencies don't match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		if other == nil {
			return Zero(BRL), nil
		}
		return other.Negate(), nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// MustSubtract subtracts other from m, panics if currencies don't match.
func (m *Money) MustSubtract(other *Money) *Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply multiplies by an integer factor.
func (m *Money) Multiply(factor int64) *Money {
	if m == nil || m.m == nil {
		return Zero(BRL)
	}
	return &Money{m: m.m.Multiply(factor)}
}

// Equals returns true if both values are equal.
func (m *Money) Equals(other *Money) bool {
	if m == nil || m.m == nil {
		return other == nil || other.m == nil || other.IsZero()
	}
	if other == nil || other.m == nil {
		return m.IsZero()
	}
	eq, _ := m.m.Equals(other.m)
	return eq
}

// LessThan returns true if m < other.
func (m *Money) LessThan(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	lt, _ := m.m.LessThan(other.m)
	return lt
}

// GreaterThan returns true if m > other.
func (m *Money) GreaterThan(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	gt, _ := m.m.GreaterThan(other.m)
	return gt
}

// Compare returns -1 if m < other, 0 if equal, 1 if m > other.
func (m *Money) Compare(other *Money) int {
	if m == nil || m.m == nil {
		if other == nil || other.m == nil || other.IsZero() {
			return 0
		}
		if other.IsPositive() {
			return -1
		}
		return 1
	}
	cmp, _ := m.m.Compare(other.m)
	return cmp
}

// WithinTolerance reports whether m and other differ by at most toleranceCents.
// Used for statement balance reconciliation, where per-line rounding can leave
// the computed closing balance a cent or two off.
func (m *Money) WithinTolerance(other *Money, toleranceCents int64) bool {
	diff := m.Amount() - other.Amount()
	if diff < 0 {
		diff = -diff
	}
	return diff <= toleranceCents
}

// Display returns a formatted string for display (e.g., "R$1.234,56").
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "R$0,00"
	}
	return m.m.Display()
}

// String returns the amount as a decimal string (e.g., "1234.56").
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().String()
}

// ToDecimal converts to decimal.Decimal for precise calculations.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// ToFloat64 converts to float64 (display only).
func (m *Money) ToFloat64() float64 {
	return m.ToDecimal().InexactFloat64()
}

// SameCurrency returns true if both have the same currency.
func (m *Money) SameCurrency(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	return m.m.SameCurrency(other.m)
}

// JSON marshaling
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		v.Currency = BRL
	}
	m.m = money.New(v.Amount, v.Currency)
	return nil
}

// SQL scanning: amounts are stored as integer cents, BRL.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		m.m = nil
		return nil
	}
	switch v := value.(type) {
	case int64:
		m.m = money.New(v, BRL)
		return nil
	case float64:
		m.m = money.New(int64(v*100), BRL)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

func (m *Money) Value() (driver.Value, error) {
	if m == nil || m.m == nil {
		return nil, nil
	}
	return m.Amount(), nil
}
