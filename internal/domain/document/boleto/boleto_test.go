package boleto

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// A real-world shaped Bradesco slip: R$ 150,00 due at factor 7552, with the
// officially equivalent barcode produced by de-interleaving the typed line.
const (
	bradescoTypedLine = "23793381286000782713695000063305975520000015000"
	bradescoBarcode   = "23799755200000150003381260007827139500006330"
)

// fixedNow pins the decoding clock so factor-cycle resolution does not
// depend on when the test runs.
func fixedNow(t *testing.T, ref time.Time) {
	t.Helper()
	now = func() time.Time { return ref }
	t.Cleanup(func() { now = time.Now })
}

// firstCycleEra sits close enough to the fixture's 2018 due date that the
// factor resolves in its original cycle.
var firstCycleEra = time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestDecodeLinhaDigitavel(t *testing.T) {
	fixedNow(t, firstCycleEra)

	r, err := DecodeLinhaDigitavel(bradescoTypedLine)
	require.NoError(t, err)

	assert.Equal(t, "237", r.BankCode)
	assert.Equal(t, "Bradesco", r.BankName)
	require.NotNil(t, r.Amount)
	assert.Equal(t, int64(15000), r.Amount.Amount())
	require.NotNil(t, r.DueDate)
	assert.Equal(t, Epoch.AddDate(0, 0, 7552), *r.DueDate)
	assert.Equal(t, bradescoTypedLine, r.Raw47)
	assert.Empty(t, r.Raw44)
}

func TestDecodeBarcode(t *testing.T) {
	fixedNow(t, firstCycleEra)

	r, err := DecodeBarcode(bradescoBarcode)
	require.NoError(t, err)

	assert.Equal(t, "237", r.BankCode)
	require.NotNil(t, r.Amount)
	assert.Equal(t, int64(15000), r.Amount.Amount())
	require.NotNil(t, r.DueDate)
	assert.Equal(t, Epoch.AddDate(0, 0, 7552), *r.DueDate)
	assert.Equal(t, bradescoBarcode, r.Raw44)
	assert.Empty(t, r.Raw47)
}

func TestCrossFormatConsistency(t *testing.T) {
	fixedNow(t, firstCycleEra)

	fromLine, err := DecodeLinhaDigitavel(bradescoTypedLine)
	require.NoError(t, err)
	fromBarcode, err := DecodeBarcode(bradescoBarcode)
	require.NoError(t, err)

	assert.Equal(t, fromLine.BankCode, fromBarcode.BankCode)
	assert.Equal(t, *fromLine.DueDate, *fromBarcode.DueDate)
	assert.True(t, fromLine.Amount.Equals(fromBarcode.Amount))
}

func TestCrossFormatConsistencyGenerated(t *testing.T) {
	fixedNow(t, firstCycleEra)
	gen := money.NewTestDataGeneratorWithSeed(42)

	cases := []struct {
		bank   string
		factor int
		cents  int64
	}{
		{"001", 1000, 5000},
		{"341", 9999, 123456},
		{"104", 5000, 1},
		{"260", 1, 999999},
	}

	for _, tc := range cases {
		line := gen.LinhaDigitavel(tc.bank, tc.factor, tc.cents)
		code := gen.Barcode(tc.bank, tc.factor, tc.cents)

		fromLine, err := DecodeLinhaDigitavel(line)
		require.NoError(t, err)
		fromBarcode, err := DecodeBarcode(code)
		require.NoError(t, err)

		assert.Equal(t, tc.bank, fromLine.BankCode)
		assert.Equal(t, fromLine.BankCode, fromBarcode.BankCode)
		require.NotNil(t, fromLine.DueDate)
		require.NotNil(t, fromBarcode.DueDate)
		assert.Equal(t, *fromLine.DueDate, *fromBarcode.DueDate)
		assert.Equal(t, tc.cents, fromLine.Amount.Amount())
		assert.Equal(t, tc.cents, fromBarcode.Amount.Amount())
	}
}

func TestDueDateFactorArithmetic(t *testing.T) {
	// Seen from inside the first cycle, every factor is plain epoch
	// arithmetic. Clearing-house reference: factor 1000 is 2000-07-03.
	fixedNow(t, time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC))

	due := DueDateFromFactor(1000)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2000, time.July, 3, 0, 0, 0, 0, time.UTC), *due)

	// due - epoch == factor days exactly, for the whole supported range.
	for _, factor := range []int{1, 100, 1000, 4789, 9999} {
		d := DueDateFromFactor(factor)
		require.NotNil(t, d)
		assert.Equal(t, factor, int(d.Sub(Epoch).Hours()/24), "factor %d", factor)
	}
}

func TestDueDateFactorRollover(t *testing.T) {
	// 2025-02-21 closed the first cycle at 9999; the field restarted at
	// 1000 the next day.
	ref := time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC)

	d := dueDate(1000, ref)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, time.February, 22, 0, 0, 0, 0, time.UTC), *d)

	d = dueDate(9999, ref)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, time.February, 21, 0, 0, 0, 0, time.UTC), *d)

	// A slip two years overdue keeps its printed date; the reused factor
	// names a date decades out, so the original cycle is nearer.
	d = dueDate(7552, ref)
	require.NotNil(t, d)
	assert.Equal(t, Epoch.AddDate(0, 0, 7552), *d)

	// The nearest-cycle rule carries through later wraps too.
	d = dueDate(1000, time.Date(2051, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, d)
	assert.Equal(t, Epoch.AddDate(0, 0, 1000+2*factorCycleDays), *d)
}

func TestZeroFactorMeansNoDueDate(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(7)

	r, err := DecodeLinhaDigitavel(gen.LinhaDigitavel("237", 0, 15000))
	require.NoError(t, err)
	assert.Nil(t, r.DueDate)
	require.NotNil(t, r.Amount)

	assert.Nil(t, DueDateFromFactor(0))
	assert.Nil(t, DueDateFromFactor(-5))
}

func TestAmountEdgeCases(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(7)

	t.Run("zero value means no amount", func(t *testing.T) {
		r, err := DecodeLinhaDigitavel(gen.LinhaDigitavel("237", 1000, 0))
		require.NoError(t, err)
		assert.Nil(t, r.Amount)
	})

	t.Run("implausibly large value dropped", func(t *testing.T) {
		// Ten digits of 9s: R$ 99,999,999.99, beyond any real slip.
		r, err := DecodeLinhaDigitavel(gen.LinhaDigitavel("104", 1000, 9999999999))
		require.NoError(t, err)
		assert.Nil(t, r.Amount)
		// The rest of the slip still decodes.
		assert.Equal(t, "104", r.BankCode)
		assert.NotNil(t, r.DueDate)
	})
}

func TestDecodeNormalizesSeparators(t *testing.T) {
	formatted := "23793.38128 60007.827136 95000.063305 9 75520000015000"
	r, err := DecodeLinhaDigitavel(formatted)
	require.NoError(t, err)
	assert.Equal(t, "237", r.BankCode)
	assert.Equal(t, int64(15000), r.Amount.Amount())
	assert.Equal(t, bradescoTypedLine, r.Raw47)
}

func TestDecodeDispatchesByLength(t *testing.T) {
	r, err := Decode(bradescoBarcode)
	require.NoError(t, err)
	assert.Equal(t, bradescoBarcode, r.Raw44)

	r, err = Decode(bradescoTypedLine)
	require.NoError(t, err)
	assert.Equal(t, bradescoTypedLine, r.Raw47)
}

func TestMalformedLengths(t *testing.T) {
	for _, input := range []string{
		"",
		"1234567",
		bradescoTypedLine[:46],    // 46 digits
		bradescoTypedLine + "123", // 50 digits
		bradescoBarcode[:43],      // 43 digits
	} {
		_, err := Decode(input)
		var malformed *MalformedCodeError
		require.Error(t, err, "input %q", input)
		assert.True(t, errors.As(err, &malformed), "input %q", input)
	}

	// The strict entry points also reject the other layout's length.
	_, err := DecodeBarcode(bradescoTypedLine)
	assert.Error(t, err)
	_, err = DecodeLinhaDigitavel(bradescoBarcode)
	assert.Error(t, err)
}

func TestConvenioTypedLine48Digits(t *testing.T) {
	// Arrecadação slips use a 48-digit typed line. The generic layout rules
	// still apply: first 3 digits identify the issuer, last 10 the value.
	line := "846700000017435900240209024050002435842210108119"
	require.Len(t, line, 48)

	r, err := DecodeLinhaDigitavel(line)
	require.NoError(t, err)
	assert.Equal(t, "846", r.BankCode)
	assert.Equal(t, line, r.Raw47)
}

func TestBankName(t *testing.T) {
	assert.Equal(t, "Banco do Brasil", BankName("001"))
	assert.Equal(t, "Nubank", BankName("260"))
	assert.Equal(t, "Banco 999", BankName("999"))
}
