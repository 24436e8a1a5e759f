package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		want     int64
	}{
		{"positive cents", 1234, BRL, 1234},
		{"zero", 0, BRL, 0},
		{"negative cents", -5000, BRL, -5000},
		{"large amount", 999999999, BRL, 999999999},
		{"dollar", 1000, USD, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.cents, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"brazilian thousands", "1.234,56", "1234.56"},
		{"international thousands", "1,234.56", "1234.56"},
		{"currency symbol brazilian", "R$ 50,00", "50"},
		{"currency symbol international", "$50.00", "50"},
		{"plain integer", "150", "150"},
		{"comma decimal only", "89,90", "89.9"},
		{"dot decimal only", "89.90", "89.9"},
		{"dot thousands no decimal", "1.234", "1234"},
		{"comma thousands no decimal", "1,234", "1234"},
		{"negative prefix", "-42,50", "-42.5"},
		{"negative suffix", "42,50-", "-42.5"},
		{"parenthesized", "(42,50)", "-42.5"},
		{"large brazilian", "12.345.678,90", "12345678.9"},
		{"nbsp after symbol", "R$ 150,00", "150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"ParseDecimal(%q) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestParseDecimalErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "R$", "abc"} {
		_, err := ParseDecimal(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseBRL(t *testing.T) {
	t.Run("valid amount", func(t *testing.T) {
		m, err := ParseBRL("R$ 150,00")
		require.NoError(t, err)
		assert.Equal(t, int64(15000), m.Amount())
		assert.Equal(t, BRL, m.Currency())
	})

	t.Run("rejects implausible amount", func(t *testing.T) {
		_, err := ParseBRL("99.999.999.999,00")
		assert.ErrorIs(t, err, ErrImplausibleAmount)
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		m, err := ParseBRL("10.000.000,00")
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000_000), m.Amount())
	})
}

func TestNewFromString(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		currency  string
		brazilian bool
		want      int64
		wantErr   bool
	}{
		{"simple", "123.45", BRL, false, 12345, false},
		{"with comma thousands", "1,234.56", BRL, false, 123456, false},
		{"brazilian format", "1.234,56", BRL, true, 123456, false},
		{"with real sign", "R$99,99", BRL, true, 9999, false},
		{"with spaces", "  100.00  ", BRL, false, 10000, false},
		{"invalid", "abc", BRL, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromString(tt.amount, tt.currency, tt.brazilian)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := New(10000, BRL)
	b := New(5000, BRL)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), sum.Amount())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), diff.Amount())

	_, err = a.Add(New(100, USD))
	assert.Error(t, err, "mixed currencies must not add")

	assert.Equal(t, int64(-10000), a.Negate().Amount())
	assert.Equal(t, int64(10000), a.Negate().Abs().Amount())
	assert.Equal(t, int64(30000), a.Multiply(3).Amount())
}

func TestComparison(t *testing.T) {
	a := New(100, BRL)
	b := New(200, BRL)

	assert.True(t, a.LessThan(b))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, a.Equals(New(100, BRL)))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(New(100, BRL)))
}

func TestWithinTolerance(t *testing.T) {
	a := New(12000, BRL)

	assert.True(t, a.WithinTolerance(New(12001, BRL), 2))
	assert.True(t, a.WithinTolerance(New(11999, BRL), 2))
	assert.False(t, a.WithinTolerance(New(12010, BRL), 2))
}

func TestToDecimal(t *testing.T) {
	m := New(123456, BRL)
	assert.Equal(t, "1234.56", m.ToDecimal().String())
	assert.InDelta(t, 1234.56, m.ToFloat64(), 0.0001)
}

func TestJSONRoundTrip(t *testing.T) {
	m := New(15000, BRL)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, int64(15000), back.Amount())
	assert.Equal(t, BRL, back.Currency())
}

func TestSQLScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan(int64(4200)))
	assert.Equal(t, int64(4200), m.Amount())
	assert.Equal(t, BRL, m.Currency())

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(4200), v)
}

func TestNilSafety(t *testing.T) {
	var m *Money

	assert.Equal(t, int64(0), m.Amount())
	assert.True(t, m.IsZero())
	assert.False(t, m.IsPositive())
	assert.Equal(t, "0.00", m.String())

	sum, err := m.Add(New(100, BRL))
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum.Amount())
}
