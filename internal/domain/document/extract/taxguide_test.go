package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

func TestRevenueCodeDescription(t *testing.T) {
	desc, ok := RevenueCodeDescription(document.TypeDARF, "0190")
	require.True(t, ok)
	assert.Equal(t, "IRPF carnê-leão", desc)

	desc, ok = RevenueCodeDescription(document.TypeGPS, "1007")
	require.True(t, ok)
	assert.Equal(t, "Contribuinte individual mensal", desc)

	// Composite codes resolve by their leading digits.
	_, ok = RevenueCodeDescription(document.TypeDARF, "1708-02")
	assert.True(t, ok)

	// A GPS code is not a DARF code.
	_, ok = RevenueCodeDescription(document.TypeDARF, "1007")
	assert.False(t, ok)

	// Other guide kinds have no table.
	_, ok = RevenueCodeDescription(document.TypeIPTU, "0190")
	assert.False(t, ok)
}

func TestKnownRevenueCode(t *testing.T) {
	assert.True(t, KnownRevenueCode(document.TypeGPS, "2100"))
	assert.False(t, KnownRevenueCode(document.TypeGPS, "9999"))
}
