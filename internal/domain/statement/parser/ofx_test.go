package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// A bank OFX 1.02 export the way Brazilian banks actually emit it: SGML tags
// without closing brackets, a leading blank line and a raw ampersand in a
// payee name.
const bankOFX = `
OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240501120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0341
<BRANCHID>0912
<ACCTID>34567-8
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240401
<DTEND>20240430
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240405
<TRNAMT>1500.00
<FITID>202404051
<NAME>PIX RECEBIDO
<MEMO>PIX RECEBIDO MARIA SILVA
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240406
<TRNAMT>-23.50
<FITID>202404062
<NAME>PADARIA PAO & CIA
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2476.50
<DTASOF>20240430
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestParseOFX(t *testing.T) {
	res, meta, err := ParseOFX([]byte(bankOFX))
	require.NoError(t, err)

	assert.Equal(t, "341", meta.BankCode, "OFX bank ids come zero-padded")
	assert.Equal(t, "0912", meta.Branch)
	assert.Equal(t, "34567-8", meta.Account)
	assert.Equal(t, "BRL", meta.Currency)
	assert.Equal(t, "2024-04-01", meta.PeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2024-04-30", meta.PeriodEnd.Format("2006-01-02"))

	require.NotNil(t, meta.Closing)
	assert.Equal(t, int64(247650), meta.Closing.Amount())
	assert.Equal(t, "2024-04-30", meta.ClosingDate.Format("2006-01-02"))
	assert.Equal(t, meta.Closing, res.Closing)

	require.Len(t, res.Rows, 2)

	assert.Equal(t, "2024-04-05", res.Rows[0].DateText)
	assert.Equal(t, "1500.00", res.Rows[0].AmountText)
	assert.Equal(t, "C", res.Rows[0].Marker)
	assert.Equal(t, "PIX RECEBIDO MARIA SILVA", res.Rows[0].Description,
		"a memo that extends the name replaces it")

	assert.Equal(t, "2024-04-06", res.Rows[1].DateText)
	assert.Equal(t, "-23.50", res.Rows[1].AmountText)
	assert.Equal(t, "D", res.Rows[1].Marker)
	assert.Equal(t, "PADARIA PAO & CIA", res.Rows[1].Description)
}

func TestParseOFXGarbage(t *testing.T) {
	_, _, err := ParseOFX([]byte("isto não é um arquivo ofx"))
	assert.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	t.Run("leading whitespace trimmed", func(t *testing.T) {
		got := string(preprocessOFX([]byte("\r\n  \nOFXHEADER:100")))
		assert.True(t, strings.HasPrefix(got, "OFXHEADER"))
	})

	t.Run("bare ampersand escaped, entities kept", func(t *testing.T) {
		got := string(preprocessOFX([]byte("<NAME>PAO & CIA &amp; FILHOS &#38; CO")))
		assert.Equal(t, "<NAME>PAO &amp; CIA &amp; FILHOS &#38; CO", got)
	})

	t.Run("severity case normalized", func(t *testing.T) {
		got := string(preprocessOFX([]byte("<SEVERITY>Info</SEVERITY>")))
		assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", got)
	})

	t.Run("missing closing bracket repaired", func(t *testing.T) {
		got := string(preprocessOFX([]byte("<OFX\n<SIGNONMSGSRSV1\n<SONRS>")))
		assert.Equal(t, "<OFX>\n<SIGNONMSGSRSV1>\n<SONRS>", got)
	})
}

func TestOFXMarker(t *testing.T) {
	assert.Equal(t, "C", ofxMarker("CREDIT"))
	assert.Equal(t, "C", ofxMarker("DIRECTDEP"))
	assert.Equal(t, "D", ofxMarker("PAYMENT"))
	assert.Equal(t, "D", ofxMarker("ATM"))
	assert.Equal(t, "", ofxMarker("OTHER"), "ambiguous types defer to the amount sign")
	assert.Equal(t, "", ofxMarker("XFER"))
}

func TestNormalizeBankID(t *testing.T) {
	assert.Equal(t, "341", normalizeBankID("0341"))
	assert.Equal(t, "341", normalizeBankID("341"))
	assert.Equal(t, "001", normalizeBankID("1"))
	assert.Equal(t, "12345", normalizeBankID("12345"), "non-COMPE ids pass through untouched")
	assert.Equal(t, "", normalizeBankID("  "))
}

func TestParseOFXWithoutStatements(t *testing.T) {
	// Valid signon, no statement blocks.
	onlySignon := `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240501120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
</OFX>
`
	_, _, err := ParseOFX([]byte(onlySignon))
	assert.ErrorIs(t, err, statement.ErrEmptyDocument)
}
