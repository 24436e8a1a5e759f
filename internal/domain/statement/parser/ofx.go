package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// OFXMeta is the account and balance information an OFX file states outright,
// so the service does not have to re-derive it from text.
type OFXMeta struct {
	BankCode    string
	Branch      string
	Account     string
	Currency    string
	Closing     *money.Money
	ClosingDate time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// ParseOFX reads the first bank or card statement in an OFX/Money file. Rows
// come back in the shared raw-row contract; dates are re-emitted in ISO form
// and amounts with their OFX sign, so the normalizer treats them like any
// other source.
func ParseOFX(data []byte) (Result, OFXMeta, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(preprocessOFX(data)))
	if err != nil {
		return Result{}, OFXMeta{}, fmt.Errorf("parse ofx: %w", err)
	}

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		meta := OFXMeta{
			BankCode: normalizeBankID(string(stmt.BankAcctFrom.BankID)),
			Branch:   string(stmt.BankAcctFrom.BranchID),
			Account:  string(stmt.BankAcctFrom.AcctID),
			Currency: stmt.CurDef.String(),
		}
		res := Result{}
		fillOFXBalance(&res, &meta, stmt.BalAmt, stmt.DtAsOf.Time)
		fillOFXRows(&res, &meta, stmt.BankTranList)
		return res, meta, nil
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		meta := OFXMeta{
			Account:  string(stmt.CCAcctFrom.AcctID),
			Currency: stmt.CurDef.String(),
		}
		res := Result{}
		fillOFXBalance(&res, &meta, stmt.BalAmt, stmt.DtAsOf.Time)
		fillOFXRows(&res, &meta, stmt.BankTranList)
		return res, meta, nil
	}

	return Result{}, OFXMeta{}, statement.ErrEmptyDocument
}

func fillOFXBalance(res *Result, meta *OFXMeta, bal ofxgo.Amount, asOf time.Time) {
	dec, err := money.ParseDecimal(bal.Rat.FloatString(2))
	if err != nil {
		return
	}
	meta.Closing = money.NewFromDecimal(dec, money.BRL)
	meta.ClosingDate = asOf
	res.Closing = meta.Closing
}

func fillOFXRows(res *Result, meta *OFXMeta, list *ofxgo.TransactionList) {
	if list == nil {
		return
	}
	meta.PeriodStart = list.DtStart.Time
	meta.PeriodEnd = list.DtEnd.Time
	for _, tx := range list.Transactions {
		desc := string(tx.Name)
		if tx.Payee != nil && tx.Payee.Name != "" {
			desc = string(tx.Payee.Name)
		}
		if memo := string(tx.Memo); memo != "" {
			upperDesc, upperMemo := strings.ToUpper(desc), strings.ToUpper(memo)
			switch {
			case desc == "", strings.Contains(upperMemo, upperDesc):
				desc = memo
			case strings.Contains(upperDesc, upperMemo):
				// Name already says it all.
			default:
				desc = desc + " " + memo
			}
		}
		res.Rows = append(res.Rows, statement.RawRow{
			DateText:    tx.DtPosted.Time.Format("2006-01-02"),
			Description: desc,
			AmountText:  tx.TrnAmt.Rat.FloatString(2),
			Marker:      ofxMarker(tx.TrnType.String()),
		})
	}
}

// ofxMarker maps unambiguous OFX transaction types to a direction marker.
// Everything else is decided by the amount's sign.
func ofxMarker(trnType string) string {
	switch trnType {
	case "CREDIT", "DEP", "DIRECTDEP", "INT", "DIV":
		return "C"
	case "DEBIT", "FEE", "SRVCHG", "CHECK", "PAYMENT", "DIRECTDEBIT", "ATM", "POS", "CASH":
		return "D"
	}
	return ""
}

// normalizeBankID turns OFX BANKID values like "0341" into the 3-digit COMPE
// form used everywhere else.
func normalizeBankID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	trimmed := strings.TrimLeft(id, "0")
	for len(trimmed) < 3 {
		trimmed = "0" + trimmed
	}
	if len(trimmed) > 3 {
		return id
	}
	return trimmed
}

var (
	ofxSeverityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	ofxOpenTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	ofxEntityRe   = regexp.MustCompile(`&(amp;|lt;|gt;|quot;|apos;|#[0-9]+;)?`)
)

// preprocessOFX fixes the malformed SGML banks actually emit before the real
// parser sees it: leading blank lines, mixed-case SEVERITY values, opening
// tags missing their closing bracket, and bare ampersands in payee names.
func preprocessOFX(data []byte) []byte {
	s := strings.TrimLeft(string(data), " \t\r\n")
	s = ofxSeverityRe.ReplaceAllStringFunc(s, strings.ToUpper)
	s = ofxOpenTagRe.ReplaceAllString(s, "$1>")
	s = ofxEntityRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
	return []byte(s)
}
