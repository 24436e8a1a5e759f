package main

import (
	"github.com/spf13/cobra"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/boleto"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

type decodedCode struct {
	BankCode  string       `json:"bank_code"`
	BankName  string       `json:"bank_name,omitempty"`
	DueDate   string       `json:"due_date,omitempty"`
	Amount    *money.Money `json:"amount,omitempty"`
	Barcode   string       `json:"barcode,omitempty"`
	TypedLine string       `json:"typed_line,omitempty"`
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode DIGITS",
		Short: "Decode a boleto payment code",
		Long: `Decode the 44-digit barcode or the 47-48 digit typed line (linha
digitável) of a boleto: issuing bank, due date and amount. Dots, spaces
and separators in the input are ignored.

Examples:
  docscan decode 23799755200000150003381260007827139500006330
  docscan decode "23793.38128 60007.827136 95000.063305 9 75520000015000"`,
		Args: cobra.ExactArgs(1),
		RunE: runDecode,
	}
}

func runDecode(_ *cobra.Command, args []string) error {
	res, err := boleto.Decode(args[0])
	if err != nil {
		return err
	}

	out := decodedCode{
		BankCode:  res.BankCode,
		BankName:  res.BankName,
		Amount:    res.Amount,
		Barcode:   res.Raw44,
		TypedLine: res.Raw47,
	}
	if res.DueDate != nil {
		out.DueDate = res.DueDate.Format("2006-01-02")
	}
	return printJSON(out)
}
