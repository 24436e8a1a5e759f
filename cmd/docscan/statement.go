package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/categorization"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/normalizer"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/parser"
	statementservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/pdf"
)

// builtinCategorizers serves the builtin merchant table to every caller.
// There is no database offline, so there are no per-user rules to load.
type builtinCategorizers struct {
	svc *categorization.Service
}

func (b builtinCategorizers) ForUser(context.Context, uuid.UUID) normalizer.Categorizer {
	return b.svc
}

func statementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement FILE",
		Short: "Parse a bank statement",
		Long: `Parse one bank statement in PDF, CSV, OFX or XLSX form and print the
normalized transactions.

The bank is identified from the file itself when possible; pass --bank for
anonymous exports that carry no bank marker.

Examples:
  docscan statement extrato_nubank.csv
  docscan statement --bank 341 export.csv
  docscan statement --password segredo extrato.xlsx
  docscan statement --format ofx extrato.dat`,
		Args: cobra.ExactArgs(1),
		RunE: runStatement,
	}
	cmd.Flags().String("bank", "", "issuing bank, as a profile slug or 3-digit clearing code")
	cmd.Flags().String("password", "", "password for an encrypted PDF or XLSX")
	cmd.Flags().String("format", "", "force the format (csv, ofx, pdf, xlsx) instead of sniffing")
	return cmd
}

func runStatement(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	bankHint, _ := cmd.Flags().GetString("bank")
	password, _ := cmd.Flags().GetString("password")
	format, _ := cmd.Flags().GetString("format")

	filename := filepath.Base(args[0])
	if format != "" {
		switch strings.ToLower(format) {
		case "csv", "ofx", "pdf", "xlsx":
			// Source detection keys off the extension; keep the base name
			// so bank identification from the filename still works.
			filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + "." + strings.ToLower(format)
		default:
			return fmt.Errorf("unknown format %q, want csv, ofx, pdf or xlsx", format)
		}
	}

	text, extractor := textPipeline(cmd, logger)
	caps := parser.Capabilities{
		Text:           text,
		TablesPrimary:  pdf.NewColumnTables(extractor),
		TablesFallback: pdf.NewGapTables(extractor),
		TextLayer:      extractor,
	}
	cats := builtinCategorizers{svc: categorization.NewService(nil, logger)}
	svc := statementservice.New(caps, nil, cats, logger)

	imp, err := svc.Process(cmd.Context(), uuid.Nil, statementservice.Upload{
		Data:     data,
		Filename: filename,
		Password: password,
		BankHint: bankHint,
	})
	switch {
	case errors.Is(err, statement.ErrPasswordRequired):
		return fmt.Errorf("%w (re-run with --password)", err)
	case errors.Is(err, statement.ErrBankNotRecognized):
		return fmt.Errorf("%w (re-run with --bank SLUG or --bank COMPE)", err)
	case err != nil:
		return err
	}
	return printJSON(imp)
}
