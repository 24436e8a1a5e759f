// Command docscan runs the document pipeline without the server: classify a
// receipt or tax guide, decode a payment code, parse a bank statement.
// Results go to stdout as JSON, logs to stderr.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/ocr"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/pdf"
)

var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "Classify Brazilian financial documents from the command line",
	Long: `docscan runs the same extraction pipeline as the API server, offline:
classify boletos, PIX receipts and tax guides, decode payment codes, and
parse bank statements in PDF, CSV, OFX or XLSX form.

Results are printed as JSON on stdout; logs go to stderr.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("ocr", true, "fall back to OCR when a PDF has no text layer")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(statementCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds a stderr logger so stdout stays pure JSON.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// textPipeline builds the extraction chain the server uses: embedded text
// layer first, OCR only for scanned pages with images.
func textPipeline(cmd *cobra.Command, logger *slog.Logger) (*ocr.TextSource, *pdf.Extractor) {
	extractor := pdf.NewExtractor(logger)
	var client *ocr.Client
	if useOCR, _ := cmd.Flags().GetBool("ocr"); useOCR {
		client = ocr.New(logger)
	}
	return ocr.NewTextSource(extractor, extractor, client), extractor
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
