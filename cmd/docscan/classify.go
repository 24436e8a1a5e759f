package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	documentservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/service"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Classify a document and extract its fields",
		Long: `Classify one document (PDF or plain text) and extract its fields: type,
amount, due date, beneficiary, payment codes.

Examples:
  docscan classify boleto.pdf
  docscan classify --password segredo fatura.pdf
  docscan classify recibo_pix.txt`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}
	cmd.Flags().String("password", "", "password for an encrypted PDF")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	password, _ := cmd.Flags().GetString("password")

	text, _ := textPipeline(cmd, logger)
	svc := documentservice.New(text, nil, nil, nil, logger)

	res, err := svc.ClassifyAndExtract(cmd.Context(), documentservice.Input{
		Data:     data,
		Filename: filepath.Base(args[0]),
		Password: password,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}
