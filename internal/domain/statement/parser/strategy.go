// Package parser extracts transaction rows from statement files. PDF
// extraction runs an ordered chain of strategies over injected capabilities;
// the first strategy that yields valid transactions wins and results are
// never merged across strategies. CSV, OFX and spreadsheet files have their
// own single-strategy entry points that share the same row contract.
package parser

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/bank"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/normalizer"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Table is a grid of cells pulled out of a PDF page.
type Table struct {
	Page int
	Rows [][]string
}

// TextExtractor produces the full plain text of a document.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, password string) (string, error)
}

// TextLayerExtractor produces the embedded PDF text layer with the line
// structure preserved, without any OCR fallback.
type TextLayerExtractor interface {
	ExtractTextLayer(ctx context.Context, data []byte, password string) (string, error)
}

// TableExtractor pulls tabular regions out of a PDF.
type TableExtractor interface {
	Name() string
	ExtractTables(ctx context.Context, data []byte, password string) ([]Table, error)
}

// Capabilities are the injected document-processing backends. Any of them may
// be nil: the matching strategy then reports itself unavailable and the chain
// moves on.
type Capabilities struct {
	Text           TextExtractor
	TablesPrimary  TableExtractor
	TablesFallback TableExtractor
	TextLayer      TextLayerExtractor
}

// Input is one document to parse.
type Input struct {
	Data     []byte
	Password string
	Filename string
	Profile  bank.Profile
}

// Result is the uniform strategy output: raw rows plus whatever balances the
// strategy spotted along the way.
type Result struct {
	Rows    []statement.RawRow
	Opening *money.Money
	Closing *money.Money
}

// Strategy is one way of getting rows out of a document.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) (Result, error)
}

// Outcome is what the chain hands back to the service.
type Outcome struct {
	Transactions []statement.Transaction
	Warnings     []string
	Opening      *money.Money
	Closing      *money.Money
	Strategy     string
	Attempts     []statement.Attempt
}

// Chain runs strategies in a fixed order: the primary table extractor, the
// fallback table extractor, the embedded text layer, and finally the
// bank-specific line expressions over the full text.
type Chain struct {
	strategies []Strategy
	normalizer *normalizer.Normalizer
	logger     *slog.Logger
}

func NewChain(caps Capabilities, norm *normalizer.Normalizer, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		strategies: []Strategy{
			&tableStrategy{extractor: caps.TablesPrimary},
			&tableStrategy{extractor: caps.TablesFallback},
			&textLayerStrategy{extractor: caps.TextLayer},
			&lineStrategy{extractor: caps.Text},
		},
		normalizer: norm,
		logger:     logger,
	}
}

// Run tries each strategy until one yields at least one valid transaction.
// A password error aborts immediately; anything else is recorded in the
// attempt trace and the next strategy gets its turn.
func (c *Chain) Run(ctx context.Context, in Input, nctx normalizer.Context) (*Outcome, error) {
	outcome := &Outcome{}
	for _, strat := range c.strategies {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		res, err := strat.Extract(ctx, in)
		attempt := statement.Attempt{Strategy: strat.Name(), Rows: len(res.Rows)}

		switch {
		case errors.Is(err, statement.ErrStrategyUnavailable):
			attempt.Err = statement.ErrStrategyUnavailable.Error()
			outcome.Attempts = append(outcome.Attempts, attempt)
			continue
		case errors.Is(err, statement.ErrPasswordRequired):
			outcome.Attempts = append(outcome.Attempts, attempt)
			return outcome, statement.ErrPasswordRequired
		case err != nil:
			attempt.Err = err.Error()
			c.logger.Warn("statement strategy failed",
				slog.String("strategy", strat.Name()),
				slog.String("bank", string(in.Profile.ID)),
				slog.Any("error", err))
			outcome.Attempts = append(outcome.Attempts, attempt)
			continue
		}

		if len(res.Rows) == 0 {
			outcome.Attempts = append(outcome.Attempts, attempt)
			continue
		}

		txs, warnings := c.normalizer.Normalize(res.Rows, nctx)
		attempt.Transactions = len(txs)
		outcome.Attempts = append(outcome.Attempts, attempt)
		if len(txs) == 0 {
			continue
		}

		outcome.Transactions = txs
		outcome.Warnings = warnings
		outcome.Opening = res.Opening
		outcome.Closing = res.Closing
		outcome.Strategy = strat.Name()
		c.logger.Info("statement parsed",
			slog.String("strategy", strat.Name()),
			slog.String("bank", string(in.Profile.ID)),
			slog.Int("transactions", len(txs)))
		return outcome, nil
	}
	return outcome, statement.ErrNoTransactions
}
