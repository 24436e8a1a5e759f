// Package service runs the statement import pipeline end to end: source
// detection, bank identification, the extraction strategy chain, balance
// reconciliation, cross-import deduplication and persistence.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/bank"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/normalizer"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/parser"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/repository"
)

// Store is the persistence surface the service needs. A nil store disables
// persistence and cross-import deduplication, which is how the CLI runs.
type Store interface {
	SaveStatement(ctx context.Context, st *statement.Statement) (int, error)
	KnownFingerprints(ctx context.Context, userID uuid.UUID, account string, fingerprints []string) (map[string]struct{}, error)
	TouchLayout(ctx context.Context, l *repository.Layout) error
	LookupLayout(ctx context.Context, fingerprint string) (*repository.Layout, error)
}

// Categorizers hands out a per-user categorizer for suggested categories.
type Categorizers interface {
	ForUser(ctx context.Context, userID uuid.UUID) normalizer.Categorizer
}

// Upload is one statement file as received from the caller.
type Upload struct {
	Data     []byte
	Filename string
	Password string
	// BankHint is the caller's explicit bank choice, as a profile slug or a
	// 3-digit clearing code. It wins over every identification heuristic.
	BankHint string
}

// Import is the outcome of processing one upload.
type Import struct {
	Statement  *statement.Statement `json:"statement"`
	State      statement.ParseState `json:"state"`
	Fresh      int                  `json:"fresh_transactions"`
	Duplicates int                  `json:"duplicate_transactions"`

	layout *repository.Layout
}

// Balance mismatches within this many cents are rounding, not data loss.
const defaultToleranceCents = 1

type Service struct {
	caps         parser.Capabilities
	store        Store
	categorizers Categorizers
	logger       *slog.Logger
	tolerance    int64
}

func New(caps parser.Capabilities, store Store, categorizers Categorizers, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		caps:         caps,
		store:        store,
		categorizers: categorizers,
		logger:       logger,
		tolerance:    defaultToleranceCents,
	}
}

// Process parses one uploaded statement and, when a store is configured,
// persists it with cross-import deduplication. The returned Import is
// non-nil even on error: its State and the statement's attempt trace say how
// far the pipeline got. ErrPasswordRequired and ErrNoTransactions are
// recoverable outcomes, not failures.
func (s *Service) Process(ctx context.Context, userID uuid.UUID, up Upload) (*Import, error) {
	st := statement.New(DetectSource(up.Filename, up.Data))
	st.UserID = userID
	imp := &Import{Statement: st, State: statement.StateNotStarted}

	if len(bytes.TrimSpace(up.Data)) == 0 {
		imp.State = statement.StateFailed
		return imp, statement.ErrEmptyDocument
	}

	norm := normalizer.New(s.categorizerFor(ctx, userID), s.logger)

	var err error
	switch st.Source {
	case statement.SourceCSV:
		err = s.parseCSV(ctx, up, st, norm, imp)
	case statement.SourceOFX:
		err = s.parseOFX(ctx, up, st, norm, imp)
	case statement.SourceExcel:
		err = s.parseXLSX(ctx, up, st, norm, imp)
	default:
		err = s.parsePDF(ctx, up, st, norm, imp)
	}
	if err != nil {
		s.noteFailure(imp, err)
		return imp, err
	}

	st.RecalculatePeriod()
	st.Reconcile(s.tolerance)
	normalizer.FillRunningBalances(st.Transactions, st.OpeningBalance)
	imp.State = statement.StateParsed

	if err := s.persist(ctx, imp); err != nil {
		return imp, err
	}

	s.logger.Info("statement imported",
		slog.String("bank", st.BankID),
		slog.String("source", string(st.Source)),
		slog.String("strategy", st.Strategy),
		slog.Int("transactions", len(st.Transactions)),
		slog.Int("fresh", imp.Fresh),
		slog.Int("duplicates", imp.Duplicates))
	return imp, nil
}

func (s *Service) parsePDF(ctx context.Context, up Upload, st *statement.Statement, norm *normalizer.Normalizer, imp *Import) error {
	text, err := s.extractText(ctx, up)
	if err != nil {
		return err
	}

	prof, ok := bankFromHint(up.BankHint)
	if !ok {
		prof, ok = bank.Identify(text, up.Filename)
	}
	if !ok {
		return statement.ErrBankNotRecognized
	}
	applyProfile(st, prof)
	imp.State = statement.StateBankIdentified
	applyHeader(st, text)

	imp.State = statement.StateExtractionAttempted
	chain := parser.NewChain(s.caps, norm, s.logger)
	out, err := chain.Run(ctx, parser.Input{
		Data:     up.Data,
		Password: up.Password,
		Filename: up.Filename,
		Profile:  prof,
	}, normalizerContext(st))
	if out != nil {
		st.Attempts = out.Attempts
	}
	if err != nil {
		return err
	}

	st.Transactions = out.Transactions
	st.Warnings = append(st.Warnings, out.Warnings...)
	st.Strategy = out.Strategy
	st.OpeningBalance = out.Opening
	if out.Closing != nil {
		st.ClosingBalance = out.Closing
	}
	return nil
}

func (s *Service) parseCSV(ctx context.Context, up Upload, st *statement.Statement, norm *normalizer.Normalizer, imp *Import) error {
	res, meta, err := parser.ParseCSV(up.Data)
	if err != nil {
		return err
	}

	prof, ok := bankFromHint(up.BankHint)
	if !ok {
		prof, ok = bank.Identify(sampleText(up.Data), up.Filename)
	}
	if !ok && s.store != nil && meta.Fingerprint != "" {
		// A layout seen before remembers which bank it belonged to.
		if layout, lerr := s.store.LookupLayout(ctx, meta.Fingerprint); lerr == nil && layout != nil && layout.Bank != "" {
			prof, ok = bank.ByID(bank.ID(layout.Bank))
		}
	}
	if !ok {
		return statement.ErrBankNotRecognized
	}
	applyProfile(st, prof)
	imp.State = statement.StateBankIdentified

	nctx := normalizerContext(st)
	if meta.Dialect != nil && !meta.Dialect.DayFirst {
		nctx.DateOrder = normalizer.MonthFirst
	}
	if err := s.finishRows(st, imp, norm, nctx, res, "csv"); err != nil {
		return err
	}

	imp.layout = &repository.Layout{
		Fingerprint: meta.Fingerprint,
		Bank:        string(prof.ID),
		Mapping:     headerMapping(meta.Headers),
	}
	return nil
}

func (s *Service) parseOFX(ctx context.Context, up Upload, st *statement.Statement, norm *normalizer.Normalizer, imp *Import) error {
	res, meta, err := parser.ParseOFX(up.Data)
	if err != nil {
		return err
	}

	prof, ok := bankFromHint(up.BankHint)
	if !ok && meta.BankCode != "" {
		prof, ok = bank.ByCOMPE(meta.BankCode)
	}
	if !ok {
		prof, ok = bank.Identify(sampleText(up.Data), up.Filename)
	}
	if !ok {
		return statement.ErrBankNotRecognized
	}
	applyProfile(st, prof)
	imp.State = statement.StateBankIdentified

	st.Branch = meta.Branch
	st.Account = meta.Account
	st.PeriodStart = meta.PeriodStart
	st.PeriodEnd = meta.PeriodEnd
	st.ClosingBalance = meta.Closing

	return s.finishRows(st, imp, norm, normalizerContext(st), res, "ofx")
}

func (s *Service) parseXLSX(ctx context.Context, up Upload, st *statement.Statement, norm *normalizer.Normalizer, imp *Import) error {
	res, err := parser.ParseXLSX(up.Data, up.Password)
	if err != nil {
		return err
	}

	// Spreadsheet cells rarely name the bank; the filename and the caller's
	// hint are all there is.
	prof, ok := bankFromHint(up.BankHint)
	if !ok {
		prof, ok = bank.Identify("", up.Filename)
	}
	if !ok {
		return statement.ErrBankNotRecognized
	}
	applyProfile(st, prof)
	imp.State = statement.StateBankIdentified

	return s.finishRows(st, imp, norm, normalizerContext(st), res, "xlsx")
}

// finishRows normalizes extracted rows and fills the statement, shared by
// the single-strategy sources.
func (s *Service) finishRows(st *statement.Statement, imp *Import, norm *normalizer.Normalizer, nctx normalizer.Context, res parser.Result, strategy string) error {
	imp.State = statement.StateExtractionAttempted
	txs, warnings := norm.Normalize(res.Rows, nctx)
	st.Attempts = append(st.Attempts, statement.Attempt{
		Strategy:     strategy,
		Rows:         len(res.Rows),
		Transactions: len(txs),
	})
	if len(txs) == 0 {
		return statement.ErrNoTransactions
	}

	st.Transactions = txs
	st.Warnings = append(st.Warnings, warnings...)
	st.Strategy = strategy
	if res.Opening != nil {
		st.OpeningBalance = res.Opening
	}
	if res.Closing != nil && st.ClosingBalance == nil {
		st.ClosingBalance = res.Closing
	}
	return nil
}

// persist runs dedup against the registry and stores the statement. Without
// a store (or a user) every transaction counts as fresh and nothing is kept.
func (s *Service) persist(ctx context.Context, imp *Import) error {
	st := imp.Statement
	if s.store == nil || st.UserID == uuid.Nil {
		imp.Fresh = len(st.Transactions)
		return nil
	}

	fingerprints := make([]string, len(st.Transactions))
	for i := range st.Transactions {
		fingerprints[i] = st.Transactions[i].Fingerprint()
	}
	known, err := s.store.KnownFingerprints(ctx, st.UserID, st.Account, fingerprints)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if len(known) > 0 {
		st.Warnings = append(st.Warnings, fmt.Sprintf(
			"%d of %d transactions were already imported for this account",
			len(known), len(st.Transactions)))
	}

	fresh, err := s.store.SaveStatement(ctx, st)
	if err != nil {
		return fmt.Errorf("save statement: %w", err)
	}
	imp.Fresh = fresh
	imp.Duplicates = len(st.Transactions) - fresh

	if imp.layout != nil && imp.layout.Fingerprint != "" {
		if err := s.store.TouchLayout(ctx, imp.layout); err != nil {
			s.logger.Warn("recording statement layout failed",
				slog.String("fingerprint", imp.layout.Fingerprint),
				slog.Any("error", err))
		}
	}
	return nil
}

// extractText gets document text for bank identification: the embedded text
// layer when present, the OCR-capable extractor otherwise. Only a password
// error stops the pipeline here; with no text at all, identification still
// has the filename.
func (s *Service) extractText(ctx context.Context, up Upload) (string, error) {
	if s.caps.TextLayer != nil {
		text, err := s.caps.TextLayer.ExtractTextLayer(ctx, up.Data, up.Password)
		if errors.Is(err, statement.ErrPasswordRequired) {
			return "", err
		}
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	if s.caps.Text != nil {
		text, err := s.caps.Text.ExtractText(ctx, up.Data, up.Password)
		if errors.Is(err, statement.ErrPasswordRequired) {
			return "", err
		}
		if err != nil {
			s.logger.Warn("text extraction for bank identification failed",
				slog.Any("error", err))
			return "", nil
		}
		return text, nil
	}
	return "", nil
}

func (s *Service) categorizerFor(ctx context.Context, userID uuid.UUID) normalizer.Categorizer {
	if s.categorizers == nil {
		return nil
	}
	return s.categorizers.ForUser(ctx, userID)
}

// noteFailure maps the error to the terminal state. A password prompt and an
// empty result keep their non-failure states so the caller can distinguish
// "give me the password" and "nothing in here" from a broken document.
func (s *Service) noteFailure(imp *Import, err error) {
	switch {
	case errors.Is(err, statement.ErrPasswordRequired):
	case errors.Is(err, statement.ErrNoTransactions):
	default:
		imp.State = statement.StateFailed
	}
}

// DetectSource sniffs the statement format from the filename extension, then
// from the content itself. Unrecognized content is treated as CSV, the most
// forgiving path.
func DetectSource(filename string, data []byte) statement.Source {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return statement.SourcePDF
	case ".csv", ".txt", ".tsv":
		return statement.SourceCSV
	case ".ofx", ".qfx":
		return statement.SourceOFX
	case ".xlsx", ".xls", ".xlsm":
		return statement.SourceExcel
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	upper := strings.ToUpper(string(head))
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return statement.SourcePDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return statement.SourceExcel
	case strings.Contains(upper, "OFXHEADER") || strings.Contains(upper, "<OFX>"):
		return statement.SourceOFX
	default:
		return statement.SourceCSV
	}
}

func bankFromHint(hint string) (bank.Profile, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return bank.Profile{}, false
	}
	if p, ok := bank.ByID(bank.ID(strings.ToLower(hint))); ok {
		return p, true
	}
	return bank.ByCOMPE(hint)
}

func applyProfile(st *statement.Statement, p bank.Profile) {
	st.Bank = p.DisplayName
	st.BankID = string(p.ID)
}

func normalizerContext(st *statement.Statement) normalizer.Context {
	nctx := normalizer.Context{PeriodEnd: st.PeriodEnd}
	switch {
	case !st.PeriodEnd.IsZero():
		nctx.ReferenceYear = st.PeriodEnd.Year()
	case !st.PeriodStart.IsZero():
		nctx.ReferenceYear = st.PeriodStart.Year()
	}
	return nctx
}

// sampleText exposes the head of a text-based file to bank identification.
func sampleText(data []byte) string {
	const probe = 4096
	if len(data) > probe {
		data = data[:probe]
	}
	return string(data)
}

func headerMapping(headers []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		m[strconv.Itoa(i)] = h
	}
	return m
}
