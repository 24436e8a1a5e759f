// Package service runs the document pipeline end to end: text acquisition,
// classification, field extraction, payment-code decoding and confidence
// scoring on the way in; persistence, search indexing and reminder scheduling
// once the user has confirmed the result.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/boleto"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/classifier"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document/extract"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// TextSource turns uploaded bytes into plain text. The OCR-backed source
// satisfies it, as does the bare text-layer extractor.
type TextSource interface {
	ExtractText(ctx context.Context, data []byte, password string) (string, error)
}

// Store persists confirmed documents.
type Store interface {
	SaveConfirmed(ctx context.Context, doc *document.CommittedDocument) error
}

// Indexer feeds the confirmed-document search index. Indexing is best-effort;
// a failure is logged, never surfaced.
type Indexer interface {
	Index(doc *document.CommittedDocument) error
}

// Scheduler queues a due-date reminder when the user asked for one.
type Scheduler interface {
	Schedule(ctx context.Context, req reminder.Request) error
}

// Input is one submission: raw upload bytes, already-extracted text, or both.
// Text wins when present, which is how the CLI and re-classification paths
// skip a second extraction.
type Input struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename,omitempty"`
	Password string `json:"-"`
	Text     string `json:"text,omitempty"`
}

// Service is the document half of the product. Collaborators may be nil; the
// matching step is then skipped, which is how the CLI runs the same pipeline
// without a database, index or mailer behind it.
type Service struct {
	classifier *classifier.Classifier
	extractor  *extract.Extractor
	text       TextSource
	store      Store
	index      Indexer
	scheduler  Scheduler
	logger     *slog.Logger
}

func New(text TextSource, store Store, index Indexer, scheduler Scheduler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		classifier: classifier.New(),
		extractor:  extract.New(),
		text:       text,
		store:      store,
		index:      index,
		scheduler:  scheduler,
		logger:     logger,
	}
}

// ClassifyAndExtract reads one submission into a scored ExtractionResult.
// Unreadable input is not an error: it classifies as unknown with zero
// confidence. The only errors that escape are a password prompt and a dead
// context.
func (s *Service) ClassifyAndExtract(ctx context.Context, in Input) (*document.ExtractionResult, error) {
	text, err := s.acquireText(ctx, in)
	if err != nil {
		return nil, err
	}

	docType := s.classifier.Classify(text)
	fields := s.extractor.Extract(docType, text)
	docType = mergeDecoded(docType, fields)

	res := document.NewExtractionResult(docType, fields, text)
	res.Confidence = document.Score(docType, fields)

	s.logger.Info("document classified",
		slog.String("type", string(res.Type)),
		slog.Float64("confidence", res.Confidence),
		slog.Int("fields", len(fields)))
	return res, nil
}

// Commit runs the confirmed-side bookkeeping: persist, schedule the reminder
// if one was requested, then index. The index is fail-open; the other two are
// not, and the caller keeps the pending confirmation alive on error so the
// user can retry.
func (s *Service) Commit(ctx context.Context, doc *document.CommittedDocument) error {
	if s.store != nil {
		if err := s.store.SaveConfirmed(ctx, doc); err != nil {
			return fmt.Errorf("save confirmed document: %w", err)
		}
	}

	if s.scheduler != nil && hasAction(doc.Actions, document.ActionScheduleReminder) {
		due, ok := doc.Result.Fields.DueDate()
		if !ok {
			s.logger.Warn("reminder requested without a due date",
				slog.String("document_id", doc.Result.ID.String()))
		} else {
			amount, _ := doc.Result.Fields.Value()
			err := s.scheduler.Schedule(ctx, reminder.Request{
				UserID:     doc.UserID,
				DocumentID: doc.Result.ID,
				Payee:      doc.Result.Fields[document.FieldBeneficiary],
				Amount:     amount,
				DueDate:    due,
			})
			if err != nil {
				return fmt.Errorf("schedule reminder: %w", err)
			}
		}
	}

	if s.index != nil {
		if err := s.index.Index(doc); err != nil {
			s.logger.Warn("indexing confirmed document failed",
				slog.String("document_id", doc.Result.ID.String()),
				slog.Any("error", err))
		}
	}

	s.logger.Info("document confirmed",
		slog.String("document_id", doc.Result.ID.String()),
		slog.String("type", string(doc.Result.Type)),
		slog.Int("actions", len(doc.Actions)))
	return nil
}

// acquireText prefers pasted text, then the PDF text ladder, then the bytes
// as-is for plain-text uploads. Binary that is neither PDF nor UTF-8 has no
// text to read.
func (s *Service) acquireText(ctx context.Context, in Input) (string, error) {
	if strings.TrimSpace(in.Text) != "" {
		return in.Text, nil
	}
	if len(in.Data) == 0 {
		return "", nil
	}

	if bytes.HasPrefix(in.Data, []byte("%PDF")) {
		if s.text == nil {
			s.logger.Warn("pdf submitted without a text capability")
			return "", nil
		}
		text, err := s.text.ExtractText(ctx, in.Data, in.Password)
		switch {
		case err == nil:
			return text, nil
		case errors.Is(err, statement.ErrPasswordRequired):
			return "", err
		case ctx.Err() != nil:
			return "", ctx.Err()
		default:
			s.logger.Warn("text extraction failed",
				slog.String("filename", in.Filename),
				slog.Any("error", err))
			return "", nil
		}
	}

	if !utf8.Valid(in.Data) {
		return "", nil
	}
	return string(in.Data), nil
}

// mergeDecoded overlays machine-decoded code values over scraped text for
// boletos: the digits do not lie about bank, amount or due date. Tax guides
// keep their printed fields because arrecadação barcodes use another layout
// entirely. A decodable code on an otherwise unrecognized document is the one
// signal strong enough to name the type by itself.
func mergeDecoded(docType document.Type, fields document.Fields) document.Type {
	if docType != document.TypeBoleto && docType != document.TypeUnknown {
		return docType
	}
	code := fields[document.FieldLinhaDigitavel]
	if code == "" {
		code = fields[document.FieldCodigoBarras]
	}
	if code == "" {
		return docType
	}
	dec, err := boleto.Decode(code)
	if err != nil {
		return docType
	}

	if dec.Amount != nil {
		fields[document.FieldValue] = dec.Amount.ToDecimal().StringFixed(2)
	}
	if dec.DueDate != nil {
		fields[document.FieldDueDate] = dec.DueDate.Format(document.DateLayout)
	}
	fields[document.FieldBank] = dec.BankName

	if docType == document.TypeUnknown {
		return document.TypeBoleto
	}
	return docType
}

func hasAction(actions []document.Action, want document.Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
