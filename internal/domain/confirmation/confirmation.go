// Package confirmation holds extraction results between the pipeline and the
// user's decision. Each user has at most one pending result; a new submission
// replaces the old one without ceremony. The pending map is the only shared
// mutable state in the core, guarded by a single mutex.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

var (
	// ErrNothingPending means the user has no extraction waiting for a
	// decision; they need to submit a document first.
	ErrNothingPending = errors.New("nothing pending for this user")

	// ErrInvalidActionSet means the confirmation carried no usable action;
	// the pending result stays and the user picks again.
	ErrInvalidActionSet = errors.New("pick at least one valid action")
)

// ValidationError rejects one edit without touching the pending result.
type ValidationError struct {
	Field  document.FieldKind
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Committer runs the confirmed-side bookkeeping. The document service
// satisfies it.
type Committer interface {
	Commit(ctx context.Context, doc *document.CommittedDocument) error
}

type Workflow struct {
	mu        sync.Mutex
	pending   map[uuid.UUID]*document.ExtractionResult
	committer Committer
	logger    *slog.Logger
	now       func() time.Time
}

func New(committer Committer, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		pending:   map[uuid.UUID]*document.ExtractionResult{},
		committer: committer,
		logger:    logger,
		now:       time.Now,
	}
}

// Begin parks a fresh extraction for the user. Whatever was pending before is
// dropped: the last submission wins.
func (w *Workflow) Begin(userID uuid.UUID, res *document.ExtractionResult) {
	if res == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.pending[userID]; ok {
		w.logger.Debug("pending confirmation replaced",
			slog.String("user_id", userID.String()),
			slog.String("dropped", old.ID.String()))
	}
	w.pending[userID] = res.Clone()
}

// Pending returns a copy of the user's waiting result, if any.
func (w *Workflow) Pending(userID uuid.UUID) (*document.ExtractionResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res, ok := w.pending[userID]
	if !ok {
		return nil, false
	}
	return res.Clone(), true
}

// ApplyEdit corrects one field of the pending result. Typed fields are
// re-validated and normalized; a rejected edit leaves the pending result
// exactly as it was. An empty value clears the field, which is how a wrong
// guess is removed. Confidence is not recomputed: the user's own statement
// about the document outranks the scorer.
func (w *Workflow) ApplyEdit(userID uuid.UUID, field document.FieldKind, value string) (*document.ExtractionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res, ok := w.pending[userID]
	if !ok {
		return nil, ErrNothingPending
	}

	value = strings.TrimSpace(value)
	if value == "" {
		delete(res.Fields, field)
		return res.Clone(), nil
	}

	normalized, err := normalizeField(field, value)
	if err != nil {
		return nil, err
	}
	res.Fields[field] = normalized
	return res.Clone(), nil
}

// Confirm closes the pending result with the chosen actions and hands it to
// the committer. On committer failure the result stays pending so the user
// can simply try again.
func (w *Workflow) Confirm(ctx context.Context, userID uuid.UUID, actions []document.Action) (*document.CommittedDocument, error) {
	cleaned, err := cleanActions(actions)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	res, ok := w.pending[userID]
	if !ok {
		w.mu.Unlock()
		return nil, ErrNothingPending
	}
	doc := &document.CommittedDocument{
		Result:      res.Clone(),
		UserID:      userID,
		Actions:     cleaned,
		ConfirmedAt: w.now().UTC(),
	}
	w.mu.Unlock()

	// The committer may hit the database and the mailer; it runs outside the
	// lock so one slow confirm cannot stall every other user.
	if w.committer != nil {
		if err := w.committer.Commit(ctx, doc); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	// Only clear the slot if it still holds what was committed; the user may
	// have submitted a new document meanwhile, and that one is still waiting.
	if current, ok := w.pending[userID]; ok && current.ID == doc.Result.ID {
		delete(w.pending, userID)
	}
	w.mu.Unlock()

	return doc, nil
}

// Cancel drops the pending result unconditionally. Reports whether there was
// anything to drop.
func (w *Workflow) Cancel(userID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.pending[userID]
	delete(w.pending, userID)
	return ok
}

func cleanActions(actions []document.Action) ([]document.Action, error) {
	if len(actions) == 0 {
		return nil, ErrInvalidActionSet
	}
	seen := map[document.Action]bool{}
	out := make([]document.Action, 0, len(actions))
	for _, a := range actions {
		if !document.ValidAction(a) {
			return nil, fmt.Errorf("%w: %q is not an action", ErrInvalidActionSet, a)
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out, nil
}

// normalizeField validates typed fields and brings them to the canonical form
// the rest of the pipeline expects: ISO dates, dot-decimal values.
func normalizeField(field document.FieldKind, value string) (string, error) {
	switch field {
	case document.FieldValue:
		m, err := money.ParseBRL(value)
		if err != nil || !m.IsPositive() {
			return "", &ValidationError{Field: field, Value: value, Reason: "not a monetary amount"}
		}
		return m.ToDecimal().StringFixed(2), nil

	case document.FieldDueDate:
		for _, layout := range []string{document.DateLayout, "02/01/2006"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t.Format(document.DateLayout), nil
			}
		}
		return "", &ValidationError{Field: field, Value: value, Reason: "not a date"}

	case document.FieldBeneficiary, document.FieldPayer, document.FieldBank,
		document.FieldBranch, document.FieldAccount, document.FieldTaxPeriod,
		document.FieldRevenueCode, document.FieldDocumentID,
		document.FieldLinhaDigitavel, document.FieldCodigoBarras,
		document.FieldCNPJ, document.FieldPixKey, document.FieldEndToEndID:
		return value, nil

	default:
		return "", &ValidationError{Field: field, Value: value, Reason: "unknown field"}
	}
}
