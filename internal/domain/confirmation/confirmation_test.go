package confirmation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

type fakeCommitter struct {
	err       error
	committed []*document.CommittedDocument
	onCommit  func(doc *document.CommittedDocument)
}

func (c *fakeCommitter) Commit(_ context.Context, doc *document.CommittedDocument) error {
	if c.onCommit != nil {
		c.onCommit(doc)
	}
	if c.err != nil {
		return c.err
	}
	c.committed = append(c.committed, doc)
	return nil
}

func pendingResult() *document.ExtractionResult {
	res := document.NewExtractionResult(document.TypeBoleto, document.Fields{
		document.FieldBeneficiary: "EMPRESA XYZ LTDA",
		document.FieldValue:       "150.00",
		document.FieldDueDate:     "2024-12-10",
	}, "BENEFICIÁRIO: EMPRESA XYZ LTDA")
	res.Confidence = 35
	return res
}

func TestWorkflow_BeginAndPending(t *testing.T) {
	w := New(nil, nil)
	userID := uuid.New()

	_, ok := w.Pending(userID)
	assert.False(t, ok)

	res := pendingResult()
	w.Begin(userID, res)

	got, ok := w.Pending(userID)
	require.True(t, ok)
	assert.Equal(t, res.ID, got.ID)

	// The returned copy is the caller's to mangle.
	got.Fields[document.FieldValue] = "999.99"
	again, _ := w.Pending(userID)
	assert.Equal(t, "150.00", again.Fields[document.FieldValue])
}

func TestWorkflow_LastSubmissionWins(t *testing.T) {
	w := New(nil, nil)
	userID := uuid.New()

	first := pendingResult()
	second := pendingResult()
	w.Begin(userID, first)
	w.Begin(userID, second)

	got, ok := w.Pending(userID)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
}

func TestWorkflow_ApplyEdit(t *testing.T) {
	userID := uuid.New()

	fresh := func() *Workflow {
		w := New(nil, nil)
		w.Begin(userID, pendingResult())
		return w
	}

	t.Run("a corrected value is normalized", func(t *testing.T) {
		w := fresh()
		got, err := w.ApplyEdit(userID, document.FieldValue, "R$ 1.234,56")
		require.NoError(t, err)
		assert.Equal(t, "1234.56", got.Fields[document.FieldValue])
	})

	t.Run("dates arrive in either convention", func(t *testing.T) {
		w := fresh()
		got, err := w.ApplyEdit(userID, document.FieldDueDate, "25/01/2025")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-25", got.Fields[document.FieldDueDate])

		got, err = w.ApplyEdit(userID, document.FieldDueDate, "2025-02-01")
		require.NoError(t, err)
		assert.Equal(t, "2025-02-01", got.Fields[document.FieldDueDate])
	})

	t.Run("a rejected edit changes nothing", func(t *testing.T) {
		w := fresh()
		_, err := w.ApplyEdit(userID, document.FieldValue, "cento e cinquenta")

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, document.FieldValue, vErr.Field)

		got, ok := w.Pending(userID)
		require.True(t, ok, "the pending result survives a bad edit")
		assert.Equal(t, "150.00", got.Fields[document.FieldValue])
	})

	t.Run("negative amounts are not document values", func(t *testing.T) {
		w := fresh()
		_, err := w.ApplyEdit(userID, document.FieldValue, "-50,00")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("unknown field kinds are rejected", func(t *testing.T) {
		w := fresh()
		_, err := w.ApplyEdit(userID, document.FieldKind("cor"), "azul")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "unknown field")
	})

	t.Run("an empty value clears the field", func(t *testing.T) {
		w := fresh()
		got, err := w.ApplyEdit(userID, document.FieldBeneficiary, "  ")
		require.NoError(t, err)
		assert.NotContains(t, got.Fields, document.FieldBeneficiary)
	})

	t.Run("free-text fields pass through", func(t *testing.T) {
		w := fresh()
		got, err := w.ApplyEdit(userID, document.FieldBeneficiary, "COPASA SANEAMENTO")
		require.NoError(t, err)
		assert.Equal(t, "COPASA SANEAMENTO", got.Fields[document.FieldBeneficiary])
	})

	t.Run("editing into the void", func(t *testing.T) {
		w := New(nil, nil)
		_, err := w.ApplyEdit(uuid.New(), document.FieldValue, "10,00")
		require.ErrorIs(t, err, ErrNothingPending)
	})
}

func TestWorkflow_Confirm(t *testing.T) {
	userID := uuid.New()

	t.Run("empty actions leave the pending intact", func(t *testing.T) {
		w := New(&fakeCommitter{}, nil)
		w.Begin(userID, pendingResult())

		_, err := w.Confirm(context.Background(), userID, nil)
		require.ErrorIs(t, err, ErrInvalidActionSet)

		_, ok := w.Pending(userID)
		assert.True(t, ok, "the user is re-prompted, not reset")
	})

	t.Run("made-up actions are no better", func(t *testing.T) {
		w := New(&fakeCommitter{}, nil)
		w.Begin(userID, pendingResult())

		_, err := w.Confirm(context.Background(), userID, []document.Action{"archive"})
		require.ErrorIs(t, err, ErrInvalidActionSet)

		_, ok := w.Pending(userID)
		assert.True(t, ok)
	})

	t.Run("success commits and clears the slot", func(t *testing.T) {
		committer := &fakeCommitter{}
		w := New(committer, nil)
		res := pendingResult()
		w.Begin(userID, res)

		doc, err := w.Confirm(context.Background(), userID, []document.Action{
			document.ActionRecordExpense,
			document.ActionRecordExpense,
			document.ActionMarkPaid,
		})
		require.NoError(t, err)

		assert.Equal(t, res.ID, doc.Result.ID)
		assert.Equal(t, []document.Action{document.ActionRecordExpense, document.ActionMarkPaid},
			doc.Actions, "duplicates collapse")
		assert.False(t, doc.ConfirmedAt.IsZero())

		require.Len(t, committer.committed, 1)
		_, ok := w.Pending(userID)
		assert.False(t, ok)
	})

	t.Run("a committer failure keeps the pending for retry", func(t *testing.T) {
		committer := &fakeCommitter{err: errors.New("database down")}
		w := New(committer, nil)
		w.Begin(userID, pendingResult())

		_, err := w.Confirm(context.Background(), userID, []document.Action{document.ActionMarkPaid})
		require.ErrorContains(t, err, "database down")

		_, ok := w.Pending(userID)
		require.True(t, ok)

		committer.err = nil
		_, err = w.Confirm(context.Background(), userID, []document.Action{document.ActionMarkPaid})
		require.NoError(t, err)

		_, ok = w.Pending(userID)
		assert.False(t, ok)
	})

	t.Run("a mid-commit resubmission is not clobbered", func(t *testing.T) {
		replacement := pendingResult()
		var w *Workflow
		committer := &fakeCommitter{onCommit: func(*document.CommittedDocument) {
			w.Begin(userID, replacement)
		}}
		w = New(committer, nil)
		w.Begin(userID, pendingResult())

		_, err := w.Confirm(context.Background(), userID, []document.Action{document.ActionMarkPaid})
		require.NoError(t, err)

		got, ok := w.Pending(userID)
		require.True(t, ok, "the document submitted during the commit is still waiting")
		assert.Equal(t, replacement.ID, got.ID)
	})

	t.Run("confirming thin air", func(t *testing.T) {
		w := New(&fakeCommitter{}, nil)
		_, err := w.Confirm(context.Background(), uuid.New(), []document.Action{document.ActionMarkPaid})
		require.ErrorIs(t, err, ErrNothingPending)
	})
}

func TestWorkflow_Cancel(t *testing.T) {
	w := New(nil, nil)
	userID := uuid.New()

	assert.False(t, w.Cancel(userID), "cancelling nothing is allowed")

	w.Begin(userID, pendingResult())
	assert.True(t, w.Cancel(userID))

	_, err := w.Confirm(context.Background(), userID, []document.Action{document.ActionMarkPaid})
	require.ErrorIs(t, err, ErrNothingPending)
}

func TestWorkflow_ConcurrentUsers(t *testing.T) {
	w := New(&fakeCommitter{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			for j := 0; j < 50; j++ {
				w.Begin(userID, pendingResult())
				_, _ = w.ApplyEdit(userID, document.FieldValue, "99,90")
				if _, err := w.Confirm(context.Background(), userID, []document.Action{document.ActionMarkPaid}); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
