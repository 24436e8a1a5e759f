package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

type memStore struct {
	scheduled []reminder.Reminder
	due       []reminder.Reminder
	dueErr    error
	dueCalls  int
	sent      map[uuid.UUID]time.Time
	sentErr   error
}

func (s *memStore) Schedule(_ context.Context, rem *reminder.Reminder) error {
	s.scheduled = append(s.scheduled, *rem)
	return nil
}

func (s *memStore) DueOn(_ context.Context, _ time.Time) ([]reminder.Reminder, error) {
	s.dueCalls++
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	return s.due, nil
}

func (s *memStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	if s.sentErr != nil {
		return s.sentErr
	}
	if s.sent == nil {
		s.sent = map[uuid.UUID]time.Time{}
	}
	s.sent[id] = at
	return nil
}

type fixedDirectory struct {
	email string
	err   error
}

func (d fixedDirectory) EmailFor(context.Context, uuid.UUID) (string, error) {
	return d.email, d.err
}

type sentMail struct {
	to, subject, html string
}

type recordingMailer struct {
	sent []sentMail
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	if err := m.fail[to]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func dueReminder(payee, email string, due time.Time) reminder.Reminder {
	return reminder.Reminder{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Payee:   payee,
		Amount:  money.New(15000, money.BRL),
		DueDate: due,
		Email:   email,
	}
}

func TestService_Schedule(t *testing.T) {
	userID := uuid.New()
	docID := uuid.New()
	due := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)

	t.Run("resolves the address and queues the row", func(t *testing.T) {
		store := &memStore{}
		svc := New(store, fixedDirectory{email: "maria@example.com"}, nil, nil)

		err := svc.Schedule(context.Background(), reminder.Request{
			UserID:     userID,
			DocumentID: docID,
			Payee:      "EMPRESA XYZ LTDA",
			Amount:     money.New(15000, money.BRL),
			DueDate:    due,
		})
		require.NoError(t, err)

		require.Len(t, store.scheduled, 1)
		rem := store.scheduled[0]
		assert.Equal(t, userID, rem.UserID)
		assert.Equal(t, docID, rem.DocumentID)
		assert.Equal(t, "EMPRESA XYZ LTDA", rem.Payee)
		assert.Equal(t, "maria@example.com", rem.Email)
		assert.True(t, due.Equal(rem.DueDate))
	})

	t.Run("unknown user means nothing is queued", func(t *testing.T) {
		store := &memStore{}
		svc := New(store, fixedDirectory{err: errors.New("no such user")}, nil, nil)

		err := svc.Schedule(context.Background(), reminder.Request{UserID: userID, DueDate: due})
		require.ErrorContains(t, err, "resolve reminder address")
		assert.Empty(t, store.scheduled)
	})
}

func TestService_Sweep(t *testing.T) {
	due := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)

	t.Run("mails due rows and stamps them", func(t *testing.T) {
		first := dueReminder("Energia CEMIG", "maria@example.com", due)
		second := dueReminder("Condomínio", "joao@example.com", due)
		store := &memStore{due: []reminder.Reminder{first, second}}
		mailer := &recordingMailer{}
		svc := New(store, fixedDirectory{}, mailer, nil)

		require.NoError(t, svc.Sweep(context.Background()))

		require.Len(t, mailer.sent, 2)
		assert.Equal(t, "maria@example.com", mailer.sent[0].to)
		assert.Equal(t, "Lembrete: Energia CEMIG vence em 10/12/2024", mailer.sent[0].subject)
		assert.Contains(t, mailer.sent[0].html, "Energia CEMIG")
		assert.Contains(t, mailer.sent[0].html, "R$150,00")
		assert.Contains(t, store.sent, first.ID)
		assert.Contains(t, store.sent, second.ID)
	})

	t.Run("a send failure leaves that row queued", func(t *testing.T) {
		good := dueReminder("Aluguel", "ok@example.com", due)
		bad := dueReminder("IPTU", "bounce@example.com", due)
		store := &memStore{due: []reminder.Reminder{good, bad}}
		mailer := &recordingMailer{fail: map[string]error{"bounce@example.com": errors.New("rejected")}}
		svc := New(store, fixedDirectory{}, mailer, nil)

		require.NoError(t, svc.Sweep(context.Background()))

		require.Len(t, mailer.sent, 1)
		assert.Contains(t, store.sent, good.ID)
		assert.NotContains(t, store.sent, bad.ID, "failed sends retry on the next sweep")
	})

	t.Run("no mailer means the queue is not even read", func(t *testing.T) {
		store := &memStore{due: []reminder.Reminder{dueReminder("Luz", "a@example.com", due)}}
		svc := New(store, fixedDirectory{}, nil, nil)

		require.NoError(t, svc.Sweep(context.Background()))
		assert.Zero(t, store.dueCalls)
		assert.Empty(t, store.sent)
	})

	t.Run("listing failure is the sweep's only hard error", func(t *testing.T) {
		store := &memStore{dueErr: errors.New("connection reset")}
		svc := New(store, fixedDirectory{}, &recordingMailer{}, nil)

		err := svc.Sweep(context.Background())
		require.ErrorContains(t, err, "list due reminders")
	})

	t.Run("a failed stamp does not unsend the mail", func(t *testing.T) {
		rem := dueReminder("Internet", "x@example.com", due)
		store := &memStore{due: []reminder.Reminder{rem}, sentErr: errors.New("timeout")}
		mailer := &recordingMailer{}
		svc := New(store, fixedDirectory{}, mailer, nil)

		require.NoError(t, svc.Sweep(context.Background()))
		require.Len(t, mailer.sent, 1)
	})

	t.Run("a nameless reminder still reads naturally", func(t *testing.T) {
		rem := dueReminder("", "y@example.com", due)
		store := &memStore{due: []reminder.Reminder{rem}}
		mailer := &recordingMailer{}
		svc := New(store, fixedDirectory{}, mailer, nil)

		require.NoError(t, svc.Sweep(context.Background()))
		require.Len(t, mailer.sent, 1)
		assert.Contains(t, mailer.sent[0].subject, "uma conta")
	})
}

func TestResendMailer_Unconfigured(t *testing.T) {
	m := NewResendMailer("", "")
	err := m.Send(context.Background(), "a@example.com", "s", "<p>b</p>")
	require.ErrorIs(t, err, ErrMailNotConfigured)
}
