// Package service schedules due-date reminders at confirmation time and runs
// the daily sweep that e-mails whatever came due. Per-reminder failures are
// logged and retried on the next sweep; the sweep itself never fails because
// of one bad address.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/reminder"
)

// Store is the slice of the reminder repository the service needs.
type Store interface {
	Schedule(ctx context.Context, rem *reminder.Reminder) error
	DueOn(ctx context.Context, day time.Time) ([]reminder.Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Directory resolves a user id to the address reminders go to.
type Directory interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// Mailer delivers one message. A nil Mailer leaves the queue untouched so
// nothing is marked sent without having gone out.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type Service struct {
	store  Store
	users  Directory
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, users Directory, mailer Mailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		users:  users,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule queues one reminder, resolving the user's e-mail address now so a
// later address change does not orphan already-queued rows.
func (s *Service) Schedule(ctx context.Context, req reminder.Request) error {
	email, err := s.users.EmailFor(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("resolve reminder address: %w", err)
	}

	rem := &reminder.Reminder{
		UserID:     req.UserID,
		DocumentID: req.DocumentID,
		Payee:      req.Payee,
		Amount:     req.Amount,
		DueDate:    req.DueDate,
		Email:      email,
	}
	if err := s.store.Schedule(ctx, rem); err != nil {
		return err
	}

	s.logger.Info("reminder scheduled",
		slog.String("user_id", req.UserID.String()),
		slog.String("payee", rem.Payee),
		slog.Time("due", rem.DueDate))
	return nil
}

// Sweep mails every unsent reminder due today or earlier. A send failure
// leaves the row queued for the next sweep; a send that went out is marked
// even if the stamp itself fails, so at-most-one duplicate is the worst case.
func (s *Service) Sweep(ctx context.Context) error {
	if s.mailer == nil {
		s.logger.Warn("mailer not configured, reminders stay queued")
		return nil
	}

	due, err := s.store.DueOn(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}
	if len(due) == 0 {
		s.logger.Debug("no reminders due")
		return nil
	}

	sent, failed := 0, 0
	for i := range due {
		rem := &due[i]
		if err := s.mailer.Send(ctx, rem.Email, subjectFor(rem), bodyFor(rem)); err != nil {
			s.logger.Warn("sending reminder failed",
				slog.String("reminder_id", rem.ID.String()),
				slog.Any("error", err))
			failed++
			continue
		}
		if err := s.store.MarkSent(ctx, rem.ID, s.now().UTC()); err != nil {
			s.logger.Warn("marking reminder sent failed",
				slog.String("reminder_id", rem.ID.String()),
				slog.Any("error", err))
		}
		sent++
	}

	s.logger.Info("reminder sweep finished",
		slog.Int("sent", sent),
		slog.Int("failed", failed))
	return nil
}

func subjectFor(rem *reminder.Reminder) string {
	payee := rem.Payee
	if payee == "" {
		payee = "uma conta"
	}
	return fmt.Sprintf("Lembrete: %s vence em %s", payee, rem.DueDate.Format("02/01/2006"))
}

func bodyFor(rem *reminder.Reminder) string {
	payee := rem.Payee
	if payee == "" {
		payee = "uma conta"
	}
	amount := ""
	if rem.Amount != nil {
		amount = fmt.Sprintf(`<p>Valor: <strong>%s</strong></p>`, rem.Amount.Display())
	}
	return fmt.Sprintf(`
		<h2>Vencimento chegando</h2>
		<p>O pagamento para <strong>%s</strong> vence em <strong>%s</strong>.</p>
		%s
		<p>Este lembrete foi agendado quando você confirmou o documento.</p>
	`, payee, rem.DueDate.Format("02/01/2006"), amount)
}
