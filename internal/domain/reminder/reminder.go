// Package reminder holds the due-date notification model: one row per
// confirmed document the user asked to be reminded about, swept daily and
// e-mailed on the due date.
package reminder

import (
	"time"

	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/money"
)

// Reminder is one scheduled notification. SentAt nil means still queued; the
// sweep only ever looks at queued rows.
type Reminder struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	DocumentID uuid.UUID    `json:"document_id,omitempty"`
	Payee      string       `json:"payee"`
	Amount     *money.Money `json:"amount,omitempty"`
	DueDate    time.Time    `json:"due_date"`
	Email      string       `json:"email"`
	SentAt     *time.Time   `json:"sent_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Request is what the confirmation side hands over when the user picked
// schedule_reminder. The e-mail address is resolved at scheduling time, not
// carried by the caller.
type Request struct {
	UserID     uuid.UUID
	DocumentID uuid.UUID
	Payee      string
	Amount     *money.Money
	DueDate    time.Time
}
