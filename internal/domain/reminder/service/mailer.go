package service

import (
	"context"
	"errors"

	"github.com/resend/resend-go/v2"
)

// ErrMailNotConfigured is returned by sends attempted without an API key,
// which keeps unsent rows queued instead of silently marking them done.
var ErrMailNotConfigured = errors.New("resend client not configured")

// ResendMailer delivers reminder e-mail through Resend.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}
	if from == "" {
		from = "Assistente Pessoal <lembretes@assistente.app>"
	}
	return &ResendMailer{client: client, from: from}
}

func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.client == nil {
		return ErrMailNotConfigured
	}
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	return err
}
