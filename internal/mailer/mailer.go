// Package mailer delivers one-time sign-in codes by email.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const subject = "Your password reset code"

// Mailer sends a one-time code to an address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

type logMailer struct {
	logger *slog.Logger
}

// NewLogMailer logs codes instead of sending them. Use it in development only.
func NewLogMailer(logger *slog.Logger) Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logMailer{logger: logger.With("component", "mailer")}
}

func (m *logMailer) SendOTP(ctx context.Context, to, code string) error {
	m.logger.InfoContext(ctx, "otp issued", "to", to, "code", code)
	return nil
}

type sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid sends codes through the SendGrid v3 API.
type SendGrid struct {
	from   *mail.Email
	client sender
	logger *slog.Logger
}

// NewSendGrid builds a SendGrid mailer sending as fromName <fromAddress>.
func NewSendGrid(apiKey, fromName, fromAddress string, logger *slog.Logger) *SendGrid {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGrid{
		from:   mail.NewEmail(fromName, fromAddress),
		client: sendgrid.NewSendClient(apiKey),
		logger: logger.With("component", "mailer"),
	}
}

func (s *SendGrid) SendOTP(ctx context.Context, to, code string) error {
	plain := fmt.Sprintf("Your code is: %s. It expires in 10 minutes.", code)
	html := fmt.Sprintf("<p>Your code is: <strong>%s</strong></p><p>It expires in 10 minutes.</p>", code)
	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), plain, html)

	resp, err := s.client.Send(msg)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "send otp email")
	}
	if resp.StatusCode >= 300 {
		return goerrors.New("send otp email: unexpected status", goerrors.CategoryExternal).
			WithCode(resp.StatusCode).
			WithMetadata(map[string]any{"body": resp.Body})
	}

	s.logger.DebugContext(ctx, "otp email sent", "to", to, "status", resp.StatusCode)
	return nil
}
