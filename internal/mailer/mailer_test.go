package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*mail.SGMailV3
	resp *rest.Response
	err  error
}

func (f *fakeSender) Send(email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

func newTestSendGrid(f *fakeSender) *SendGrid {
	s := NewSendGrid("key", "Workout Tracker", "noreply@example.test", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	s.client = f
	return s
}

func TestSendGridSendsCode(t *testing.T) {
	f := &fakeSender{resp: &rest.Response{StatusCode: 202}}
	s := newTestSendGrid(f)

	require.NoError(t, s.SendOTP(context.Background(), "lifter@example.test", "123456"))
	require.Len(t, f.sent, 1)

	msg := f.sent[0]
	assert.Equal(t, subject, msg.Subject)
	assert.Equal(t, "noreply@example.test", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "lifter@example.test", msg.Personalizations[0].To[0].Address)
	require.NotEmpty(t, msg.Content)
	assert.Contains(t, msg.Content[0].Value, "123456")
}

func TestSendGridErrors(t *testing.T) {
	f := &fakeSender{err: errors.New("timeout")}
	err := newTestSendGrid(f).SendOTP(context.Background(), "a@b.test", "1")
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))

	f = &fakeSender{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}}
	err = newTestSendGrid(f).SendOTP(context.Background(), "a@b.test", "1")
	require.Error(t, err)

	var gerr *goerrors.Error
	require.True(t, goerrors.As(err, &gerr))
	assert.Equal(t, 401, gerr.Code)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, m.SendOTP(context.Background(), "a@b.test", "987654"))
	assert.Contains(t, buf.String(), "code=987654")
}
