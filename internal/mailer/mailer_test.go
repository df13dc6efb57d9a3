package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/queue"
)

type recordingTransport struct {
	sent []Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestVerificationEmail(t *testing.T) {
	rt := &recordingTransport{}
	m := New(rt, "https://app.example.com/")
	require.NoError(t, m.SendVerificationEmail(context.Background(), "a@b.com", "042133"))
	require.Len(t, rt.sent, 1)
	msg := rt.sent[0]
	assert.Equal(t, "a@b.com", msg.To)
	assert.Equal(t, "verify-email", msg.Template)
	assert.Contains(t, msg.Text, "042133")
	assert.Contains(t, msg.Text, "https://app.example.com/verify-email?email=a%40b.com")
}

func TestResetEmailPropagatesError(t *testing.T) {
	rt := &recordingTransport{err: errors.New("relay down")}
	m := New(rt, "http://localhost:3000")
	err := m.SendPasswordResetEmail(context.Background(), "a@b.com", "tok")
	assert.EqualError(t, err, "relay down")
	assert.Contains(t, rt.sent[0].Text, "/reset-password?token=tok")
}

func TestNewFromConfig(t *testing.T) {
	m, err := NewFromConfig(config.MailConfig{Transport: "log"}, "")
	require.NoError(t, err)
	assert.IsType(t, LogTransport{}, m.transport)

	m, err = NewFromConfig(config.MailConfig{Transport: "queue", AMQPURL: "amqp://x"}, "")
	require.NoError(t, err)
	assert.IsType(t, QueueTransport{}, m.transport)

	_, err = NewFromConfig(config.MailConfig{Transport: "carrier-pigeon"}, "")
	assert.Error(t, err)
}

func TestComposeMultipart(t *testing.T) {
	raw, err := Compose("no-reply@fintrack.local", Message{
		To: "a@b.com", Subject: "Hello", Text: "plain body", HTML: "<p>html body</p>",
	}, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mr, err := mail.CreateReader(strings.NewReader(string(raw)))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Hello", subject)
	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "a@b.com", to[0].Address)
	assert.Contains(t, string(raw), "plain body")
	assert.Contains(t, string(raw), "<p>html body</p>")
}

func TestSMTPTransportSend(t *testing.T) {
	tr := NewSMTPTransport(config.MailConfig{SMTPHost: "smtp.local", SMTPPort: 2525, From: "from@x.io", SMTPUser: "u", SMTPPassword: "p"})
	var gotAddr string
	var gotTo []string
	tr.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo = addr, to
		assert.NotNil(t, a)
		assert.Equal(t, "from@x.io", from)
		assert.Contains(t, string(msg), "Subject: Hi")
		return nil
	}
	require.NoError(t, tr.Send(context.Background(), Message{To: "a@b.com", Subject: "Hi", Text: "x"}))
	assert.Equal(t, "smtp.local:2525", gotAddr)
	assert.Equal(t, []string{"a@b.com"}, gotTo)
}

type fakePublisher struct{ ev queue.EmailEvent }

func (f *fakePublisher) PublishEmail(_ context.Context, ev queue.EmailEvent) error {
	f.ev = ev
	return nil
}

func TestQueueTransportAndDeliver(t *testing.T) {
	fp := &fakePublisher{}
	require.NoError(t, QueueTransport{Publisher: fp}.Send(context.Background(), Message{To: "a@b.com", Subject: "s", Template: "verify-email", Text: "t"}))
	assert.Equal(t, "a@b.com", fp.ev.To)
	assert.False(t, fp.ev.RequestedAt.IsZero())

	rt := &recordingTransport{}
	require.NoError(t, Deliver(rt)(context.Background(), fp.ev))
	require.Len(t, rt.sent, 1)
	assert.Equal(t, "verify-email", rt.sent[0].Template)
}
