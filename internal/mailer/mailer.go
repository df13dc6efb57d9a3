// Package mailer renders the account emails and hands them to a Transport.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/fintrack/internal/config"
	"github.com/iliyamo/fintrack/internal/metrics"
	"github.com/iliyamo/fintrack/internal/queue"
)

// Message is a rendered email.
type Message struct {
	To       string
	Subject  string
	Template string
	Text     string
	HTML     string
}

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer composes the verification and password-reset emails.
type Mailer struct {
	transport Transport
	baseURL   string
}

func New(t Transport, baseURL string) *Mailer {
	return &Mailer{transport: t, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewFromConfig picks the transport named by cfg.Transport.
func NewFromConfig(cfg config.MailConfig, baseURL string) (*Mailer, error) {
	var t Transport
	switch cfg.Transport {
	case "", "log":
		t = LogTransport{}
	case "smtp":
		t = NewSMTPTransport(cfg)
	case "queue":
		t = QueueTransport{Publisher: queue.NewPublisher(cfg.AMQPURL)}
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
	return New(t, baseURL), nil
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, email, code string) error {
	link := fmt.Sprintf("%s/verify-email?email=%s", m.baseURL, url.QueryEscape(email))
	return m.send(ctx, Message{
		To:       email,
		Subject:  "Confirm your email address",
		Template: "verify-email",
		Text: fmt.Sprintf("Your verification code is %s.\r\n\r\nIt expires in 10 minutes. Enter it at %s\r\n",
			code, link),
		HTML: fmt.Sprintf(`<p>Your verification code is <strong>%s</strong>.</p><p>It expires in 10 minutes. <a href="%s">Verify your email</a></p>`,
			code, link),
	})
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, url.QueryEscape(token))
	return m.send(ctx, Message{
		To:       email,
		Subject:  "Reset your password",
		Template: "password-reset",
		Text: fmt.Sprintf("Use this link to reset your password:\r\n%s\r\n\r\nThe link expires in 1 hour. If you did not ask for it, ignore this email.\r\n",
			link),
		HTML: fmt.Sprintf(`<p><a href="%s">Reset your password</a></p><p>The link expires in 1 hour. If you did not ask for it, ignore this email.</p>`,
			link),
	})
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	err := m.transport.Send(ctx, msg)
	metrics.EmailsTotal.WithLabelValues(msg.Template, metrics.Result(err)).Inc()
	return err
}

// LogTransport writes the message to the log instead of sending it.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, msg Message) error {
	slog.Info("email", "to", msg.To, "subject", msg.Subject, "template", msg.Template, "body", msg.Text)
	return nil
}

// QueueTransport publishes the message to RabbitMQ; StartMailConsumer
// delivers it later.
type QueueTransport struct {
	Publisher interface {
		PublishEmail(ctx context.Context, ev queue.EmailEvent) error
	}
}

func (q QueueTransport) Send(ctx context.Context, msg Message) error {
	return q.Publisher.PublishEmail(ctx, queue.EmailEvent{
		To:          msg.To,
		Subject:     msg.Subject,
		Template:    msg.Template,
		Text:        msg.Text,
		HTML:        msg.HTML,
		RequestedAt: time.Now().UTC(),
	})
}

// Deliver adapts a Transport to the queue consumer.
func Deliver(t Transport) queue.DeliverFunc {
	return func(ctx context.Context, ev queue.EmailEvent) error {
		return t.Send(ctx, Message{To: ev.To, Subject: ev.Subject, Template: ev.Template, Text: ev.Text, HTML: ev.HTML})
	}
}
