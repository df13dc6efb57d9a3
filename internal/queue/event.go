// Package queue moves outbound email through RabbitMQ so request handlers
// never wait on the mail server.
package queue

import "time"

// MailQueueName is the durable queue carrying EmailEvent messages.
const MailQueueName = "mail.outbound"

// EmailEvent is a fully rendered message.  The consumer only has to deliver
// it; it never touches the database.
type EmailEvent struct {
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Template    string    `json:"template"`
	Text        string    `json:"text"`
	HTML        string    `json:"html,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
