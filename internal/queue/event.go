// Package queue defines message payloads exchanged over the message broker.
package queue

// EmailQueueName is the durable queue carrying outbound auth emails.
const EmailQueueName = "auth.email"

// EmailRequestedEvent is published when the engine wants an email sent
// out of band, currently only password-reset codes. It carries the full
// message so the consumer never has to query the primary database or
// Redis to deliver it.
type EmailRequestedEvent struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}
