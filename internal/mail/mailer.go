// Package mail provides the outbound email capability used for
// password-reset codes. The only contract callers rely on is
// Send(to, subject, body); SMTPMailer is the production implementation
// and the queue consumer's delivery backend.
package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay using AUTH PLAIN
// when a username is configured. It holds no connection state; every
// Send dials the relay, which keeps the type trivially safe for
// concurrent use.
type SMTPMailer struct {
	Addr string // host:port of the relay
	From string // envelope sender and From header
	User string // auth username (optional)
	Pass string // auth password
}

func NewSMTPMailer(addr, from, user, pass string) *SMTPMailer {
	return &SMTPMailer{Addr: addr, From: from, User: user, Pass: pass}
}

// Send composes a minimal RFC 5322 message and submits it. The context
// is honored up front only; net/smtp offers no per-dial context, and the
// relay conversation is bounded by the server's own timeouts.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.From, to, subject, body))
	var auth smtp.Auth
	if m.User != "" {
		host, _, _ := splitAddr(m.Addr)
		auth = smtp.PlainAuth("", m.User, m.Pass, host)
	}
	return smtp.SendMail(m.Addr, auth, m.From, []string{to}, msg)
}

// LogMailer is the development fallback used when no SMTP relay is
// configured: it writes the message to the process log instead of
// sending it. Reset codes stay usable locally without a mail setup.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	log.Printf("mail (not sent, no SMTP relay): to=%s subject=%q body=%q", to, subject, body)
	return nil
}

func splitAddr(addr string) (host, port string, ok bool) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], true
		}
	}
	return addr, "", false
}
