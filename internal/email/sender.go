package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

var (
	ErrNoRecipient     = errors.New("email: no recipient")
	ErrNoSender        = errors.New("email: no sender address")
	ErrNoContent       = errors.New("email: message has no body")
	ErrInvalidHeader   = errors.New("email: header contains line break")
	ErrUnknownProvider = errors.New("email: unknown provider")
)

// Sender is the interface that all email providers must implement.
type Sender interface {
	// Send delivers a single message. Implementations make exactly one
	// delivery attempt.
	Send(ctx context.Context, msg Message) error
	// Name identifies the provider in logs and readiness output.
	Name() string
}

// Checker is implemented by senders that can probe their upstream
// without sending mail.
type Checker interface {
	Check(ctx context.Context) error
}

// Message represents an email message to be sent.
type Message struct {
	From     string // sender address
	FromName string // optional display name
	To       string // recipient address
	ReplyTo  string // optional Reply-To address
	Subject  string
	TextBody string // plain-text body
	HTMLBody string // optional HTML alternative
}

// Validate checks the message has everything needed for delivery and
// that no header value can inject further headers.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.From) == "" {
		return ErrNoSender
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return ErrNoContent
	}
	for _, h := range []string{m.From, m.FromName, m.To, m.ReplyTo, m.Subject} {
		if strings.ContainsAny(h, "\r\n") {
			return ErrInvalidHeader
		}
	}
	return nil
}

// build converts the message into a gomail message with a text part and,
// when present, an HTML alternative.
func (m Message) build() *gomail.Message {
	gm := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	gm.SetAddressHeader("From", m.From, m.FromName)
	gm.SetHeader("To", m.To)
	if m.ReplyTo != "" {
		gm.SetHeader("Reply-To", m.ReplyTo)
	}
	gm.SetHeader("Subject", m.Subject)

	switch {
	case m.TextBody != "" && m.HTMLBody != "":
		gm.SetBody("text/plain", m.TextBody)
		gm.AddAlternative("text/html", m.HTMLBody)
	case m.TextBody != "":
		gm.SetBody("text/plain", m.TextBody)
	default:
		gm.SetBody("text/html", m.HTMLBody)
	}
	return gm
}

// MIME renders the message as an RFC 5322 document
func (m Message) MIME() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := m.build().WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("email: failed to render message: %w", err)
	}
	return buf.Bytes(), nil
}

// fromHeader formats the From header value for API based providers
func (m Message) fromHeader() string {
	return m.build().FormatAddress(m.From, m.FromName)
}
