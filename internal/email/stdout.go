package email

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// StdoutSender prints messages instead of delivering them. Intended for
// local development.
type StdoutSender struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStdoutSender creates a StdoutSender writing to os.Stdout
func NewStdoutSender() *StdoutSender {
	return NewStdoutSenderWithWriter(os.Stdout)
}

// NewStdoutSenderWithWriter creates a StdoutSender writing to w
func NewStdoutSenderWithWriter(w io.Writer) *StdoutSender {
	return &StdoutSender{writer: w}
}

// Name implements Sender
func (s *StdoutSender) Name() string {
	return "stdout"
}

// Send implements Sender
func (s *StdoutSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s\n", msg.fromHeader())
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	b.WriteString(body + "\n")
	b.WriteString("========================================\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return fmt.Errorf("stdout: failed to write message: %w", err)
	}
	return nil
}
