package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendAPI is the subset of the Resend emails service used by ResendSender
type ResendAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender implements Sender using the Resend API.
type ResendSender struct {
	emails ResendAPI
}

// NewResendSender creates a ResendSender authenticated with apiKey
func NewResendSender(apiKey string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend: api key is required")
	}
	return NewResendSenderWithClient(resend.NewClient(apiKey).Emails), nil
}

// NewResendSenderWithClient creates a ResendSender with a custom client
func NewResendSenderWithClient(emails ResendAPI) *ResendSender {
	return &ResendSender{emails: emails}
}

// Name implements Sender
func (s *ResendSender) Name() string {
	return "resend"
}

// Send implements Sender
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    msg.fromHeader(),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
		ReplyTo: msg.ReplyTo,
	}

	if _, err := s.emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}
