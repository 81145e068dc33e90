package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	htmltemplate "html/template"
	"net/mail"
	"sort"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/email"
	"github.com/inam-1906/datock-website/internal/logger"
)

// Contact errors
var (
	ErrInvalidInquiry = errors.New("invalid inquiry")
	ErrDeliveryFailed = errors.New("inquiry delivery failed")
)

// ReceivedAtLayout formats the submission time in the inquiry body
const ReceivedAtLayout = "2006-01-02 15:04:05"

var strictPolicy = bluemonday.StrictPolicy()

// Inquiry is a contact form submission
type Inquiry struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Normalize trims every field. Name and subject end up in mail headers, so
// markup is stripped and all whitespace, line breaks included, collapses to
// single spaces.
func (i Inquiry) Normalize() Inquiry {
	return Inquiry{
		Name:    singleLine(i.Name),
		Email:   strings.TrimSpace(i.Email),
		Subject: singleLine(i.Subject),
		Message: strings.TrimSpace(i.Message),
	}
}

func singleLine(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Limits caps field lengths in runes
type Limits struct {
	Name    int
	Email   int
	Subject int
	Message int
}

// DefaultLimits returns the standard field limits
func DefaultLimits() Limits {
	return Limits{Name: 100, Email: 254, Subject: 200, Message: 5000}
}

// ValidationError lists the rejected fields with a user-facing reason each
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the inquiry against DefaultLimits
func (i Inquiry) Validate() error {
	return i.ValidateLimits(DefaultLimits())
}

// ValidateLimits checks all four fields are present, the email is a bare
// address and no field exceeds its limit. It returns a *ValidationError.
func (i Inquiry) ValidateLimits(l Limits) error {
	fields := make(map[string]string)

	checkText := func(field, label, value string, max int) {
		switch {
		case strings.TrimSpace(value) == "":
			fields[field] = label + " is required."
		case max > 0 && utf8.RuneCountInString(value) > max:
			fields[field] = fmt.Sprintf("%s must be at most %d characters.", label, max)
		}
	}

	checkText("name", "Name", i.Name, l.Name)
	checkText("subject", "Subject", i.Subject, l.Subject)
	checkText("message", "Message", i.Message, l.Message)

	switch {
	case strings.TrimSpace(i.Email) == "":
		fields["email"] = "Email is required."
	case l.Email > 0 && utf8.RuneCountInString(i.Email) > l.Email:
		fields["email"] = fmt.Sprintf("Email must be at most %d characters.", l.Email)
	case !isBareAddress(i.Email):
		fields["email"] = "A valid email address is required."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func isBareAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

var textBody = template.Must(template.New("inquiry.txt").Parse(`New inquiry from {{.Site}} website:

Name: {{.Name}}
Email: {{.Email}}
Subject: {{.Subject}}

Message:
{{.Message}}

Received at: {{.ReceivedAt}}
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("inquiry.html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>New inquiry from {{.Site}} website</h2>
  <table cellpadding="4">
    <tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>
    <tr><td><strong>Email</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
    <tr><td><strong>Subject</strong></td><td>{{.Subject}}</td></tr>
  </table>
  <h3>Message</h3>
  <p style="white-space: pre-wrap;">{{.Message}}</p>
  <p style="color: #888; font-size: 12px;">Received at: {{.ReceivedAt}}</p>
</body>
</html>
`))

type inquiryView struct {
	Site       string
	Name       string
	Email      string
	Subject    string
	Message    string
	ReceivedAt string
}

// ContactService relays contact form inquiries to the site owner's mailbox
type ContactService struct {
	sender  email.Sender
	emailCf config.EmailConfig
	contact config.ContactConfig
	site    string
	limits  Limits
	now     func() time.Time
	log     *logger.Logger
}

// ContactOption customizes a ContactService
type ContactOption func(*ContactService)

// WithClock overrides the time source used for the received-at stamp
func WithClock(now func() time.Time) ContactOption {
	return func(s *ContactService) {
		s.now = now
	}
}

// NewContactService creates a new ContactService.
func NewContactService(sender email.Sender, cfg *config.Config, log *logger.Logger, opts ...ContactOption) *ContactService {
	limits := DefaultLimits()
	if cfg.Contact.MaxNameLength > 0 {
		limits.Name = cfg.Contact.MaxNameLength
	}
	if cfg.Contact.MaxSubjectLength > 0 {
		limits.Subject = cfg.Contact.MaxSubjectLength
	}
	if cfg.Contact.MaxMessageLength > 0 {
		limits.Message = cfg.Contact.MaxMessageLength
	}

	site := cfg.Contact.SiteLabel
	if site == "" {
		site = cfg.Site.Name
	}

	s := &ContactService{
		sender:  sender,
		emailCf: cfg.Email,
		contact: cfg.Contact,
		site:    site,
		limits:  limits,
		now:     time.Now,
		log:     log.WithComponent("contact"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the field limits in effect
func (s *ContactService) Limits() Limits {
	return s.limits
}

// Submit normalizes, validates and delivers an inquiry. Delivery is
// attempted exactly once.
func (s *ContactService) Submit(ctx context.Context, in Inquiry) error {
	in = in.Normalize()
	if err := in.ValidateLimits(s.limits); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInquiry, err)
	}

	msg, err := s.Compose(in)
	if err != nil {
		return err
	}

	// Failures are logged once, by the caller that maps them to a response
	start := time.Now()
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	s.log.Inquiry(s.sender.Name(), in.Email, time.Since(start))
	return nil
}

// Compose builds the notification email for an already normalized inquiry
func (s *ContactService) Compose(in Inquiry) (email.Message, error) {
	view := inquiryView{
		Site:       s.site,
		Name:       in.Name,
		Email:      in.Email,
		Subject:    in.Subject,
		Message:    in.Message,
		ReceivedAt: s.now().Format(ReceivedAtLayout),
	}

	var text, body bytes.Buffer
	if err := textBody.Execute(&text, view); err != nil {
		return email.Message{}, fmt.Errorf("failed to render inquiry text: %w", err)
	}
	if err := htmlBody.Execute(&body, view); err != nil {
		return email.Message{}, fmt.Errorf("failed to render inquiry html: %w", err)
	}

	return email.Message{
		From:     s.emailCf.Sender(),
		FromName: s.emailCf.FromName,
		To:       s.emailCf.Receiver,
		ReplyTo:  in.Email,
		Subject:  s.contact.SubjectPrefix + in.Subject,
		TextBody: text.String(),
		HTMLBody: body.String(),
	}, nil
}

// SenderName reports which provider delivers inquiries
func (s *ContactService) SenderName() string {
	return s.sender.Name()
}
