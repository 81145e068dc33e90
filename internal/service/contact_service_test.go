package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/email"
	"github.com/inam-1906/datock-website/internal/logger"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockSender) Name() string {
	return "mock"
}

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{Name: "DaTock"},
		Email: config.EmailConfig{
			FromName: "DaTock Website",
			Receiver: "contact@datock.com",
			SMTP:     config.SMTPConfig{Username: "relay@datock.com"},
		},
		Contact: config.ContactConfig{SubjectPrefix: "DaTock Inquiry: ", SiteLabel: "DaTock.com"},
	}
}

func validInquiry() Inquiry {
	return Inquiry{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Website redesign",
		Message: "Hi,\nwe would like a quote.",
	}
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newTestContactService(sender email.Sender, cfg *config.Config) *ContactService {
	return NewContactService(sender, cfg, logger.Nop(), WithClock(func() time.Time { return fixedNow }))
}

func TestInquiry_Normalize(t *testing.T) {
	t.Parallel()

	in := Inquiry{
		Name:    "  <b>Jane</b>\r\nDoe ",
		Email:   " jane@example.com\t",
		Subject: "Quote\r\nBcc: victim@example.com",
		Message: "\n  Line one\nLine two  \n",
	}

	out := in.Normalize()
	assert.Equal(t, "Jane Doe", out.Name)
	assert.Equal(t, "jane@example.com", out.Email)
	assert.Equal(t, "Quote Bcc: victim@example.com", out.Subject)
	assert.Equal(t, "Line one\nLine two", out.Message, "message keeps inner line breaks")
}

func TestInquiry_NormalizeKeepsEntities(t *testing.T) {
	t.Parallel()

	out := Inquiry{Name: "Tom & Jerry", Subject: `<script>alert(1)</script>Price "5 < 6"`}.Normalize()
	assert.Equal(t, "Tom & Jerry", out.Name)
	assert.NotContains(t, out.Subject, "<script>")
	assert.Contains(t, out.Subject, "Price")
}

func TestInquiry_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Inquiry)
		fields []string
	}{
		{name: "valid", mutate: func(*Inquiry) {}},
		{name: "all missing", mutate: func(i *Inquiry) { *i = Inquiry{} }, fields: []string{"name", "email", "subject", "message"}},
		{name: "blank name", mutate: func(i *Inquiry) { i.Name = "   " }, fields: []string{"name"}},
		{name: "bad email", mutate: func(i *Inquiry) { i.Email = "not-an-email" }, fields: []string{"email"}},
		{name: "display name email", mutate: func(i *Inquiry) { i.Email = "Jane <jane@example.com>" }, fields: []string{"email"}},
		{name: "email with newline", mutate: func(i *Inquiry) { i.Email = "jane@example.com\nBcc: x@example.com" }, fields: []string{"email"}},
		{name: "long name", mutate: func(i *Inquiry) { i.Name = strings.Repeat("a", 101) }, fields: []string{"name"}},
		{name: "long subject", mutate: func(i *Inquiry) { i.Subject = strings.Repeat("s", 201) }, fields: []string{"subject"}},
		{name: "long message", mutate: func(i *Inquiry) { i.Message = strings.Repeat("m", 5001) }, fields: []string{"message"}},
		{name: "multibyte at limit", mutate: func(i *Inquiry) { i.Name = strings.Repeat("é", 100) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := validInquiry()
			tt.mutate(&in)

			err := in.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Fields: map[string]string{"name": "Name is required.", "email": "Email is required."}}
	assert.Equal(t, "validation failed: email: Email is required.; name: Name is required.", err.Error())
}

func TestContactService_Compose(t *testing.T) {
	t.Parallel()

	svc := newTestContactService(&mockSender{}, testConfig())
	msg, err := svc.Compose(validInquiry())
	require.NoError(t, err)

	assert.Equal(t, "relay@datock.com", msg.From)
	assert.Equal(t, "DaTock Website", msg.FromName)
	assert.Equal(t, "contact@datock.com", msg.To)
	assert.Equal(t, "jane@example.com", msg.ReplyTo)
	assert.Equal(t, "DaTock Inquiry: Website redesign", msg.Subject)

	want := "New inquiry from DaTock.com website:\n\n" +
		"Name: Jane Doe\n" +
		"Email: jane@example.com\n" +
		"Subject: Website redesign\n\n" +
		"Message:\nHi,\nwe would like a quote.\n\n" +
		"Received at: 2024-03-09 14:05:07\n"
	assert.Equal(t, want, msg.TextBody)
	assert.Contains(t, msg.HTMLBody, "Jane Doe")
	assert.Contains(t, msg.HTMLBody, "2024-03-09 14:05:07")
}

func TestContactService_ComposeEscapesHTML(t *testing.T) {
	t.Parallel()

	svc := newTestContactService(&mockSender{}, testConfig())
	in := validInquiry()
	in.Message = `<img src=x onerror="alert(1)">`

	msg, err := svc.Compose(in)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTMLBody, "<img")
	assert.Contains(t, msg.HTMLBody, "&lt;img")
	assert.Contains(t, msg.TextBody, in.Message, "plain text keeps the raw message")
}

func TestContactService_Submit(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return msg.To == "contact@datock.com" &&
			msg.ReplyTo == "jane@example.com" &&
			msg.Subject == "DaTock Inquiry: Website redesign"
	})).Return(nil).Once()

	svc := newTestContactService(sender, testConfig())
	require.NoError(t, svc.Submit(context.Background(), validInquiry()))
	sender.AssertExpectations(t)
	assert.Equal(t, "mock", svc.SenderName())
}

func TestContactService_SubmitNormalizesFirst(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return msg.Subject == "DaTock Inquiry: Hello world" && msg.ReplyTo == "jane@example.com"
	})).Return(nil).Once()

	in := validInquiry()
	in.Subject = "Hello\r\nworld"
	in.Email = "  jane@example.com "

	svc := newTestContactService(sender, testConfig())
	require.NoError(t, svc.Submit(context.Background(), in))
	sender.AssertExpectations(t)
}

func TestContactService_SubmitInvalid(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	svc := newTestContactService(sender, testConfig())

	err := svc.Submit(context.Background(), Inquiry{Name: "Jane"})
	require.ErrorIs(t, err, ErrInvalidInquiry)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestContactService_SubmitDeliveryFailure(t *testing.T) {
	t.Parallel()

	upstream := errors.New("535 authentication failed")
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(upstream).Once()

	svc := newTestContactService(sender, testConfig())
	err := svc.Submit(context.Background(), validInquiry())

	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.ErrorIs(t, err, upstream)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestContactService_LogsOnlyDeliveries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("relay down")).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewContactService(sender, testConfig(), logger.NewWithWriter(&buf, "debug", "json"))

	require.Error(t, svc.Submit(context.Background(), validInquiry()))
	assert.Empty(t, buf.String(), "failures are left to the caller to log")

	require.NoError(t, svc.Submit(context.Background(), validInquiry()))
	assert.Contains(t, buf.String(), `"message":"inquiry delivered"`)
	assert.Contains(t, buf.String(), `"reply_to":"jane@example.com"`)
	assert.NotContains(t, buf.String(), "we would like a quote")
}

func TestContactService_SiteLabelFallsBackToSiteName(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Contact.SiteLabel = ""

	msg, err := newTestContactService(&mockSender{}, cfg).Compose(validInquiry())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.TextBody, "New inquiry from DaTock website:\n"))
	assert.Contains(t, msg.HTMLBody, "New inquiry from DaTock website")
}

func TestContactService_ConfiguredLimits(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Contact.MaxMessageLength = 10

	sender := &mockSender{}
	svc := newTestContactService(sender, cfg)
	assert.Equal(t, 10, svc.Limits().Message)
	assert.Equal(t, 100, svc.Limits().Name)

	err := svc.Submit(context.Background(), validInquiry())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "message")
}

func TestContactService_FromAddressOverride(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Email.FromAddress = "noreply@datock.com"

	msg, err := newTestContactService(&mockSender{}, cfg).Compose(validInquiry())
	require.NoError(t, err)
	assert.Equal(t, "noreply@datock.com", msg.From)
}
