package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		From:     "site@example.com",
		FromName: "Example Website",
		To:       "inbox@example.com",
		ReplyTo:  "jane@example.com",
		Subject:  "Inquiry: Hello",
		TextBody: "Hello there",
	}
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Message)
		wantErr error
	}{
		{name: "valid", mutate: func(*Message) {}},
		{name: "html only", mutate: func(m *Message) { m.TextBody = ""; m.HTMLBody = "<p>hi</p>" }},
		{name: "no recipient", mutate: func(m *Message) { m.To = " " }, wantErr: ErrNoRecipient},
		{name: "no sender", mutate: func(m *Message) { m.From = "" }, wantErr: ErrNoSender},
		{name: "no body", mutate: func(m *Message) { m.TextBody = "" }, wantErr: ErrNoContent},
		{name: "subject injection", mutate: func(m *Message) { m.Subject = "hi\r\nBcc: x@example.com" }, wantErr: ErrInvalidHeader},
		{name: "reply-to injection", mutate: func(m *Message) { m.ReplyTo = "a@example.com\nBcc: x@example.com" }, wantErr: ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := testMessage()
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMessage_MIME_TextOnly(t *testing.T) {
	t.Parallel()

	raw, err := testMessage().MIME()
	require.NoError(t, err)

	out := string(raw)
	assert.Contains(t, out, "Mime-Version: 1.0\r\n")
	assert.Contains(t, out, "From: \"Example Website\" <site@example.com>\r\n")
	assert.Contains(t, out, "To: inbox@example.com\r\n")
	assert.Contains(t, out, "Reply-To: jane@example.com\r\n")
	assert.Contains(t, out, "Subject: Inquiry: Hello\r\n")
	assert.Contains(t, out, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, out, "Hello there")
	assert.NotContains(t, out, "multipart/alternative")
}

func TestMessage_MIME_WithHTMLAlternative(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	msg.HTMLBody = "<p>Hello there</p>"
	raw, err := msg.MIME()
	require.NoError(t, err)

	out := string(raw)
	assert.Contains(t, out, "multipart/alternative")
	assert.Contains(t, out, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, out, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, out, "<p>Hello there</p>")
}

func TestMessage_MIME_EncodesNonASCIISubject(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	msg.Subject = "Café"
	raw, err := msg.MIME()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: =?UTF-8?q?Caf=C3=A9?=")
}

func TestMessage_MIME_InvalidMessage(t *testing.T) {
	t.Parallel()

	_, err := Message{}.MIME()
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestMessage_FromHeader(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	assert.Equal(t, `"Example Website" <site@example.com>`, msg.fromHeader())

	msg.FromName = ""
	assert.Equal(t, "site@example.com", msg.fromHeader())
}
