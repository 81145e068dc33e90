package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdoutSender_Send(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewStdoutSenderWithWriter(&buf)
	assert.Equal(t, "stdout", s.Name())

	require.NoError(t, s.Send(context.Background(), testMessage()))

	out := buf.String()
	assert.Contains(t, out, "From: \"Example Website\" <site@example.com>\n")
	assert.Contains(t, out, "To: inbox@example.com\n")
	assert.Contains(t, out, "Reply-To: jane@example.com\n")
	assert.Contains(t, out, "Subject: Inquiry: Hello\n")
	assert.Contains(t, out, "Hello there\n")
}

func TestStdoutSender_HTMLFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	msg := testMessage()
	msg.TextBody = ""
	msg.HTMLBody = "<p>hi</p>"

	require.NoError(t, NewStdoutSenderWithWriter(&buf).Send(context.Background(), msg))
	assert.Contains(t, buf.String(), "<p>hi</p>")
}

func TestStdoutSender_InvalidMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := NewStdoutSenderWithWriter(&buf).Send(context.Background(), Message{})
	require.ErrorIs(t, err, ErrNoRecipient)
	assert.Zero(t, buf.Len())
}
