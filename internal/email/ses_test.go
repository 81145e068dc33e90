package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	err   error
	calls int
	input *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	t.Parallel()

	api := &fakeSES{}
	s := NewSESSenderWithClient(api)
	assert.Equal(t, "ses", s.Name())

	msg := testMessage()
	msg.HTMLBody = "<p>Hello there</p>"
	require.NoError(t, s.Send(context.Background(), msg))

	require.Equal(t, 1, api.calls)
	in := api.input
	assert.Equal(t, `"Example Website" <site@example.com>`, aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"inbox@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, []string{"jane@example.com"}, in.ReplyToAddresses)
	assert.Equal(t, "Inquiry: Hello", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "Hello there", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>Hello there</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_NoReplyTo(t *testing.T) {
	t.Parallel()

	api := &fakeSES{}
	msg := testMessage()
	msg.ReplyTo = ""
	require.NoError(t, NewSESSenderWithClient(api).Send(context.Background(), msg))
	assert.Empty(t, api.input.ReplyToAddresses)
	assert.Nil(t, api.input.Content.Simple.Body.Html)
}

func TestSESSender_Error(t *testing.T) {
	t.Parallel()

	upstream := errors.New("MessageRejected")
	api := &fakeSES{err: upstream}

	err := NewSESSenderWithClient(api).Send(context.Background(), testMessage())
	require.ErrorIs(t, err, upstream)
	assert.Equal(t, 1, api.calls)
}

func TestNewSESSender_StaticCredentials(t *testing.T) {
	t.Parallel()

	s, err := NewSESSender(context.Background(), SESConfig{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
