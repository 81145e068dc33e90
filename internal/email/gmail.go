package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig holds the configuration for the Gmail email sender.
type GmailConfig struct {
	// CredentialsJSON is a service account credentials JSON with
	// domain-wide delegation. Takes precedence over the token fields.
	CredentialsJSON string
	// ClientID, ClientSecret and RefreshToken authorize a personal mailbox
	ClientID     string
	ClientSecret string
	RefreshToken string
	// SenderAddress is the mailbox the service account impersonates
	SenderAddress string
}

// GmailSender implements Sender using the Gmail API.
type GmailSender struct {
	service *gmail.Service
}

// NewGmailSender creates a new GmailSender from service account or
// refresh token credentials. Extra client options are appended after the
// authenticated HTTP client.
func NewGmailSender(ctx context.Context, cfg GmailConfig, opts ...option.ClientOption) (*GmailSender, error) {
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("gmail: sender address is required")
	}

	var client option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
		}
		// Impersonate the sender mailbox
		jwtConfig.Subject = cfg.SenderAddress
		client = option.WithHTTPClient(jwtConfig.Client(ctx))
	case cfg.RefreshToken != "":
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		}
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
		client = option.WithHTTPClient(oauthCfg.Client(ctx, token))
	default:
		return nil, fmt.Errorf("gmail: credentials JSON or refresh token is required")
	}

	svc, err := gmail.NewService(ctx, append([]option.ClientOption{client}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}

	return NewGmailSenderWithService(svc), nil
}

// NewGmailSenderWithService wraps an already configured Gmail service
func NewGmailSenderWithService(svc *gmail.Service) *GmailSender {
	return &GmailSender{service: svc}
}

// Name implements Sender
func (g *GmailSender) Name() string {
	return "gmail"
}

// Send sends an email via the Gmail API.
func (g *GmailSender) Send(ctx context.Context, msg Message) error {
	raw, err := msg.MIME()
	if err != nil {
		return err
	}

	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}

	if _, err := g.service.Users.Messages.Send("me", gmailMsg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail: failed to send email: %w", err)
	}

	return nil
}
