package email

import (
	"context"
	"fmt"

	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/logger"
)

// NewFromConfig builds the Sender selected by cfg.Provider
func NewFromConfig(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	var (
		sender Sender
		err    error
	)

	switch cfg.Provider {
	case config.ProviderSMTP, "":
		sender, err = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Security: cfg.SMTP.Security,
			Timeout:  cfg.SMTP.Timeout,
		})
	case config.ProviderGmail:
		sender, err = NewGmailSender(ctx, GmailConfig{
			CredentialsJSON: cfg.Gmail.CredentialsJSON,
			ClientID:        cfg.Gmail.ClientID,
			ClientSecret:    cfg.Gmail.ClientSecret,
			RefreshToken:    cfg.Gmail.RefreshToken,
			SenderAddress:   cfg.Sender(),
		})
	case config.ProviderResend:
		sender, err = NewResendSender(cfg.Resend.APIKey)
	case config.ProviderSES:
		sender, err = NewSESSender(ctx, SESConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
	case config.ProviderStdout:
		sender = NewStdoutSender()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	event := log.WithProvider(sender.Name()).Info().
		Str("from", cfg.Sender()).
		Str("receiver", cfg.Receiver)
	if sender.Name() == config.ProviderSMTP {
		event = event.Str("relay", cfg.SMTP.Addr())
	}
	event.Msg("Email sender configured")

	return sender, nil
}
