package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inam-1906/datock-website/internal/email"
	"github.com/inam-1906/datock-website/internal/logger"
	"github.com/inam-1906/datock-website/internal/service"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newSendTestCmd(opts *rootOptions) *cobra.Command {
	var (
		replyTo string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a sample inquiry through the configured email provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			sender, err := email.NewFromConfig(ctx, cfg.Email, log)
			if err != nil {
				return fmt.Errorf("failed to configure email sender: %w", err)
			}

			if replyTo == "" {
				replyTo = cfg.Email.Receiver
			}

			svc := service.NewContactService(sender, cfg, log)
			err = svc.Submit(ctx, service.Inquiry{
				Name:    cfg.Site.Name + " Test",
				Email:   replyTo,
				Subject: "Test inquiry",
				Message: "This is a test inquiry sent with datock send-test.",
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Test inquiry sent via %s to %s\n", svc.SenderName(), cfg.Email.Receiver)
			return nil
		},
	}

	cmd.Flags().StringVar(&replyTo, "reply-to", "", "Reply-To address for the test inquiry (default: the receiver)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time limit for the send")

	return cmd
}
