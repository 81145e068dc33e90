package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"gopkg.in/gomail.v2"
)

// SMTP transport security modes
const (
	SMTPStartTLS    = "starttls"
	SMTPImplicitTLS = "tls"
	SMTPPlaintext   = "none"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig holds the configuration for the SMTP email sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // authentication is skipped when empty
	Password string
	// Security selects the transport: SMTPStartTLS, SMTPImplicitTLS or
	// SMTPPlaintext. Empty means implicit TLS on port 465, STARTTLS elsewhere.
	Security string
	// Timeout bounds a whole delivery: dial, handshake, auth and DATA.
	// Defaults to 10s.
	Timeout time.Duration
	// TLSConfig overrides the TLS settings used for STARTTLS or implicit TLS
	TLSConfig *tls.Config
}

// DialFunc opens an authenticated SMTP session. The session must give up
// as soon as ctx is done.
type DialFunc func(ctx context.Context) (gomail.SendCloser, error)

// SMTPSender implements Sender by relaying through an SMTP server.
// Each Send opens a fresh connection, secures it, authenticates, sends a
// single message and quits.
type SMTPSender struct {
	cfg  SMTPConfig
	dial DialFunc
}

// SMTPOption customizes an SMTPSender
type SMTPOption func(*SMTPSender)

// WithDialFunc replaces the connection factory
func WithDialFunc(dial DialFunc) SMTPOption {
	return func(s *SMTPSender) {
		s.dial = dial
	}
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg SMTPConfig, opts ...SMTPOption) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp: invalid port %d", cfg.Port)
	}

	switch cfg.Security {
	case "":
		cfg.Security = SMTPStartTLS
		if cfg.Port == 465 {
			cfg.Security = SMTPImplicitTLS
		}
	case SMTPStartTLS, SMTPImplicitTLS, SMTPPlaintext:
	default:
		return nil, fmt.Errorf("smtp: unknown security mode %q", cfg.Security)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	s := &SMTPSender{cfg: cfg}
	s.dial = s.dialRelay
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Sender
func (s *SMTPSender) Name() string {
	return "smtp"
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	gm := msg.build()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	sc, err := s.dial(ctx)
	if err != nil {
		return s.interrupted(ctx, fmt.Errorf("smtp: failed to connect to %s: %w", s.addr(), err))
	}
	if err := gomail.Send(sc, gm); err != nil {
		_ = sc.Close()
		return s.interrupted(ctx, fmt.Errorf("smtp: failed to send email: %w", err))
	}
	// The relay accepted the message once DATA completed, a failing QUIT
	// does not undo the delivery.
	_ = sc.Close()
	return nil
}

// Check implements Checker by opening and closing an authenticated session
func (s *SMTPSender) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	sc, err := s.dial(ctx)
	if err != nil {
		return s.interrupted(ctx, fmt.Errorf("smtp: failed to connect to %s: %w", s.addr(), err))
	}
	if err := sc.Close(); err != nil {
		return s.interrupted(ctx, fmt.Errorf("smtp: quit failed: %w", err))
	}
	return nil
}

// interrupted blames ctx for err when the session was cut short by it
func (s *SMTPSender) interrupted(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	switch {
	case ctxErr == nil:
		return err
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return fmt.Errorf("smtp: timed out after %s: %w: %w", s.cfg.Timeout, ctxErr, err)
	default:
		return fmt.Errorf("smtp: %w: %w", ctxErr, err)
	}
}

func (s *SMTPSender) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// dialRelay connects and authenticates. The connection is closed the
// moment ctx is done: go-smtp resets deadlines on every command, so
// closing is the only way to interrupt a stalled relay.
func (s *SMTPSender) dialRelay(ctx context.Context) (gomail.SendCloser, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	c, err := s.handshake(conn)
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, err
	}
	return &smtpSession{client: c, stop: stop}, nil
}

func (s *SMTPSender) handshake(conn net.Conn) (*smtp.Client, error) {
	var c *smtp.Client
	switch s.cfg.Security {
	case SMTPImplicitTLS:
		c = smtp.NewClient(tls.Client(conn, s.tlsConfig()))
	case SMTPPlaintext:
		c = smtp.NewClient(conn)
	default:
		var err error
		if c, err = smtp.NewClientStartTLS(conn, s.tlsConfig()); err != nil {
			return nil, err
		}
	}
	if s.cfg.Username == "" {
		return c, nil
	}

	var auth sasl.Client
	switch {
	case c.SupportsAuth(sasl.Plain):
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	case c.SupportsAuth(sasl.Login):
		auth = sasl.NewLoginClient(s.cfg.Username, s.cfg.Password)
	default:
		_ = c.Close()
		return nil, errors.New("smtp: server offers no supported AUTH mechanism")
	}
	if err := c.Auth(auth); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	cfg := &tls.Config{}
	if s.cfg.TLSConfig != nil {
		cfg = s.cfg.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = s.cfg.Host
	}
	return cfg
}

// smtpSession adapts a go-smtp client to gomail.SendCloser so gomail
// still derives the envelope and writes the MIME body.
type smtpSession struct {
	client *smtp.Client
	stop   func() bool
	failed bool
}

// Send implements gomail.Sender
func (s *smtpSession) Send(from string, to []string, msg io.WriterTo) error {
	if err := s.send(from, to, msg); err != nil {
		s.failed = true
		return err
	}
	return nil
}

func (s *smtpSession) send(from string, to []string, msg io.WriterTo) error {
	if err := s.client.Mail(from, nil); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr, nil); err != nil {
			return err
		}
	}

	w, err := s.client.Data()
	if err != nil {
		return err
	}
	// A half written body is never terminated, the connection is dropped instead
	if _, err := msg.WriteTo(w); err != nil {
		return err
	}
	return w.Close()
}

// Close quits the session, or drops the connection after a failed send
func (s *smtpSession) Close() error {
	defer s.stop()
	if s.failed {
		return s.client.Close()
	}
	if err := s.client.Quit(); err != nil {
		_ = s.client.Close()
		return err
	}
	return nil
}
