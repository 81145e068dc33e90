package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSecretKey is the placeholder secret shipped with the defaults.
// Deployments must override it via SECRET_KEY or DATOCK_SECURITY_SECRET_KEY.
const DefaultSecretKey = "default_insecure_key_PLEASE_CHANGE"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Site     SiteConfig     `mapstructure:"site" yaml:"site"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
	Email    EmailConfig    `mapstructure:"email" yaml:"email"`
	Contact  ContactConfig  `mapstructure:"contact" yaml:"contact"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls" yaml:"tls"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TLSConfig holds HTTPS configuration. Either CertFile/KeyFile or
// AutocertDomains may be set; certificate files win when both are present.
type TLSConfig struct {
	Enabled         bool     `mapstructure:"enabled" yaml:"enabled"`
	CertFile        string   `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile         string   `mapstructure:"key_file" yaml:"key_file"`
	AutocertDomains []string `mapstructure:"autocert_domains" yaml:"autocert_domains"`
	AutocertEmail   string   `mapstructure:"autocert_email" yaml:"autocert_email"`
	CacheDir        string   `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// SiteConfig holds presentation settings for the rendered pages
type SiteConfig struct {
	// Name is shown in page titles and in the inquiry email body
	Name string `mapstructure:"name" yaml:"name"`
	// BaseURL is the public origin used in the sitemap and robots file
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// DevMode re-reads templates from TemplateDir on every request and
	// disables browser caching of static assets
	DevMode     bool   `mapstructure:"dev_mode" yaml:"dev_mode"`
	TemplateDir string `mapstructure:"template_dir" yaml:"template_dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	SecretKey string     `mapstructure:"secret_key" yaml:"secret_key"`
	CSRF      CSRFConfig `mapstructure:"csrf" yaml:"csrf"`
}

// CSRFConfig holds cross-site request forgery protection settings
type CSRFConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	CookieName string `mapstructure:"cookie_name" yaml:"cookie_name"`
	// SecureCookie marks the token cookie Secure. Turn it off only when the
	// site is served over plain HTTP; dev mode never sets it.
	SecureCookie   bool     `mapstructure:"secure_cookie" yaml:"secure_cookie"`
	TrustedOrigins []string `mapstructure:"trusted_origins" yaml:"trusted_origins"`
}

// EmailConfig holds email sending configuration
type EmailConfig struct {
	// Provider is the email provider to use: "smtp", "gmail", "resend", "ses" or "stdout"
	Provider string `mapstructure:"provider" yaml:"provider"`
	// FromAddress is the envelope and header sender; defaults to the SMTP username
	FromAddress string `mapstructure:"from_address" yaml:"from_address"`
	FromName    string `mapstructure:"from_name" yaml:"from_name"`
	// Receiver is the mailbox inquiries are delivered to
	Receiver string `mapstructure:"receiver" yaml:"receiver"`

	SMTP   SMTPConfig   `mapstructure:"smtp" yaml:"smtp"`
	Gmail  GmailConfig  `mapstructure:"gmail" yaml:"gmail"`
	Resend ResendConfig `mapstructure:"resend" yaml:"resend"`
	SES    SESConfig    `mapstructure:"ses" yaml:"ses"`
}

// Sender returns the configured sender address, falling back to the SMTP username
func (c EmailConfig) Sender() string {
	if c.FromAddress != "" {
		return c.FromAddress
	}
	return c.SMTP.Username
}

// SMTPConfig holds mail relay configuration
type SMTPConfig struct {
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	// Security is "starttls", "tls" or "none"; empty picks tls on 465 and starttls elsewhere
	Security string        `mapstructure:"security" yaml:"security"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Addr returns the relay address
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json" yaml:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token" yaml:"refresh_token"`
}

// ResendConfig holds Resend API configuration
type ResendConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// SESConfig holds AWS SES configuration. Static keys are optional; the
// default AWS credential chain is used when they are empty.
type SESConfig struct {
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// ContactConfig holds contact form settings
type ContactConfig struct {
	SubjectPrefix    string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
	MaxBodyBytes     int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxNameLength    int    `mapstructure:"max_name_length" yaml:"max_name_length"`
	MaxSubjectLength int    `mapstructure:"max_subject_length" yaml:"max_subject_length"`
	MaxMessageLength int    `mapstructure:"max_message_length" yaml:"max_message_length"`

	// SiteLabel names the site in the inquiry body
	SiteLabel string `mapstructure:"site_label" yaml:"site_label"`
}

// Email providers
const (
	ProviderSMTP   = "smtp"
	ProviderGmail  = "gmail"
	ProviderResend = "resend"
	ProviderSES    = "ses"
	ProviderStdout = "stdout"
)

// legacyEnv maps config keys to the unprefixed variable names existing
// deployments already set. The prefixed DATOCK_* form takes precedence.
var legacyEnv = map[string]string{
	"server.port":         "PORT",
	"security.secret_key": "SECRET_KEY",
	"email.smtp.host":     "EMAIL_HOST",
	"email.smtp.port":     "EMAIL_PORT",
	"email.smtp.username": "EMAIL_USER",
	"email.smtp.password": "EMAIL_PASSWORD",
	"email.receiver":      "RECEIVER_EMAIL",
}

type loadOptions struct {
	configFile string
	envFile    string
}

// LoadOption customizes Load
type LoadOption func(*loadOptions)

// WithConfigFile reads configuration from an explicit file instead of
// searching the default locations. A missing explicit file is an error.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// WithEnvFile loads variables from a dotenv file before binding the
// environment. Variables already set in the process environment win.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// Load reads configuration from file and environment variables
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/datock")
	}

	setDefaults(v)

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	v.SetEnvPrefix("DATOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "DATOCK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Email.Provider = strings.ToLower(strings.TrimSpace(cfg.Email.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Email.Receiver == "" {
		return errors.New("email receiver is required")
	}

	switch c.Email.Provider {
	case ProviderSMTP:
		if c.Email.SMTP.Host == "" {
			return errors.New("smtp host is required")
		}
		if c.Email.SMTP.Port <= 0 || c.Email.SMTP.Port > 65535 {
			return fmt.Errorf("invalid smtp port %d", c.Email.SMTP.Port)
		}
		switch c.Email.SMTP.Security {
		case "", "starttls", "tls", "none":
		default:
			return fmt.Errorf("unknown smtp security mode %q", c.Email.SMTP.Security)
		}
	case ProviderGmail, ProviderResend, ProviderSES, ProviderStdout:
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}

	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return errors.New("tls cert_file and key_file must be set together")
	}

	return nil
}

// InsecureSecret reports whether the placeholder secret key is still in use
func (c *Config) InsecureSecret() bool {
	return c.Security.SecretKey == "" || c.Security.SecretKey == DefaultSecretKey
}

// Redacted returns a copy of the configuration with secrets masked
func (c *Config) Redacted() *Config {
	out := *c
	out.Security.SecretKey = mask(c.Security.SecretKey)
	out.Email.SMTP.Password = mask(c.Email.SMTP.Password)
	out.Email.Gmail.CredentialsJSON = mask(c.Email.Gmail.CredentialsJSON)
	out.Email.Gmail.ClientSecret = mask(c.Email.Gmail.ClientSecret)
	out.Email.Gmail.RefreshToken = mask(c.Email.Gmail.RefreshToken)
	out.Email.Resend.APIKey = mask(c.Email.Resend.APIKey)
	out.Email.SES.SecretAccessKey = mask(c.Email.SES.SecretAccessKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")
	v.SetDefault("server.tls.autocert_domains", []string{})
	v.SetDefault("server.tls.autocert_email", "")
	v.SetDefault("server.tls.cache_dir", "certs")

	// Site defaults
	v.SetDefault("site.name", "DaTock")
	v.SetDefault("site.base_url", "https://datock.com")
	v.SetDefault("site.dev_mode", false)
	v.SetDefault("site.template_dir", "web/templates")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security defaults
	v.SetDefault("security.secret_key", DefaultSecretKey)
	v.SetDefault("security.csrf.enabled", true)
	v.SetDefault("security.csrf.cookie_name", "datock_csrf")
	v.SetDefault("security.csrf.secure_cookie", true)
	v.SetDefault("security.csrf.trusted_origins", []string{})

	// Email defaults
	v.SetDefault("email.provider", ProviderSMTP)
	v.SetDefault("email.from_address", "")
	v.SetDefault("email.from_name", "DaTock Website")
	v.SetDefault("email.receiver", "contact@datock.com")
	v.SetDefault("email.smtp.host", "smtp.gmail.com")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "your-email@gmail.com")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.security", "")
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.gmail.credentials_json", "")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")
	v.SetDefault("email.resend.api_key", "")
	v.SetDefault("email.ses.region", "")
	v.SetDefault("email.ses.access_key_id", "")
	v.SetDefault("email.ses.secret_access_key", "")

	// Contact form defaults
	v.SetDefault("contact.subject_prefix", "DaTock Inquiry: ")
	v.SetDefault("contact.site_label", "DaTock.com")
	v.SetDefault("contact.max_body_bytes", 64<<10)
	v.SetDefault("contact.max_name_length", 100)
	v.SetDefault("contact.max_subject_length", 200)
	v.SetDefault("contact.max_message_length", 5000)
}
