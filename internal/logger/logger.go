package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a Logger writing to stdout.
// format is "json" (default) or "console"/"text" for development.
func New(level string, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a Logger writing to w
func NewWithWriter(w io.Writer, level string, format string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format == "text" || format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &Logger{Logger: logger}
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithRequestID returns a new logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With().Str("request_id", requestID).Logger(),
	}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithProvider returns a new logger tagged with the email provider name
func (l *Logger) WithProvider(provider string) *Logger {
	return &Logger{
		Logger: l.With().Str("provider", provider).Logger(),
	}
}

// HTTPRequest logs a completed HTTP request. Server errors are logged at
// error level, client errors at warn.
func (l *Logger) HTTPRequest(method, path string, statusCode int, duration time.Duration, clientIP string) {
	var event *zerolog.Event
	switch {
	case statusCode >= 500:
		event = l.Error()
	case statusCode >= 400:
		event = l.Warn()
	default:
		event = l.Info()
	}

	event.
		Str("method", method).
		Str("path", path).
		Int("status", statusCode).
		Dur("duration", duration).
		Str("client_ip", clientIP).
		Msg("HTTP request")
}

// Inquiry logs a delivered contact form submission without the message body
func (l *Logger) Inquiry(provider, replyTo string, duration time.Duration) {
	l.Info().
		Str("provider", provider).
		Str("reply_to", replyTo).
		Dur("duration", duration).
		Msg("inquiry delivered")
}
