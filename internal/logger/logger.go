// Package logger builds the SDK's zerolog loggers. Sensitive material
// (API keys, client secrets, bearer tokens) is redacted before it
// reaches any writer.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level     string // debug, info, warn, error
	Pretty    bool   // console-formatted output
	Redaction bool   // redact sensitive data
	Writer    io.Writer
}

// New creates a logger. An unparseable level falls back to info.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	if cfg.Redaction {
		writer = NewRedactor().Wrap(writer)
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Redaction: true,
	}
}
