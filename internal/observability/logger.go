package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is the output format (json, console, pretty).
	Format string

	// Output is the output destination (stdout, stderr).
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns a LoggingConfig with sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a new zerolog logger based on configuration.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var output io.Writer

	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	return newLogger(cfg, output)
}

func newLogger(cfg LoggingConfig, output io.Writer) zerolog.Logger {
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	if f := strings.ToLower(cfg.Format); f == "console" || f == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}

	logger := zerolog.New(output).With().Timestamp()
	if cfg.AddSource {
		logger = logger.Caller()
	}
	log := logger.Logger()

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return log.Level(level)
}

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithPaperContext adds paper fields to a logger.
func WithPaperContext(logger zerolog.Logger, paperID string) zerolog.Logger {
	return logger.With().
		Str("paper_id", paperID).
		Logger()
}

// WithDocumentContext adds document generation fields to a logger.
func WithDocumentContext(logger zerolog.Logger, paperID, format string) zerolog.Logger {
	return logger.With().
		Str("paper_id", paperID).
		Str("format", format).
		Logger()
}

// LoggerFromContext returns logger enriched with whatever request-scoped
// identifiers ctx carries.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	rc := RequestContextFromContext(ctx)
	if rc == (RequestContext{}) {
		return logger
	}
	lc := logger.With()
	if rc.RequestID != "" {
		lc = lc.Str("request_id", rc.RequestID)
	}
	if rc.CorrelationID != "" {
		lc = lc.Str("correlation_id", rc.CorrelationID)
	}
	if rc.PaperID != "" {
		lc = lc.Str("paper_id", rc.PaperID)
	}
	return lc.Logger()
}
