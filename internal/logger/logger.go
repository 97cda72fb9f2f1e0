package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Logger.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger is a thin zerolog front end with printf-style leveled output. A nil
// Logger is valid and silent, so callers never need to guard log statements.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger. An empty level means info; unknown levels are an error.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("unknown log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := io.Writer(os.Stderr)
	if opts.Writer != nil {
		out = opts.Writer
	}
	if opts.HumanReadable {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// WithStep returns a derived logger that tags every entry with the step id.
func (l *Logger) WithStep(step string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zl: l.zl.With().Str("step", step).Logger()}
}

// Debugf writes a debug entry if the level allows it.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Debug().Msgf(format, args...)
}

// Infof writes an informational entry.
func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Info().Msgf(format, args...)
}

// Warnf writes a warning entry.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Warn().Msgf(format, args...)
}

// Error logs err alongside a short description of what was being attempted.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	l.zl.Error().Err(err).Msg(msg)
}
