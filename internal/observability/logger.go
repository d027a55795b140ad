// Package observability provides the zerolog-based logger shared by the pipeline.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger embeds zerolog.Logger so call sites keep the native builder API.
type Logger struct {
	zerolog.Logger
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Debug   bool
	NoColor bool
	Output  io.Writer
	RunID   string
}

// NewLogger creates a console logger for a run. Without Debug only warnings
// and errors are emitted so the progress bar stays readable.
func NewLogger(cfg LogConfig) *Logger {
	level := zerolog.WarnLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	zl := zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}).Level(level).
		With().
		Timestamp().
		Str("run_id", cfg.RunID).
		Logger()

	return &Logger{Logger: zl}
}

// WithTask returns a logger scoped to one acquisition task.
func (l *Logger) WithTask(sourceURL string) *Logger {
	return &Logger{Logger: l.With().Str("task_url", sourceURL).Logger()}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}
