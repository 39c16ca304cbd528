package splatgo

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/splatgo/clean"
)

// Logger wraps slog.Logger with splatgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithJob adds a job ID field to the logger (used by batch runs).
func (l *Logger) WithJob(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("job", id),
	}
}

// WithInput adds an input name field to the logger.
func (l *Logger) WithInput(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("input", name),
	}
}

// WithSubject adds the license subject.
func (l *Logger) WithSubject(subject string) *Logger {
	return &Logger{
		Logger: l.Logger.With("subject", subject),
	}
}

// LogDecode logs the PLY decode stage.
func (l *Logger) LogDecode(ctx context.Context, inputBytes, splats int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "decode failed",
			"input_bytes", inputBytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "decode completed",
			"input_bytes", inputBytes,
			"splats", splats,
		)
	}
}

// LogClean logs the cleaning stage.
func (l *Logger) LogClean(ctx context.Context, stats clean.Stats) {
	l.DebugContext(ctx, "clean completed",
		"original", stats.OriginalCount,
		"low_opacity", stats.LowOpacity,
		"small_scale", stats.SmallScale,
		"outlier", stats.Outlier,
		"final", stats.FinalCount,
	)
}

// LogExport logs the encode stage.
func (l *Logger) LogExport(ctx context.Context, format OutputFormat, outputBytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"format", format,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "export completed",
			"format", format,
			"output_bytes", outputBytes,
		)
	}
}

// LogConvert logs a whole conversion.
func (l *Logger) LogConvert(ctx context.Context, res *Result, err error) {
	if err != nil {
		l.ErrorContext(ctx, "conversion failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "conversion completed",
		"format", res.Format,
		"input_bytes", res.InputBytes,
		"output_bytes", len(res.Data),
		"splats", res.Splats,
		"duration", res.Duration,
	)
}
