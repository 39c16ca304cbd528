package splatgo

import (
	"log/slog"

	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/export"
	"github.com/hupe1980/splatgo/license"
)

// DefaultMaxDecompressedSize bounds the unwrapped input when no other
// limit applies.
const DefaultMaxDecompressedSize = 4 << 30

type options struct {
	export           export.Config
	format           OutputFormat
	cleaning         *clean.Config
	authorizer       *license.Authorizer
	metricsCollector MetricsCollector
	logger           *Logger
	maxDecompressed  int64
}

// Option configures a Converter.
type Option func(*options)

// WithExportConfig sets the glTF encoder toggles. The container is chosen
// by WithFormat and overrides cfg.Format.
func WithExportConfig(cfg export.Config) Option {
	return func(o *options) {
		o.export = cfg
	}
}

// WithFormat selects the output format. Default: FormatGLB.
func WithFormat(f OutputFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithCleaning enables the cleaning stage. nil disables it and the decoded
// collection is forwarded unchanged.
func WithCleaning(cfg *clean.Config) Option {
	return func(o *options) {
		if cfg == nil {
			o.cleaning = nil
			return
		}
		c := *cfg
		o.cleaning = &c
	}
}

// WithAuthorizer requires a valid license for every conversion.
func WithAuthorizer(a *license.Authorizer) Option {
	return func(o *options) {
		o.authorizer = a
	}
}

// WithMetricsCollector configures a metrics collector for monitoring conversions.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &splatgo.BasicMetricsCollector{}
//	conv, _ := splatgo.New(splatgo.WithMetricsCollector(metrics))
//	// ... convert ...
//	stats := metrics.GetStats()
//	fmt.Printf("Conversions: %d, Avg latency: %dns\n", stats.ConvertCount, stats.ConvertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for conversions.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := splatgo.NewJSONLogger(slog.LevelInfo)
//	conv, _ := splatgo.New(splatgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMaxDecompressedSize bounds the size of compressed input after
// unwrapping. n <= 0 keeps the default.
func WithMaxDecompressedSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDecompressed = n
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		export:           export.DefaultConfig(),
		format:           FormatGLB,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		maxDecompressed:  DefaultMaxDecompressedSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
