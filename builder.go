package splatgo

import (
	"log/slog"

	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/export"
	"github.com/hupe1980/splatgo/license"
)

// Builder is an immutable fluent builder for Converters.
// Each method returns a new builder with the updated configuration.
//
// Example:
//
//	conv, err := splatgo.NewBuilder().
//	    GLB().
//	    QuantizePositions().
//	    QuantizeColors().
//	    Compress().
//	    Clean(clean.DefaultConfig()).
//	    Build()
type Builder struct {
	format          OutputFormat
	export          export.Config
	cleaning        *clean.Config
	authorizer      *license.Authorizer
	logger          *Logger
	metrics         MetricsCollector
	maxDecompressed int64
}

// NewBuilder returns a builder producing GLB output with 8-bit colours and
// every other toggle off.
func NewBuilder() Builder {
	return Builder{
		format: FormatGLB,
		export: export.DefaultConfig(),
	}
}

// GLB selects binary glTF output.
func (b Builder) GLB() Builder {
	b.format = FormatGLB
	return b
}

// GLTF selects JSON glTF output with an embedded buffer.
func (b Builder) GLTF() Builder {
	b.format = FormatGLTF
	return b
}

// PLY selects binary PLY output, useful for cleaning without conversion.
func (b Builder) PLY() Builder {
	b.format = FormatPLY
	return b
}

// Format sets the output format.
func (b Builder) Format(f OutputFormat) Builder {
	b.format = f
	return b
}

// QuantizePositions stores positions as normalized 16-bit integers.
func (b Builder) QuantizePositions() Builder {
	b.export.QuantizePositions = true
	return b
}

// QuantizeColors stores colors as normalized 8-bit integers.
func (b Builder) QuantizeColors() Builder {
	b.export.QuantizeColors = true
	return b
}

// FloatColors stores colors as 32-bit floats.
func (b Builder) FloatColors() Builder {
	b.export.QuantizeColors = false
	return b
}

// FullSH exports all spherical-harmonics coefficients.
func (b Builder) FullSH() Builder {
	b.export.FullSH = true
	return b
}

// Compress enables meshopt vertex compression.
func (b Builder) Compress() Builder {
	b.export.Compress = true
	return b
}

// Generator sets asset.generator.
func (b Builder) Generator(name string) Builder {
	b.export.Generator = name
	return b
}

// Clean enables the cleaning stage with cfg.
func (b Builder) Clean(cfg clean.Config) Builder {
	b.cleaning = &cfg
	return b
}

// Authorizer requires a license for every conversion.
func (b Builder) Authorizer(a *license.Authorizer) Builder {
	b.authorizer = a
	return b
}

// Logger sets the structured logger.
func (b Builder) Logger(l *Logger) Builder {
	b.logger = l
	return b
}

// LogLevel sets a text logger at level.
func (b Builder) LogLevel(level slog.Level) Builder {
	b.logger = NewTextLogger(level)
	return b
}

// Metrics sets the metrics collector.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.metrics = mc
	return b
}

// MaxDecompressedSize bounds unwrapped input.
func (b Builder) MaxDecompressedSize(n int64) Builder {
	b.maxDecompressed = n
	return b
}

// Options returns the builder's configuration as Options.
func (b Builder) Options() []Option {
	opts := []Option{
		WithFormat(b.format),
		WithExportConfig(b.export),
		WithCleaning(b.cleaning),
		WithMaxDecompressedSize(b.maxDecompressed),
	}
	if b.authorizer != nil {
		opts = append(opts, WithAuthorizer(b.authorizer))
	}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}
	return opts
}

// Build creates the Converter.
func (b Builder) Build() (*Converter, error) {
	return New(b.Options()...)
}

// MustBuild is like Build but panics on error.
func (b Builder) MustBuild() *Converter {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}
