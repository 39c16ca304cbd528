package splatgo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/codec"
	"github.com/hupe1980/splatgo/export"
	"github.com/hupe1980/splatgo/license"
	"github.com/hupe1980/splatgo/ply"
	"github.com/hupe1980/splatgo/splat"
)

// OutputFormat names a converter output.
type OutputFormat string

const (
	FormatGLB  OutputFormat = "glb"
	FormatGLTF OutputFormat = "gltf"
	// FormatPLY writes the (cleaned) splats back as binary PLY.
	FormatPLY OutputFormat = "ply"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatGLB, FormatGLTF, FormatPLY:
		return f, nil
	default:
		return "", fmt.Errorf("splatgo: unknown output format %q", s)
	}
}

// Extension returns the file extension including the dot.
func (f OutputFormat) Extension() string {
	return "." + string(f)
}

// Result is the outcome of one conversion.
type Result struct {
	// Data is the encoded output.
	Data   []byte
	Format OutputFormat

	// InputBytes is the size of the input as passed in.
	InputBytes int
	// InputCodec is the detected transport compression.
	InputCodec codec.Type
	// Splats is the number of splats written.
	Splats int

	// Clean is nil when cleaning was disabled.
	Clean *clean.Stats
	// Compression is nil unless vertex compression was enabled.
	Compression *export.CompressionStats
	// Export is nil for PLY output.
	Export *export.Result

	Duration time.Duration
}

// Converter runs the PLY to glTF pipeline: authorize, decompress, decode,
// clean, encode and consume one license conversion. A single conversion is
// synchronous; a Converter is safe for concurrent use.
type Converter struct {
	opts options
}

// New creates a Converter.
func New(optFns ...Option) (*Converter, error) {
	opts := applyOptions(optFns)

	if _, err := ParseFormat(string(opts.format)); err != nil {
		return nil, err
	}
	if opts.cleaning != nil {
		if err := opts.cleaning.Validate(); err != nil {
			return nil, err
		}
	}
	return &Converter{opts: opts}, nil
}

// Format returns the configured output format.
func (c *Converter) Format() OutputFormat {
	return c.opts.format
}

// Convert converts one PLY file (optionally zstd, LZ4 or gzip wrapped).
// Size and quota checks run before the input is decoded.
func (c *Converter) Convert(ctx context.Context, data []byte) (*Result, error) {
	start := time.Now()
	res, err := c.convert(ctx, data)
	if res != nil {
		res.Duration = time.Since(start)
	}

	outBytes := 0
	if res != nil {
		outBytes = len(res.Data)
	}
	c.opts.metricsCollector.RecordConvert(c.opts.format, len(data), outBytes, time.Since(start), err)
	c.opts.logger.LogConvert(ctx, res, err)
	return res, err
}

func (c *Converter) convert(ctx context.Context, data []byte) (*Result, error) {
	if data == nil {
		return nil, ErrNilInput
	}
	log := c.opts.logger

	var grant *license.Grant
	if a := c.opts.authorizer; a != nil {
		g, err := a.Authorize(ctx, int64(len(data)), string(c.opts.format))
		if err != nil {
			return nil, stageErr(StageAuthorize, err)
		}
		grant = g
		log = log.WithSubject(g.Claims.Subject)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, typ, err := c.decompress(data, grant)
	if err != nil {
		return nil, stageErr(StageDecompress, err)
	}

	splats, err := ply.Decode(raw)
	log.LogDecode(ctx, len(raw), splats.Len(), err)
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Format:     c.opts.format,
		InputBytes: len(data),
		InputCodec: typ,
	}

	if cfg := c.opts.cleaning; cfg != nil {
		filtered, stats := clean.Filter(splats, *cfg)
		log.LogClean(ctx, stats)
		c.opts.metricsCollector.RecordClean(stats)
		splats = filtered
		res.Clean = &stats
	}
	res.Splats = splats.Len()

	out, exp, err := c.encode(splats)
	log.LogExport(ctx, c.opts.format, len(out), err)
	if err != nil {
		return nil, stageErr(StageEncode, err)
	}
	res.Data = out
	res.Export = exp
	if exp != nil && exp.Compression != nil {
		res.Compression = exp.Compression
		c.opts.metricsCollector.RecordCompression(exp.Compression)
	}

	if grant != nil {
		if err := c.opts.authorizer.Consume(ctx, grant); err != nil {
			return nil, stageErr(StageConsume, err)
		}
	}
	return res, nil
}

// decompress unwraps data, bounding the output by the configured maximum
// and the licensed size. The licensed size applies to both the wire bytes
// (checked by Authorize) and the unwrapped bytes.
func (c *Converter) decompress(data []byte, grant *license.Grant) ([]byte, codec.Type, error) {
	limit := c.opts.maxDecompressed
	licensed := false
	if grant != nil {
		if l := grant.Claims.MaxBytes(); l < limit {
			limit, licensed = l, true
		}
	}

	raw, typ, err := codec.Decompress(data, limit)
	if err != nil {
		var le *codec.LimitError
		if licensed && errors.As(err, &le) {
			// The exact size is unknown once the limit is hit.
			return nil, typ, &license.SizeError{Limit: limit, Actual: limit + 1}
		}
		return nil, typ, err
	}
	return raw, typ, nil
}

func (c *Converter) encode(splats *splat.Collection) ([]byte, *export.Result, error) {
	switch c.opts.format {
	case FormatPLY:
		var buf bytes.Buffer
		buf.Grow(splats.Len()*ply.RecordSize + 2048)
		if err := ply.Encode(&buf, splats, ply.FormatBinaryLittleEndian); err != nil {
			return nil, nil, err
		}
		return buf.Bytes(), nil, nil
	default:
		cfg := c.opts.export
		cfg.Format = export.FormatGLB
		if c.opts.format == FormatGLTF {
			cfg.Format = export.FormatGLTF
		}
		res, err := export.Encode(splats, cfg)
		if err != nil {
			return nil, nil, err
		}
		return res.Data, res, nil
	}
}

// Inspection summarizes an input file without converting it.
type Inspection struct {
	InputCodec codec.Type   `json:"codec"`
	Header     ply.Header   `json:"header"`
	Splats     int          `json:"splats"`
	BoundsMin  [3]float32   `json:"bounds_min"`
	BoundsMax  [3]float32   `json:"bounds_max"`
	Clean      *clean.Stats `json:"clean,omitempty"`
}

// Inspect decodes data and reports its header, bounds and, when cleaning
// is configured, what cleaning would remove. It needs no license.
func (c *Converter) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	if data == nil {
		return nil, ErrNilInput
	}

	raw, typ, err := codec.Decompress(data, c.opts.maxDecompressed)
	if err != nil {
		return nil, stageErr(StageDecompress, err)
	}
	header, _, err := ply.ParseHeader(raw)
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}
	splats, err := ply.Decode(raw)
	c.opts.logger.LogDecode(ctx, len(raw), splats.Len(), err)
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}

	ins := &Inspection{InputCodec: typ, Header: header, Splats: splats.Len()}
	ins.BoundsMin, ins.BoundsMax = splats.Bounds()
	if cfg := c.opts.cleaning; cfg != nil {
		_, stats := clean.Filter(splats, *cfg)
		ins.Clean = &stats
	}
	return ins, nil
}

// Convert is a convenience wrapper around New and Converter.Convert.
func Convert(ctx context.Context, data []byte, optFns ...Option) (*Result, error) {
	c, err := New(optFns...)
	if err != nil {
		return nil, err
	}
	return c.Convert(ctx, data)
}
