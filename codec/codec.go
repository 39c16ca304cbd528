// Package codec detects and removes transport compression around PLY input.
//
// Splat files are large and compress well, so inputs are accepted raw or
// wrapped in a zstd, LZ4 frame or gzip stream. The wrapper is recognized by
// its magic bytes; the decompressed size is always bounded by a caller limit.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a wrapper format.
type Type uint8

const (
	// Raw is uncompressed PLY text or binary.
	Raw Type = iota
	// Zstd is a zstd frame.
	Zstd
	// LZ4 is an LZ4 frame (not a raw block).
	LZ4
	// Gzip is a gzip member.
	Gzip
)

var (
	// ErrUnsupported is returned for input that is neither PLY nor a known
	// compressed wrapper.
	ErrUnsupported = errors.New("codec: unsupported input format")
	// ErrLimitExceeded is returned when decompressed output exceeds the limit.
	ErrLimitExceeded = errors.New("codec: decompressed size limit exceeded")
)

// LimitError reports the limit that was exceeded.
type LimitError struct {
	Type  Type
	Limit int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("codec: %s output exceeds %d bytes", e.Type, e.Limit)
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

var (
	magicPLY  = []byte("ply")
	magicZstd = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4  = []byte{0x04, 0x22, 0x4D, 0x18}
	magicGzip = []byte{0x1F, 0x8B}
)

// String returns the stable name of the type.
func (t Type) String() string {
	switch t {
	case Raw:
		return "raw"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	case Gzip:
		return "gzip"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ByName returns a type by its stable name.
func ByName(name string) (Type, bool) {
	switch name {
	case "raw", "none", "":
		return Raw, true
	case "zstd", "zst":
		return Zstd, true
	case "lz4":
		return LZ4, true
	case "gzip", "gz":
		return Gzip, true
	default:
		return 0, false
	}
}

// Detect inspects the leading bytes of data.
func Detect(data []byte) (Type, error) {
	switch {
	case bytes.HasPrefix(data, magicPLY):
		return Raw, nil
	case bytes.HasPrefix(data, magicZstd):
		return Zstd, nil
	case bytes.HasPrefix(data, magicLZ4):
		return LZ4, nil
	case bytes.HasPrefix(data, magicGzip):
		return Gzip, nil
	default:
		return 0, ErrUnsupported
	}
}

var zstdDecoderPool sync.Pool

func getZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	// Drop the reference to the input before pooling.
	_ = dec.Reset(nil)
	zstdDecoderPool.Put(dec)
}

// Decompress unwraps data. Raw input, and input without a recognized
// wrapper, is returned as is so that the PLY decoder can report what is
// wrong with it. limit <= 0 means no limit; otherwise raw input larger than
// limit and decompressed output larger than limit fail with a *LimitError.
func Decompress(data []byte, limit int64) ([]byte, Type, error) {
	t, err := Detect(data)
	if err != nil {
		t = Raw
	}

	if t == Raw {
		if limit > 0 && int64(len(data)) > limit {
			return nil, t, &LimitError{Type: t, Limit: limit}
		}
		return data, t, nil
	}

	var r io.Reader
	switch t {
	case Zstd:
		dec, err := getZstdDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, t, fmt.Errorf("codec: zstd: %w", err)
		}
		defer putZstdDecoder(dec)
		r = dec
	case LZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	case Gzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, t, fmt.Errorf("codec: gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	out, err := readLimited(r, limit)
	if err != nil {
		if errors.Is(err, ErrLimitExceeded) {
			return nil, t, &LimitError{Type: t, Limit: limit}
		}
		return nil, t, fmt.Errorf("codec: %s: %w", t, err)
	}
	return out, t, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrLimitExceeded
	}
	return out, nil
}

var zstdEncoderPool sync.Pool

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

// Compress wraps data in the given format. Raw returns data unchanged.
func Compress(data []byte, t Type) ([]byte, error) {
	switch t {
	case Raw:
		return data, nil
	case Zstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Gzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}
