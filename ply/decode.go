// Package ply reads and writes 3D Gaussian-splat PLY files.
//
// Only the canonical 62-property vertex layout is supported:
//
//	x y z                 position
//	nx ny nz              normal (ignored)
//	f_dc_0..2             DC spherical harmonics
//	f_rest_0..44          higher-order spherical harmonics
//	opacity               logit
//	scale_0..2            log scale
//	rot_0..3              quaternion (w, x, y, z)
//
// Files are either ASCII or binary_little_endian.
package ply

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/splatgo/splat"
	"gonum.org/v1/gonum/num/quat"
)

const (
	// PropertyCount is the number of float properties per vertex.
	PropertyCount = 62

	// RecordSize is the size of one binary vertex record in bytes.
	RecordSize = PropertyCount * 4

	headerTerminator = "end_header"
	vertexElement    = "element vertex"
	binaryLE         = "binary_little_endian"
)

// Offsets of the fields within a vertex record, in floats.
const (
	offPosition = 0
	offDC       = 6
	offRest     = 9
	offOpacity  = 54
	offScale    = 55
	offRotation = 58
)

// Format is the body encoding of a PLY file.
type Format int

const (
	// FormatASCII stores one whitespace separated vertex per line.
	FormatASCII Format = iota
	// FormatBinaryLittleEndian stores fixed size little-endian records.
	FormatBinaryLittleEndian
)

func (f Format) String() string {
	switch f {
	case FormatBinaryLittleEndian:
		return binaryLE
	default:
		return "ascii"
	}
}

// MarshalText encodes the format by its header name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Header is the parsed subset of a PLY header the decoder needs.
type Header struct {
	VertexCount int    `json:"vertex_count"`
	Format      Format `json:"format"`
	// Lines holds the raw header lines without the terminator.
	Lines []string `json:"lines"`
}

// ParseHeader parses the header and returns it with the offset at which the
// vertex data starts.
func ParseHeader(data []byte) (Header, int, error) {
	end := bytes.Index(data, []byte(headerTerminator))
	if end < 0 {
		return Header{}, 0, &HeaderError{Reason: "missing " + headerTerminator}
	}

	raw := data[:end]
	if !utf8.Valid(raw) {
		return Header{}, 0, ErrInvalidEncoding
	}

	// The first vertex element and the first format line are authoritative.
	h := Header{VertexCount: -1}
	seenFormat := false
	for line := range strings.Lines(string(raw)) {
		line = strings.TrimRight(line, "\r\n")
		h.Lines = append(h.Lines, line)

		if h.VertexCount < 0 && strings.HasPrefix(line, vertexElement) {
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return Header{}, 0, &HeaderError{Line: line, Reason: "missing vertex count"}
			}
			n, err := strconv.ParseUint(fields[2], 10, 63)
			if err != nil {
				return Header{}, 0, &HeaderError{Line: line, Reason: "invalid vertex count"}
			}
			h.VertexCount = int(n)
		}
		if fields := strings.Fields(line); !seenFormat && len(fields) >= 2 && fields[0] == "format" {
			seenFormat = true
			if fields[1] == binaryLE {
				h.Format = FormatBinaryLittleEndian
			}
		}
	}

	if h.VertexCount < 0 {
		return Header{}, 0, &HeaderError{Reason: "missing " + vertexElement + " declaration"}
	}

	body := end + len(headerTerminator)
	switch {
	case bytes.HasPrefix(data[body:], []byte("\r\n")):
		body += 2
	case bytes.HasPrefix(data[body:], []byte("\n")):
		body++
	}

	return h, body, nil
}

// Decode parses a PLY file into a new splat collection.
//
// Binary files must contain at least VertexCount records. ASCII files are
// read up to VertexCount lines; a file with fewer lines yields a shorter
// collection.
func Decode(data []byte) (*splat.Collection, error) {
	h, off, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	body := data[off:]
	if h.Format == FormatBinaryLittleEndian {
		return decodeBinary(body, h.VertexCount)
	}
	return decodeASCII(body, h.VertexCount)
}

func decodeBinary(body []byte, count int) (*splat.Collection, error) {
	if len(body)/RecordSize < count {
		expected := math.MaxInt
		if count <= math.MaxInt/RecordSize {
			expected = count * RecordSize
		}
		return nil, &BodyError{Expected: expected, Actual: len(body)}
	}

	c := splat.Make(count)
	var rec [PropertyCount]float32
	for i := range count {
		b := body[i*RecordSize : (i+1)*RecordSize]
		for k := range rec {
			rec[k] = math.Float32frombits(binary.LittleEndian.Uint32(b[k*4:]))
		}
		setRecord(c, i, &rec)
	}
	return c, nil
}

func decodeASCII(body []byte, count int) (*splat.Collection, error) {
	if !utf8.Valid(body) {
		return nil, ErrInvalidEncoding
	}

	// Bound the allocation by the lines actually present.
	c := splat.Make(min(count, bytes.Count(body, []byte{'\n'})+1))

	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rec [PropertyCount]float32
	n := 0
	for n < count && sc.Scan() {
		parsed := 0
		for _, field := range strings.Fields(sc.Text()) {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				continue
			}
			rec[parsed] = float32(v)
			parsed++
			if parsed == PropertyCount {
				break
			}
		}
		if parsed < PropertyCount {
			return nil, &BodyError{Line: n + 1, Expected: PropertyCount, Actual: parsed}
		}

		setRecord(c, n, &rec)
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, &BodyError{Line: n + 1, Expected: PropertyCount}
	}

	c.Truncate(n)
	return c, nil
}

// setRecord applies the stored-to-linear transforms and writes splat i.
func setRecord(c *splat.Collection, i int, rec *[PropertyCount]float32) {
	c.Positions[i] = [3]float32{rec[offPosition], rec[offPosition+1], rec[offPosition+2]}
	c.Opacities[i] = sigmoid(rec[offOpacity])
	c.Scales[i] = [3]float32{
		float32(math.Exp(float64(rec[offScale]))),
		float32(math.Exp(float64(rec[offScale+1]))),
		float32(math.Exp(float64(rec[offScale+2]))),
	}
	c.Rotations[i] = normalizeQuat(rec[offRotation], rec[offRotation+1], rec[offRotation+2], rec[offRotation+3])

	sh := &c.SH[i]
	copy(sh[:splat.SHDCTerms], rec[offDC:offDC+splat.SHDCTerms])
	copy(sh[splat.SHDCTerms:], rec[offRest:offOpacity])
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// normalizeQuat takes file order (w, x, y, z) and returns a unit quaternion
// in (x, y, z, w) order. A zero quaternion becomes the identity.
func normalizeQuat(w, x, y, z float32) [4]float32 {
	q := quat.Number{Real: float64(w), Imag: float64(x), Jmag: float64(y), Kmag: float64(z)}
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return [4]float32{0, 0, 0, 1}
	}
	q = quat.Scale(1/n, q)
	return [4]float32{float32(q.Imag), float32(q.Jmag), float32(q.Kmag), float32(q.Real)}
}
