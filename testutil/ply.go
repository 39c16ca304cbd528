package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record holds one vertex in its stored file representation.
type Record struct {
	Position [3]float32
	Normal   [3]float32
	DC       [3]float32
	Rest     [45]float32
	// Opacity is the stored logit.
	Opacity float32
	// LogScale is the stored log scale.
	LogScale [3]float32
	// Rotation is the stored quaternion in file order (w, x, y, z).
	Rotation [4]float32
}

// Floats flattens the record into the 62-property file order.
func (r Record) Floats() []float32 {
	out := make([]float32, 0, 62)
	out = append(out, r.Position[:]...)
	out = append(out, r.Normal[:]...)
	out = append(out, r.DC[:]...)
	out = append(out, r.Rest[:]...)
	out = append(out, r.Opacity)
	out = append(out, r.LogScale[:]...)
	out = append(out, r.Rotation[:]...)
	return out
}

// PLYBuilder assembles raw splat PLY files for decoder tests.
type PLYBuilder struct {
	binary   bool
	records  []Record
	declared int
	extra    []string
}

// NewPLYBuilder returns a builder for a binary_little_endian (true) or
// ASCII (false) file.
func NewPLYBuilder(binary bool) *PLYBuilder {
	return &PLYBuilder{binary: binary, declared: -1}
}

// Add appends vertex records.
func (b *PLYBuilder) Add(records ...Record) *PLYBuilder {
	b.records = append(b.records, records...)
	return b
}

// DeclareCount overrides the vertex count written to the header.
func (b *PLYBuilder) DeclareCount(n int) *PLYBuilder {
	b.declared = n
	return b
}

// Comment adds a comment line to the header.
func (b *PLYBuilder) Comment(text string) *PLYBuilder {
	b.extra = append(b.extra, "comment "+text)
	return b
}

// Header returns the header text including the terminator line.
func (b *PLYBuilder) Header() string {
	count := b.declared
	if count < 0 {
		count = len(b.records)
	}

	var sb strings.Builder
	sb.WriteString("ply\n")
	if b.binary {
		sb.WriteString("format binary_little_endian 1.0\n")
	} else {
		sb.WriteString("format ascii 1.0\n")
	}
	for _, line := range b.extra {
		sb.WriteString(line + "\n")
	}
	fmt.Fprintf(&sb, "element vertex %d\n", count)
	for _, name := range []string{"x", "y", "z", "nx", "ny", "nz", "f_dc_0", "f_dc_1", "f_dc_2"} {
		fmt.Fprintf(&sb, "property float %s\n", name)
	}
	for i := range 45 {
		fmt.Fprintf(&sb, "property float f_rest_%d\n", i)
	}
	sb.WriteString("property float opacity\n")
	for i := range 3 {
		fmt.Fprintf(&sb, "property float scale_%d\n", i)
	}
	for i := range 4 {
		fmt.Fprintf(&sb, "property float rot_%d\n", i)
	}
	sb.WriteString("end_header\n")
	return sb.String()
}

// Bytes renders the file.
func (b *PLYBuilder) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(b.Header())

	for _, r := range b.records {
		floats := r.Floats()
		if b.binary {
			var word [4]byte
			for _, v := range floats {
				binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
				buf.Write(word[:])
			}
			continue
		}
		for i, v := range floats {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// IdentityRecord returns a record at pos with zero logit opacity (0.5),
// zero log scale (1) and identity rotation.
func IdentityRecord(pos [3]float32) Record {
	return Record{Position: pos, Rotation: [4]float32{1, 0, 0, 0}}
}
