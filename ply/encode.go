package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/hupe1980/splatgo/splat"
)

// minOpacity keeps the logit finite for opacities of exactly 0 or 1.
const minOpacity = 1e-7

// Encode writes c as a 62-property splat PLY file in the given format.
// Opacity, scale and rotation are stored in their file representations
// (logit, log scale, w-first quaternion); normals are written as zero.
func Encode(w io.Writer, c *splat.Collection, format Format) error {
	if err := c.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	if err := writeHeader(bw, c.Len(), format); err != nil {
		return err
	}

	var rec [PropertyCount]float32
	switch format {
	case FormatBinaryLittleEndian:
		var buf [RecordSize]byte
		for i := range c.Len() {
			fillRecord(c, i, &rec)
			for k, v := range rec {
				binary.LittleEndian.PutUint32(buf[k*4:], math.Float32bits(v))
			}
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
	default:
		line := make([]byte, 0, 1024)
		for i := range c.Len() {
			fillRecord(c, i, &rec)
			line = line[:0]
			for k, v := range rec {
				if k > 0 {
					line = append(line, ' ')
				}
				line = strconv.AppendFloat(line, float64(v), 'g', -1, 32)
			}
			line = append(line, '\n')
			if _, err := bw.Write(line); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

func writeHeader(w io.Writer, count int, format Format) error {
	version := "ascii 1.0"
	if format == FormatBinaryLittleEndian {
		version = binaryLE + " 1.0"
	}

	if _, err := fmt.Fprintf(w, "ply\nformat %s\n%s %d\n", version, vertexElement, count); err != nil {
		return err
	}
	for _, name := range PropertyNames() {
		if _, err := fmt.Fprintf(w, "property float %s\n", name); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", headerTerminator)
	return err
}

// PropertyNames returns the 62 vertex property names in file order.
func PropertyNames() []string {
	names := make([]string, 0, PropertyCount)
	names = append(names, "x", "y", "z", "nx", "ny", "nz")
	for i := range 3 {
		names = append(names, fmt.Sprintf("f_dc_%d", i))
	}
	for i := range splat.SHCoefficients - splat.SHDCTerms {
		names = append(names, fmt.Sprintf("f_rest_%d", i))
	}
	names = append(names, "opacity")
	for i := range 3 {
		names = append(names, fmt.Sprintf("scale_%d", i))
	}
	for i := range 4 {
		names = append(names, fmt.Sprintf("rot_%d", i))
	}
	return names
}

// fillRecord applies the inverse transforms of setRecord.
func fillRecord(c *splat.Collection, i int, rec *[PropertyCount]float32) {
	p := c.Positions[i]
	copy(rec[offPosition:offPosition+3], p[:])
	rec[3], rec[4], rec[5] = 0, 0, 0

	sh := &c.SH[i]
	copy(rec[offDC:offDC+splat.SHDCTerms], sh[:splat.SHDCTerms])
	copy(rec[offRest:offOpacity], sh[splat.SHDCTerms:])

	rec[offOpacity] = logit(c.Opacities[i])
	for k, s := range c.Scales[i] {
		rec[offScale+k] = float32(math.Log(math.Max(float64(s), math.SmallestNonzeroFloat32)))
	}

	r := c.Rotations[i]
	rec[offRotation] = r[3]
	rec[offRotation+1] = r[0]
	rec[offRotation+2] = r[1]
	rec[offRotation+3] = r[2]
}

func logit(p float32) float32 {
	v := math.Min(math.Max(float64(p), minOpacity), 1-minOpacity)
	return float32(math.Log(v / (1 - v)))
}
