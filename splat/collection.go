// Package splat defines the in-memory columnar model for 3D Gaussian splats.
//
// A Collection stores one slice per attribute. Index i across all slices
// describes the same splat. Collections own their buffers; operations that
// derive a new collection (Select, Clone) never share backing arrays with the
// source.
package splat

import (
	"fmt"
	"iter"
	"math"
)

const (
	// SHCoefficients is the number of spherical-harmonic floats per splat.
	SHCoefficients = 48

	// SHDCTerms is the number of direction-independent (DC) coefficients.
	SHDCTerms = 3
)

// Splat is a single Gaussian primitive in row form.
type Splat struct {
	Position [3]float32
	Opacity  float32
	Scale    [3]float32
	// Rotation is a unit quaternion in (x, y, z, w) order.
	Rotation [4]float32
	SH       [SHCoefficients]float32
}

// Collection is the structure-of-arrays splat store.
type Collection struct {
	Positions [][3]float32
	Opacities []float32
	Scales    [][3]float32
	Rotations [][4]float32
	SH        [][SHCoefficients]float32
}

// New returns an empty collection with room for capacity splats.
func New(capacity int) *Collection {
	if capacity < 0 {
		capacity = 0
	}
	return &Collection{
		Positions: make([][3]float32, 0, capacity),
		Opacities: make([]float32, 0, capacity),
		Scales:    make([][3]float32, 0, capacity),
		Rotations: make([][4]float32, 0, capacity),
		SH:        make([][SHCoefficients]float32, 0, capacity),
	}
}

// Make returns a collection holding n zero splats, ready for Set.
func Make(n int) *Collection {
	if n < 0 {
		n = 0
	}
	return &Collection{
		Positions: make([][3]float32, n),
		Opacities: make([]float32, n),
		Scales:    make([][3]float32, n),
		Rotations: make([][4]float32, n),
		SH:        make([][SHCoefficients]float32, n),
	}
}

// Len returns the number of splats.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Positions)
}

// Append adds s at the end of the collection.
func (c *Collection) Append(s Splat) {
	c.Positions = append(c.Positions, s.Position)
	c.Opacities = append(c.Opacities, s.Opacity)
	c.Scales = append(c.Scales, s.Scale)
	c.Rotations = append(c.Rotations, s.Rotation)
	c.SH = append(c.SH, s.SH)
}

// Set overwrites the splat at index i.
func (c *Collection) Set(i int, s Splat) {
	c.Positions[i] = s.Position
	c.Opacities[i] = s.Opacity
	c.Scales[i] = s.Scale
	c.Rotations[i] = s.Rotation
	c.SH[i] = s.SH
}

// At returns a copy of the splat at index i.
func (c *Collection) At(i int) Splat {
	return Splat{
		Position: c.Positions[i],
		Opacity:  c.Opacities[i],
		Scale:    c.Scales[i],
		Rotation: c.Rotations[i],
		SH:       c.SH[i],
	}
}

// Truncate keeps the first n splats. It is a no-op when n >= Len().
func (c *Collection) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= c.Len() {
		return
	}
	c.Positions = c.Positions[:n]
	c.Opacities = c.Opacities[:n]
	c.Scales = c.Scales[:n]
	c.Rotations = c.Rotations[:n]
	c.SH = c.SH[:n]
}

// Select builds a new collection from the given indices, in iteration order.
// size is a capacity hint.
func (c *Collection) Select(indices iter.Seq[int], size int) *Collection {
	out := New(size)
	for i := range indices {
		out.Positions = append(out.Positions, c.Positions[i])
		out.Opacities = append(out.Opacities, c.Opacities[i])
		out.Scales = append(out.Scales, c.Scales[i])
		out.Rotations = append(out.Rotations, c.Rotations[i])
		out.SH = append(out.SH, c.SH[i])
	}
	return out
}

// Clone returns a deep copy of c.
func (c *Collection) Clone() *Collection {
	out := Make(c.Len())
	copy(out.Positions, c.Positions)
	copy(out.Opacities, c.Opacities)
	copy(out.Scales, c.Scales)
	copy(out.Rotations, c.Rotations)
	copy(out.SH, c.SH)
	return out
}

// Bounds returns the per-axis minimum and maximum position.
// An empty collection yields zero bounds.
func (c *Collection) Bounds() (minPos, maxPos [3]float32) {
	if c.Len() == 0 {
		return minPos, maxPos
	}
	for k := range 3 {
		minPos[k] = math.MaxFloat32
		maxPos[k] = -math.MaxFloat32
	}
	for _, p := range c.Positions {
		for k := range 3 {
			if p[k] < minPos[k] {
				minPos[k] = p[k]
			}
			if p[k] > maxPos[k] {
				maxPos[k] = p[k]
			}
		}
	}
	return minPos, maxPos
}

// Validate checks that all columns have the same length.
func (c *Collection) Validate() error {
	n := len(c.Positions)
	if len(c.Opacities) != n || len(c.Scales) != n || len(c.Rotations) != n || len(c.SH) != n {
		return fmt.Errorf("splat: column length mismatch: positions=%d opacities=%d scales=%d rotations=%d sh=%d",
			n, len(c.Opacities), len(c.Scales), len(c.Rotations), len(c.SH))
	}
	return nil
}

// ByteSize estimates the in-memory size of the attribute columns.
func (c *Collection) ByteSize() int64 {
	const perSplat = 4 * (3 + 1 + 3 + 4 + SHCoefficients)
	return int64(c.Len()) * perSplat
}
