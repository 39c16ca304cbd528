package quantization

import (
	"errors"
	"math"
)

const (
	// int16Max is the positive limit of the normalized SHORT range.
	int16Max = 32767

	// degenerateSpan is the axis extent below which an axis is treated as
	// flat: the float32 machine epsilon.
	degenerateSpan = 0x1p-23
)

// ErrNoPositions is returned by Train for an empty input.
var ErrNoPositions = errors.New("quantization: no positions to train on")

// PositionQuantizer implements per-axis 16-bit position quantization.
// Each axis is linearly mapped from [min, max] to [-1, 1] and then to
// [-32767, 32767], truncating toward zero.
type PositionQuantizer struct {
	min [3]float32
	max [3]float32
}

// NewPositionQuantizerWithBounds creates a quantizer for known bounds.
func NewPositionQuantizerWithBounds(minPos, maxPos [3]float32) *PositionQuantizer {
	return &PositionQuantizer{min: minPos, max: maxPos}
}

// Train calibrates the quantizer by finding per-axis min/max values.
func (pq *PositionQuantizer) Train(positions [][3]float32) error {
	if len(positions) == 0 {
		return ErrNoPositions
	}

	for k := range 3 {
		pq.min[k] = math.MaxFloat32
		pq.max[k] = -math.MaxFloat32
	}

	for _, p := range positions {
		for k, val := range p {
			pq.min[k] = min(pq.min[k], val)
			pq.max[k] = max(pq.max[k], val)
		}
	}

	return nil
}

// Encode quantizes a single position.
func (pq *PositionQuantizer) Encode(p [3]float32) [3]int16 {
	var out [3]int16
	for k, val := range p {
		span := pq.max[k] - pq.min[k]
		if float32(math.Abs(float64(span))) < degenerateSpan {
			continue
		}

		normalized := (val-pq.min[k])/span*2 - 1
		if normalized != normalized { // NaN
			continue
		}
		out[k] = int16(min(max(normalized*int16Max, -int16Max), int16Max))
	}
	return out
}

// Decode reconstructs a position from its quantized representation.
func (pq *PositionQuantizer) Decode(q [3]int16) [3]float32 {
	var out [3]float32
	for k, val := range q {
		span := pq.max[k] - pq.min[k]
		if float32(math.Abs(float64(span))) < degenerateSpan {
			out[k] = pq.min[k]
			continue
		}
		normalized := float32(val) / int16Max
		out[k] = (normalized+1)/2*span + pq.min[k]
	}
	return out
}

// EncodeAll quantizes every position into a pre-sized slice.
func (pq *PositionQuantizer) EncodeAll(positions [][3]float32) [][3]int16 {
	out := make([][3]int16, len(positions))
	for i, p := range positions {
		out[i] = pq.Encode(p)
	}
	return out
}

// Min returns the per-axis minimum used for quantization.
func (pq *PositionQuantizer) Min() [3]float32 {
	return pq.min
}

// Max returns the per-axis maximum used for quantization.
func (pq *PositionQuantizer) Max() [3]float32 {
	return pq.max
}

// ColorQuantizer maps normalized colour channels to 8-bit values.
type ColorQuantizer struct{}

// Encode rounds each channel of c (clamped to [0, 1]) to the nearest 8-bit value.
func (ColorQuantizer) Encode(c [4]float32) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = uint8(math.Round(float64(v) * 255))
	}
	return out
}

// Decode reconstructs normalized channels.
func (ColorQuantizer) Decode(c [4]uint8) [4]float32 {
	var out [4]float32
	for i, v := range c {
		out[i] = float32(v) / 255
	}
	return out
}
