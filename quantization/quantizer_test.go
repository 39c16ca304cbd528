package quantization

import (
	"errors"
	"math"
	"testing"
)

func TestPositionQuantizer_Train(t *testing.T) {
	positions := [][3]float32{
		{-1.0, 0.0, 1.0},
		{-0.5, 0.5, 2.0},
		{-2.0, 1.0, 3.0},
	}

	var pq PositionQuantizer
	if err := pq.Train(positions); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if pq.Min() != [3]float32{-2.0, 0.0, 1.0} {
		t.Errorf("Unexpected min %v", pq.Min())
	}
	if pq.Max() != [3]float32{-0.5, 1.0, 3.0} {
		t.Errorf("Unexpected max %v", pq.Max())
	}
}

func TestPositionQuantizer_EmptyPositions(t *testing.T) {
	var pq PositionQuantizer
	if err := pq.Train(nil); !errors.Is(err, ErrNoPositions) {
		t.Errorf("Expected ErrNoPositions, got %v", err)
	}
}

func TestPositionQuantizer_Extremes(t *testing.T) {
	pq := NewPositionQuantizerWithBounds([3]float32{0, -10, 5}, [3]float32{2, 10, 6})

	if got := pq.Encode([3]float32{0, -10, 5}); got != [3]int16{-32767, -32767, -32767} {
		t.Errorf("Expected min corner to map to -32767, got %v", got)
	}
	if got := pq.Encode([3]float32{2, 10, 6}); got != [3]int16{32767, 32767, 32767} {
		t.Errorf("Expected max corner to map to 32767, got %v", got)
	}
	if got := pq.Encode([3]float32{1, 0, 5.5}); got != [3]int16{0, 0, 0} {
		t.Errorf("Expected center to map to 0, got %v", got)
	}
}

func TestPositionQuantizer_EncodeDecode(t *testing.T) {
	pq := NewPositionQuantizerWithBounds([3]float32{-3, -3, -3}, [3]float32{3, 3, 3})

	original := [][3]float32{{-3, 0, 3}, {1.25, -2.5, 0.001}, {2.999, 2.999, -2.999}}
	// Truncation loses less than one step of span/(2*32767).
	step := float32(6.0 / (2 * 32767))

	for _, p := range original {
		decoded := pq.Decode(pq.Encode(p))
		for k := range 3 {
			diff := float32(math.Abs(float64(decoded[k] - p[k])))
			if diff > step*1.01 {
				t.Errorf("Reconstruction error too large on axis %d: %f (expected <= %f)", k, diff, step)
			}
		}
	}
}

func TestPositionQuantizer_DegenerateAxis(t *testing.T) {
	var pq PositionQuantizer
	if err := pq.Train([][3]float32{{1, 5, 0}, {2, 5, 1}}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	q := pq.Encode([3]float32{1.5, 5, 0.5})
	if q[1] != 0 {
		t.Errorf("Expected degenerate axis to encode to 0, got %d", q[1])
	}
	if got := pq.Decode(q)[1]; got != 5 {
		t.Errorf("Expected degenerate axis to decode to 5, got %f", got)
	}
}

func TestPositionQuantizer_Clamping(t *testing.T) {
	pq := NewPositionQuantizerWithBounds([3]float32{0, 0, 0}, [3]float32{1, 1, 1})

	q := pq.Encode([3]float32{-1, 0.5, 2})
	if q[0] != -32767 || q[2] != 32767 {
		t.Errorf("Expected out of range values to clamp, got %v", q)
	}
}

func TestPositionQuantizer_TruncatesTowardZero(t *testing.T) {
	pq := NewPositionQuantizerWithBounds([3]float32{0, 0, 0}, [3]float32{1, 1, 1})

	// 0.25 -> -0.5 -> -16383.5, 0.75 -> 0.5 -> 16383.5
	got := pq.Encode([3]float32{0.25, 0.75, 0.5})
	want := [3]int16{-16383, 16383, 0}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPositionQuantizer_TinySpanIsDegenerate(t *testing.T) {
	pq := NewPositionQuantizerWithBounds([3]float32{0, 0, 0}, [3]float32{1e-8, 1, 1})

	if q := pq.Encode([3]float32{1e-8, 1, 1}); q[0] != 0 {
		t.Errorf("Expected sub-epsilon span to encode to 0, got %d", q[0])
	}
}

func TestColorQuantizer(t *testing.T) {
	var cq ColorQuantizer

	got := cq.Encode([4]float32{0.5, 0, 1, 2})
	want := [4]uint8{128, 0, 255, 255}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if cq.Encode([4]float32{-0.5, 0, 0, 0})[0] != 0 {
		t.Error("Expected negative channel to clamp to 0")
	}

	decoded := cq.Decode([4]uint8{255, 0, 51, 102})
	if decoded[0] != 1 || decoded[1] != 0 || math.Abs(float64(decoded[2]-0.2)) > 1e-6 {
		t.Errorf("Unexpected decode %v", decoded)
	}
}

func BenchmarkPositionQuantizer_Encode(b *testing.B) {
	pq := NewPositionQuantizerWithBounds([3]float32{-1, -1, -1}, [3]float32{1, 1, 1})

	positions := make([][3]float32, 1024)
	for i := range positions {
		v := float32(i%256)/128.0 - 1.0
		positions[i] = [3]float32{v, -v, v / 2}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pq.EncodeAll(positions)
	}
}
