package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/splatgo/splat"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// Splats generates num splats with positions uniform in [-1, 1), opacity in
// [0, 1), scales in [0.001, 0.1), unit rotations and SH in [-1, 1).
func (r *RNG) Splats(num int) *splat.Collection {
	return r.splats(num, func() float32 { return r.rand.Float32()*2 - 1 })
}

// ClusteredSplats generates num splats whose positions are Gaussian around
// the origin with the given standard deviation.
func (r *RNG) ClusteredSplats(num int, spread float32) *splat.Collection {
	return r.splats(num, func() float32 { return float32(r.rand.NormFloat64()) * spread })
}

func (r *RNG) splats(num int, coord func() float32) *splat.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := splat.Make(num)
	for i := range num {
		c.Positions[i] = [3]float32{coord(), coord(), coord()}
		c.Opacities[i] = r.rand.Float32()
		for k := range 3 {
			c.Scales[i][k] = 0.001 + r.rand.Float32()*0.099
		}
		c.Rotations[i] = r.unitQuat()
		for k := range c.SH[i] {
			c.SH[i][k] = r.rand.Float32()*2 - 1
		}
	}
	return c
}

// unitQuat returns a uniformly distributed unit quaternion in (x, y, z, w) order.
// The caller must hold r.mu.
func (r *RNG) unitQuat() [4]float32 {
	var q [4]float64
	var norm float64
	for norm == 0 {
		norm = 0
		for k := range q {
			q[k] = r.rand.NormFloat64()
			norm += q[k] * q[k]
		}
	}
	inv := 1 / math.Sqrt(norm)
	return [4]float32{float32(q[0] * inv), float32(q[1] * inv), float32(q[2] * inv), float32(q[3] * inv)}
}

// Uniform builds a collection of n identical splats at the given position
// with full opacity, unit scale and identity rotation.
func Uniform(n int, pos [3]float32) *splat.Collection {
	c := splat.Make(n)
	for i := range n {
		c.Positions[i] = pos
		c.Opacities[i] = 1
		c.Scales[i] = [3]float32{1, 1, 1}
		c.Rotations[i] = [4]float32{0, 0, 0, 1}
	}
	return c
}
