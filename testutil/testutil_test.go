package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplats(t *testing.T) {
	rng := NewRNG(4711)

	c := rng.Splats(16)

	require.Equal(t, 16, c.Len())
	require.NoError(t, c.Validate())
	for i := range c.Len() {
		for k := range 3 {
			assert.GreaterOrEqual(t, c.Positions[i][k], float32(-1))
			assert.Less(t, c.Positions[i][k], float32(1))
			assert.Greater(t, c.Scales[i][k], float32(0))
		}

		var sum float32
		for _, v := range c.Rotations[i] {
			sum += v * v
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestSplats_Deterministic(t *testing.T) {
	a := NewRNG(7).ClusteredSplats(8, 0.1)
	b := NewRNG(7).ClusteredSplats(8, 0.1)
	assert.Equal(t, a, b)
}

func TestUniform(t *testing.T) {
	c := Uniform(3, [3]float32{1, 2, 3})
	require.Equal(t, 3, c.Len())
	assert.Equal(t, [3]float32{1, 2, 3}, c.Positions[2])
	assert.Equal(t, float32(1), c.Opacities[0])
}

func TestPLYBuilder(t *testing.T) {
	bin := NewPLYBuilder(true).Add(IdentityRecord([3]float32{1, 2, 3})).Bytes()
	header := NewPLYBuilder(true).Header()

	assert.True(t, bytes.HasPrefix(bin, []byte("ply\nformat binary_little_endian 1.0\n")))
	assert.Len(t, bin, len(header)+248)

	ascii := NewPLYBuilder(false).Add(IdentityRecord([3]float32{1, 2, 3})).DeclareCount(5).Bytes()
	assert.Contains(t, string(ascii), "element vertex 5\n")
	assert.True(t, bytes.HasSuffix(ascii, []byte("1 0 0 0\n")))
}
