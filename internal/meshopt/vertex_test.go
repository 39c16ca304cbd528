package meshopt

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampVertices(count, stride int) []byte {
	data := make([]byte, count*stride)
	for i := range count {
		for k := range stride {
			data[i*stride+k] = byte(i + k)
		}
	}
	return data
}

func TestZigzag(t *testing.T) {
	for v := range 256 {
		b := byte(v)
		assert.Equal(t, b, unzigzag8(zigzag8(b)))
	}
	assert.Equal(t, byte(0), zigzag8(0))
	assert.Equal(t, byte(1), zigzag8(0xff))
	assert.Equal(t, byte(2), zigzag8(1))
}

func TestPaddedStride(t *testing.T) {
	assert.Equal(t, 4, PaddedStride(1))
	assert.Equal(t, 4, PaddedStride(4))
	assert.Equal(t, 8, PaddedStride(6))
	assert.Equal(t, 12, PaddedStride(12))
	assert.Equal(t, 16, PaddedStride(13))
}

func TestEncodeVertexBuffer_Refusals(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		stride int
		count  int
	}{
		{"zero stride", make([]byte, 16), 0, 4},
		{"zero count", make([]byte, 16), 4, 0},
		{"length mismatch", make([]byte, 15), 4, 4},
		{"stride too wide", make([]byte, 20*8), 20, 8},
		{"sh stride", make([]byte, 192*4), 192, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := EncodeVertexBuffer(tt.data, tt.stride, tt.count)
			assert.False(t, ok)
			assert.Nil(t, out)
		})
	}
}

func TestEncodeVertexBuffer_RoundTrip(t *testing.T) {
	for _, stride := range []int{4, 8, 12, 16} {
		data := rampVertices(1000, stride)

		encoded, ok := EncodeVertexBuffer(data, stride, 1000)
		require.True(t, ok, "stride %d", stride)
		require.Less(t, len(encoded), len(data))
		assert.Equal(t, byte(0xa0), encoded[0])

		decoded, err := DecodeVertexBuffer(encoded, stride, 1000)
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}
}

func TestEncodeVertexBuffer_PaddedStride(t *testing.T) {
	const count, stride = 500, 6
	data := rampVertices(count, stride)

	encoded, ok := EncodeVertexBuffer(data, stride, count)
	require.True(t, ok)

	decoded, err := DecodeVertexBuffer(encoded, PaddedStride(stride), count)
	require.NoError(t, err)
	require.Len(t, decoded, count*8)

	for i := range count {
		assert.Equal(t, data[i*stride:(i+1)*stride], decoded[i*8:i*8+stride])
		assert.Equal(t, []byte{0, 0}, decoded[i*8+stride:(i+1)*8])
	}
}

func TestEncodeVertexBuffer_FloatAttributes(t *testing.T) {
	const count = 2048
	data := make([]byte, count*12)
	for i := range count {
		for k := range 3 {
			v := float32(i)*0.01 + float32(k)
			binary.LittleEndian.PutUint32(data[i*12+k*4:], math.Float32bits(v))
		}
	}

	encoded, ok := EncodeVertexBuffer(data, 12, count)
	require.True(t, ok)

	decoded, err := DecodeVertexBuffer(encoded, 12, count)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEncodeVertexBuffer_Incompressible(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 64*4)
	rng.Read(data)

	_, ok := EncodeVertexBuffer(data, 4, 64)
	assert.False(t, ok)
}

func TestDecodeVertexBuffer_Errors(t *testing.T) {
	data := rampVertices(100, 4)
	encoded, ok := EncodeVertexBuffer(data, 4, 100)
	require.True(t, ok)

	bad := append([]byte(nil), encoded...)
	bad[0] = 0x10
	_, err := DecodeVertexBuffer(bad, 4, 100)
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = DecodeVertexBuffer(encoded[:len(encoded)-1], 4, 100)
	assert.Error(t, err)

	_, err = DecodeVertexBuffer(encoded, 6, 100)
	assert.Error(t, err)
}

func TestEncodeBound(t *testing.T) {
	data := rampVertices(3000, 16)
	encoded, ok := EncodeVertexBuffer(data, 16, 3000)
	require.True(t, ok)
	assert.LessOrEqual(t, len(encoded), EncodeBound(3000, 16))
}

func BenchmarkEncodeVertexBuffer(b *testing.B) {
	data := rampVertices(100_000, 16)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for b.Loop() {
		_, _ = EncodeVertexBuffer(data, 16, 100_000)
	}
}
