package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plyPayload() []byte {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat ascii 1.0\nelement vertex 0\nend_header\n")
	buf.Write(bytes.Repeat([]byte("0 "), 4096))
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Type
		err  error
	}{
		{"ply", []byte("ply\n"), Raw, nil},
		{"zstd", []byte{0x28, 0xB5, 0x2F, 0xFD, 0}, Zstd, nil},
		{"lz4", []byte{0x04, 0x22, 0x4D, 0x18, 0}, LZ4, nil},
		{"gzip", []byte{0x1F, 0x8B, 8}, Gzip, nil},
		{"unknown", []byte("PK\x03\x04"), 0, ErrUnsupported},
		{"empty", nil, 0, ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.data)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	payload := plyPayload()

	for _, typ := range []Type{Raw, Zstd, LZ4, Gzip} {
		t.Run(typ.String(), func(t *testing.T) {
			packed, err := Compress(payload, typ)
			require.NoError(t, err)

			detected, err := Detect(packed)
			require.NoError(t, err)
			assert.Equal(t, typ, detected)

			out, got, err := Decompress(packed, 0)
			require.NoError(t, err)
			assert.Equal(t, typ, got)
			assert.Equal(t, payload, out)

			// Exactly at the limit is accepted.
			out, _, err = Decompress(packed, int64(len(payload)))
			require.NoError(t, err)
			assert.Equal(t, payload, out)
		})
	}
}

func TestDecompress_Limit(t *testing.T) {
	payload := plyPayload()

	for _, typ := range []Type{Raw, Zstd, LZ4, Gzip} {
		t.Run(typ.String(), func(t *testing.T) {
			packed, err := Compress(payload, typ)
			require.NoError(t, err)

			_, _, err = Decompress(packed, int64(len(payload)-1))
			require.ErrorIs(t, err, ErrLimitExceeded)

			var le *LimitError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, int64(len(payload)-1), le.Limit)
			assert.Equal(t, typ, le.Type)
		})
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	_, _, err := Decompress([]byte{0x28, 0xB5, 0x2F, 0xFD, 0xff, 0xff}, 0)
	assert.Error(t, err)

	_, _, err = Decompress([]byte{0x1F, 0x8B}, 0)
	assert.Error(t, err)
}

func TestDecompress_UnknownPassesThrough(t *testing.T) {
	data := []byte("element vertex 1\nend_header\n")
	out, typ, err := Decompress(data, 0)
	require.NoError(t, err)
	assert.Equal(t, Raw, typ)
	assert.Equal(t, data, out)
}

func TestByName(t *testing.T) {
	typ, ok := ByName("zst")
	assert.True(t, ok)
	assert.Equal(t, Zstd, typ)

	_, ok = ByName("brotli")
	assert.False(t, ok)

	_, err := Compress(nil, Type(42))
	assert.ErrorIs(t, err, ErrUnsupported)

	text, err := LZ4.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "lz4", string(text))
}

func BenchmarkDecompress_Zstd(b *testing.B) {
	payload := bytes.Repeat(plyPayload(), 64)
	packed, err := Compress(payload, Zstd)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for b.Loop() {
		if _, _, err := Decompress(packed, 0); err != nil {
			b.Fatal(err)
		}
	}
}
