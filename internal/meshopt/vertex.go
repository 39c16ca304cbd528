// Package meshopt implements the meshoptimizer vertex buffer codec (format
// version 0), the payload format of the EXT_meshopt_compression glTF
// extension in ATTRIBUTES mode.
//
// The encoder delta-encodes each byte lane of consecutive vertices, zigzags the
// deltas and packs groups of 16 deltas with 0, 2, 4 or 8 bits per value.
package meshopt

import (
	"errors"
)

const (
	vertexHeader = 0xa0

	byteGroupSize        = 16
	byteGroupDecodeLimit = 24
	vertexBlockSizeBytes = 8192
	vertexBlockMaxSize   = 256
	tailMaxSize          = 32

	// MaxLanes is the largest supported vertex, in four-byte lanes.
	MaxLanes = 4
)

var bitsV0 = [4]int{0, 2, 4, 8}

var (
	// ErrInvalidHeader is returned when the stream does not start with a v0 header.
	ErrInvalidHeader = errors.New("meshopt: invalid vertex stream header")

	// ErrCorrupt is returned when the stream is truncated or has trailing data.
	ErrCorrupt = errors.New("meshopt: corrupt vertex stream")
)

// PaddedStride rounds stride up to the next multiple of four bytes.
func PaddedStride(stride int) int {
	return (stride + 3) &^ 3
}

// EncodeVertexBuffer compresses count vertices of stride bytes each.
//
// It returns ok=false when the input cannot be encoded (zero stride or count,
// length mismatch, or a padded stride wider than MaxLanes four-byte lanes) or
// when the encoded form is not strictly smaller than data. Strides that are
// not a multiple of four are zero padded per vertex before encoding; the
// decoded stream therefore has PaddedStride(stride) bytes per vertex.
func EncodeVertexBuffer(data []byte, stride, count int) ([]byte, bool) {
	if stride <= 0 || count <= 0 {
		return nil, false
	}
	if len(data) != stride*count {
		return nil, false
	}

	padded := PaddedStride(stride)
	if padded > MaxLanes*4 {
		return nil, false
	}

	src := data
	if padded != stride {
		src = make([]byte, padded*count)
		for i := range count {
			copy(src[i*padded:], data[i*stride:(i+1)*stride])
		}
	}

	out := encode(src, count, padded)
	if len(out) >= len(data) {
		return nil, false
	}
	return out, true
}

// EncodeBound returns an upper bound of the encoded size.
func EncodeBound(count, vertexSize int) int {
	blockSize := vertexBlockSize(vertexSize)
	blockCount := (count + blockSize - 1) / blockSize

	blockHeaderSize := (blockSize/byteGroupSize + 3) / 4
	blockDataSize := blockSize

	tailSize := max(vertexSize, tailMaxSize)

	return 1 + blockCount*vertexSize*(blockHeaderSize+blockDataSize) + tailSize
}

func vertexBlockSize(vertexSize int) int {
	result := vertexBlockSizeBytes / vertexSize
	result &^= byteGroupSize - 1
	if result < vertexBlockMaxSize {
		return result
	}
	return vertexBlockMaxSize
}

func encode(src []byte, count, vertexSize int) []byte {
	out := make([]byte, 0, EncodeBound(count, vertexSize))
	out = append(out, vertexHeader)

	lastVertex := make([]byte, vertexSize)
	copy(lastVertex, src[:vertexSize])

	blockSize := vertexBlockSize(vertexSize)
	var buffer [vertexBlockMaxSize]byte

	for offset := 0; offset < count; offset += blockSize {
		n := min(blockSize, count-offset)
		out = encodeVertexBlock(out, buffer[:], src[offset*vertexSize:], n, vertexSize, lastVertex)
	}

	if vertexSize < tailMaxSize {
		out = append(out, make([]byte, tailMaxSize-vertexSize)...)
	}
	return append(out, src[:vertexSize]...)
}

func encodeVertexBlock(out, buffer, block []byte, count, vertexSize int, lastVertex []byte) []byte {
	aligned := (count + byteGroupSize - 1) &^ (byteGroupSize - 1)

	for k := range vertexSize {
		p := lastVertex[k]
		offset := k
		for i := range count {
			v := block[offset]
			buffer[i] = zigzag8(v - p)
			p = v
			offset += vertexSize
		}
		for i := count; i < aligned; i++ {
			buffer[i] = 0
		}
		out = encodeBytes(out, buffer[:aligned])
	}

	copy(lastVertex, block[(count-1)*vertexSize:count*vertexSize])
	return out
}

func encodeBytes(out, buffer []byte) []byte {
	headerSize := (len(buffer)/byteGroupSize + 3) / 4
	headerPos := len(out)
	out = append(out, make([]byte, headerSize)...)

	for i := 0; i < len(buffer); i += byteGroupSize {
		group := buffer[i : i+byteGroupSize]

		bestLog2 := 3
		bestSize := measureGroup(group, 8)
		for log2 := range 3 {
			if size := measureGroup(group, bitsV0[log2]); size < bestSize {
				bestLog2 = log2
				bestSize = size
			}
		}

		groupIndex := i / byteGroupSize
		out[headerPos+groupIndex/4] |= byte(bestLog2 << ((groupIndex % 4) * 2))
		out = encodeGroup(out, group, bitsV0[bestLog2])
	}
	return out
}

func measureGroup(group []byte, bits int) int {
	switch bits {
	case 0:
		for _, b := range group {
			if b != 0 {
				return int(^uint(0) >> 1)
			}
		}
		return 0
	case 8:
		return byteGroupSize
	}

	result := byteGroupSize * bits / 8
	sentinel := byte(1<<bits - 1)
	for _, b := range group {
		if b >= sentinel {
			result++
		}
	}
	return result
}

func encodeGroup(out, group []byte, bits int) []byte {
	switch bits {
	case 0:
		return out
	case 8:
		return append(out, group...)
	}

	perByte := 8 / bits
	sentinel := byte(1<<bits - 1)

	for i := 0; i < byteGroupSize; i += perByte {
		var packed byte
		for k := range perByte {
			enc := group[i+k]
			if enc >= sentinel {
				enc = sentinel
			}
			packed = packed<<bits | enc
		}
		out = append(out, packed)
	}

	for _, b := range group {
		if b >= sentinel {
			out = append(out, b)
		}
	}
	return out
}

// DecodeVertexBuffer reverses EncodeVertexBuffer for a stream encoded with the
// given vertex size (a multiple of four) and count.
func DecodeVertexBuffer(stream []byte, vertexSize, count int) ([]byte, error) {
	if vertexSize <= 0 || vertexSize%4 != 0 || vertexSize > 256 {
		return nil, errors.New("meshopt: vertex size must be a positive multiple of 4 up to 256")
	}
	if len(stream) < 1+vertexSize {
		return nil, ErrCorrupt
	}
	if stream[0]&0xf0 != vertexHeader {
		return nil, ErrInvalidHeader
	}
	if version := stream[0] & 0x0f; version > 0 {
		return nil, ErrInvalidHeader
	}

	dst := make([]byte, vertexSize*count)
	lastVertex := make([]byte, vertexSize)
	copy(lastVertex, stream[len(stream)-vertexSize:])

	blockSize := vertexBlockSize(vertexSize)
	var buffer [vertexBlockMaxSize]byte

	pos := 1
	for offset := 0; offset < count; offset += blockSize {
		n := min(blockSize, count-offset)
		var err error
		pos, err = decodeVertexBlock(stream, pos, buffer[:], dst[offset*vertexSize:], n, vertexSize, lastVertex)
		if err != nil {
			return nil, err
		}
	}

	tailSize := max(vertexSize, tailMaxSize)
	if len(stream)-pos != tailSize {
		return nil, ErrCorrupt
	}
	return dst, nil
}

func decodeVertexBlock(stream []byte, pos int, buffer, block []byte, count, vertexSize int, lastVertex []byte) (int, error) {
	aligned := (count + byteGroupSize - 1) &^ (byteGroupSize - 1)

	for k := range vertexSize {
		var err error
		pos, err = decodeBytes(stream, pos, buffer[:aligned])
		if err != nil {
			return 0, err
		}

		p := lastVertex[k]
		offset := k
		for i := range count {
			v := unzigzag8(buffer[i]) + p
			block[offset] = v
			p = v
			offset += vertexSize
		}
	}

	copy(lastVertex, block[(count-1)*vertexSize:count*vertexSize])
	return pos, nil
}

func decodeBytes(stream []byte, pos int, buffer []byte) (int, error) {
	headerSize := (len(buffer)/byteGroupSize + 3) / 4
	if len(stream)-pos < headerSize {
		return 0, ErrCorrupt
	}
	header := stream[pos : pos+headerSize]
	pos += headerSize

	for i := 0; i < len(buffer); i += byteGroupSize {
		if len(stream)-pos < byteGroupDecodeLimit {
			return 0, ErrCorrupt
		}
		groupIndex := i / byteGroupSize
		log2 := int(header[groupIndex/4]>>((groupIndex%4)*2)) & 3

		var err error
		pos, err = decodeGroup(stream, pos, buffer[i:i+byteGroupSize], bitsV0[log2])
		if err != nil {
			return 0, err
		}
	}
	return pos, nil
}

func decodeGroup(stream []byte, pos int, group []byte, bits int) (int, error) {
	switch bits {
	case 0:
		clear(group)
		return pos, nil
	case 8:
		copy(group, stream[pos:pos+byteGroupSize])
		return pos + byteGroupSize, nil
	}

	perByte := 8 / bits
	sentinel := byte(1<<bits - 1)
	packedSize := byteGroupSize / perByte

	packed := stream[pos : pos+packedSize]
	pos += packedSize

	for i := range byteGroupSize {
		shift := (perByte - 1 - i%perByte) * bits
		v := (packed[i/perByte] >> shift) & sentinel
		if v == sentinel {
			if pos >= len(stream) {
				return 0, ErrCorrupt
			}
			v = stream[pos]
			pos++
		}
		group[i] = v
	}
	return pos, nil
}

func zigzag8(v byte) byte {
	return byte(int8(v)>>7) ^ (v << 1)
}

func unzigzag8(v byte) byte {
	return -(v & 1) ^ (v >> 1)
}
