// Package export encodes a splat collection as a glTF 2.0 document, either
// as a binary GLB container or as JSON with an embedded base64 buffer.
//
// All attributes are packed into a single buffer in the order POSITION,
// COLOR_0, _ROTATION, _SCALE and, with Config.FullSH, one interleaved view
// of all 48 spherical-harmonics coefficients exposed as
// _SH_COEFFICIENTS_0 .. _SH_COEFFICIENTS_11. Every view starts on a 4-byte
// boundary. The single mesh holds one POINTS primitive so viewers without
// splat support still render a point cloud.
package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/splatgo/internal/conv"
	"github.com/hupe1980/splatgo/internal/meshopt"
	"github.com/hupe1980/splatgo/quantization"
	"github.com/hupe1980/splatgo/splat"
	"github.com/qmuntal/gltf"
	gltfbinary "github.com/qmuntal/gltf/binary"
)

// Extension names.
const (
	ExtGaussianSplatting  = "KHR_gaussian_splatting"
	ExtMeshQuantization   = "KHR_mesh_quantization"
	ExtMeshoptCompression = "EXT_meshopt_compression"
)

// Attribute names.
const (
	AttrPosition = gltf.POSITION
	AttrColor    = gltf.COLOR_0
	AttrRotation = "_ROTATION"
	AttrScale    = "_SCALE"
	// AttrSHPrefix is followed by the group index 0..11.
	AttrSHPrefix = "_SH_COEFFICIENTS_"
)

// SHGroups is the number of VEC4 accessors exposing the full SH block.
const SHGroups = splat.SHCoefficients / 4

// C0 is the zeroth-order real spherical-harmonics basis constant 1/(2*sqrt(pi)).
const C0 = 0.28209479177387814

// ErrSerialization is returned when the document graph cannot be encoded.
var ErrSerialization = errors.New("export: serialization failed")

// Result is the outcome of Encode.
type Result struct {
	// Data is the serialized GLB or glTF JSON.
	Data []byte
	// Document is the document graph that was serialized.
	Document *gltf.Document
	// Buffer is the packed binary buffer without container padding.
	Buffer []byte
	// Compression is nil unless Config.Compress was set.
	Compression *CompressionStats

	positionBytes int
}

// PositionBytes returns the number of bytes emitted for the POSITION view.
func (r *Result) PositionBytes() int {
	return r.positionBytes
}

// Encode packs c according to cfg and serializes the resulting document.
// c is not modified.
func Encode(c *splat.Collection, cfg Config) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	n := c.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty collection", ErrSerialization)
	}

	p := newPacker(n, cfg.Compress)

	var pq quantization.PositionQuantizer
	if err := pq.Train(c.Positions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	minPos, maxPos := pq.Min(), pq.Max()
	attrs := gltf.Attribute{}

	// POSITION
	var posAcc *gltf.Accessor
	if cfg.QuantizePositions {
		view := p.appendView(AttrPosition, packShorts(pq.EncodeAll(c.Positions)), quantizedPositionStride)
		posAcc = p.accessor(view, 0, gltf.ComponentShort, gltf.AccessorVec3, true)
	} else {
		view, err := p.addView(AttrPosition, c.Positions, gltf.ComponentFloat, gltf.AccessorVec3)
		if err != nil {
			return nil, err
		}
		posAcc = p.accessor(view, 0, gltf.ComponentFloat, gltf.AccessorVec3, false)
	}
	posAcc.Min = minPos[:]
	posAcc.Max = maxPos[:]
	attrs[AttrPosition] = p.push(posAcc)
	positionBytes := p.lastEmitted

	// COLOR_0
	colors := baseColors(c)
	if cfg.QuantizeColors {
		var cq quantization.ColorQuantizer
		packed := make([][4]uint8, n)
		for i, rgba := range colors {
			packed[i] = cq.Encode(rgba)
		}
		view, err := p.addView(AttrColor, packed, gltf.ComponentUbyte, gltf.AccessorVec4)
		if err != nil {
			return nil, err
		}
		attrs[AttrColor] = p.push(p.accessor(view, 0, gltf.ComponentUbyte, gltf.AccessorVec4, true))
	} else {
		view, err := p.addView(AttrColor, colors, gltf.ComponentFloat, gltf.AccessorVec4)
		if err != nil {
			return nil, err
		}
		attrs[AttrColor] = p.push(p.accessor(view, 0, gltf.ComponentFloat, gltf.AccessorVec4, false))
	}

	// _ROTATION, _SCALE
	view, err := p.addView(AttrRotation, c.Rotations, gltf.ComponentFloat, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	attrs[AttrRotation] = p.push(p.accessor(view, 0, gltf.ComponentFloat, gltf.AccessorVec4, false))

	view, err = p.addView(AttrScale, c.Scales, gltf.ComponentFloat, gltf.AccessorVec3)
	if err != nil {
		return nil, err
	}
	attrs[AttrScale] = p.push(p.accessor(view, 0, gltf.ComponentFloat, gltf.AccessorVec3, false))

	// _SH_COEFFICIENTS_*
	if cfg.FullSH {
		view, err := p.addSHView(c.SH)
		if err != nil {
			return nil, err
		}
		for g := range SHGroups {
			acc := p.accessor(view, uint32(16*g), gltf.ComponentFloat, gltf.AccessorVec4, false)
			attrs[fmt.Sprintf("%s%d", AttrSHPrefix, g)] = p.push(acc)
		}
	}

	doc, err := p.document(cfg, attrs)
	if err != nil {
		return nil, err
	}

	data, err := serialize(doc, cfg.Format)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Data:          data,
		Document:      doc,
		Buffer:        p.buf,
		positionBytes: positionBytes,
	}
	if cfg.Compress {
		res.Compression = p.stats
	}
	return res, nil
}

// baseColors derives RGBA from the DC terms; alpha is the opacity.
func baseColors(c *splat.Collection) [][4]float32 {
	out := make([][4]float32, c.Len())
	for i := range out {
		sh := &c.SH[i]
		out[i] = [4]float32{
			clamp01(sh[0]*C0 + 0.5),
			clamp01(sh[1]*C0 + 0.5),
			clamp01(sh[2]*C0 + 0.5),
			c.Opacities[i],
		}
	}
	return out
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

// meshoptCompression is the EXT_meshopt_compression bufferView extension.
type meshoptCompression struct {
	Buffer     uint32 `json:"buffer"`
	ByteOffset uint32 `json:"byteOffset"`
	ByteLength uint32 `json:"byteLength"`
	ByteStride uint32 `json:"byteStride"`
	Count      uint32 `json:"count"`
	Mode       string `json:"mode"`
}

type packer struct {
	count    int
	compress bool

	buf         []byte
	views       []*gltf.BufferView
	accessors   []*gltf.Accessor
	stats       *CompressionStats
	lastEmitted int
}

func newPacker(count int, compress bool) *packer {
	// Worst case without SH: 12 + 16 + 16 + 12 bytes per splat plus padding.
	return &packer{
		count:    count,
		compress: compress,
		buf:      make([]byte, 0, count*56+16),
		stats:    &CompressionStats{},
	}
}

// quantizedPositionStride is three tightly packed int16 components.
const quantizedPositionStride = 6

// packShorts writes each position as three little-endian int16 values with
// no per-element padding.
func packShorts(q [][3]int16) []byte {
	raw := make([]byte, quantizedPositionStride*len(q))
	for i, v := range q {
		o := i * quantizedPositionStride
		binary.LittleEndian.PutUint16(raw[o:], uint16(v[0]))
		binary.LittleEndian.PutUint16(raw[o+2:], uint16(v[1]))
		binary.LittleEndian.PutUint16(raw[o+4:], uint16(v[2]))
	}
	return raw
}

// addView packs data (a slice of fixed-size elements) and appends it as a
// new buffer view. Only element types without glTF padding are packed here.
func (p *packer) addView(name string, data any, ct gltf.ComponentType, at gltf.AccessorType) (uint32, error) {
	stride := int(gltf.SizeOfElement(ct, at))
	raw := make([]byte, stride*p.count)
	if err := gltfbinary.Write(raw, 0, data); err != nil {
		return 0, fmt.Errorf("%w: packing %s: %w", ErrSerialization, name, err)
	}
	return p.appendView(name, raw, stride), nil
}

// addSHView packs all coefficients of each splat as one 192-byte element.
// The view is stored uncompressed and is not part of the compression
// statistics.
func (p *packer) addSHView(sh [][splat.SHCoefficients]float32) (uint32, error) {
	const stride = 4 * splat.SHCoefficients
	flat := make([]float32, 0, len(sh)*splat.SHCoefficients)
	for i := range sh {
		flat = append(flat, sh[i][:]...)
	}
	raw := make([]byte, stride*p.count)
	if err := gltfbinary.Write(raw, 0, flat); err != nil {
		return 0, fmt.Errorf("%w: packing spherical harmonics: %w", ErrSerialization, err)
	}

	bv := p.place(raw)
	bv.ByteStride = stride
	p.views = append(p.views, bv)
	return uint32(len(p.views) - 1), nil
}

// place aligns the buffer to 4 bytes, appends data and returns a view
// over it.
func (p *packer) place(data []byte) *gltf.BufferView {
	for len(p.buf)%4 != 0 {
		p.buf = append(p.buf, 0)
	}
	offset := len(p.buf)
	p.buf = append(p.buf, data...)
	p.lastEmitted = len(data)

	return &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(offset),
		ByteLength: uint32(len(data)),
		Target:     gltf.TargetArrayBuffer,
	}
}

// appendView records raw as a tightly packed attribute view, substituting
// the meshopt encoding when compression is on and it is smaller.
func (p *packer) appendView(name string, raw []byte, stride int) uint32 {
	if !p.compress {
		p.views = append(p.views, p.place(raw))
		return uint32(len(p.views) - 1)
	}

	st := AttributeStats{Name: name, OriginalBytes: len(raw)}
	enc, ok := meshopt.EncodeVertexBuffer(raw, stride, p.count)
	if !ok {
		bv := p.place(raw)
		p.stats.add(st, len(raw))
		p.views = append(p.views, bv)
		return uint32(len(p.views) - 1)
	}

	padded := meshopt.PaddedStride(stride)
	st.CompressedBytes = len(enc)
	bv := p.place(enc)
	bv.ByteStride = uint32(padded)
	bv.ByteLength = uint32(padded * p.count)
	bv.Extensions = gltf.Extensions{
		ExtMeshoptCompression: &meshoptCompression{
			Buffer:     0,
			ByteOffset: bv.ByteOffset,
			ByteLength: uint32(len(enc)),
			ByteStride: uint32(padded),
			Count:      uint32(p.count),
			Mode:       "ATTRIBUTES",
		},
	}
	p.stats.add(st, len(enc))
	p.views = append(p.views, bv)
	return uint32(len(p.views) - 1)
}

func (p *packer) accessor(view, offset uint32, ct gltf.ComponentType, at gltf.AccessorType, normalized bool) *gltf.Accessor {
	return &gltf.Accessor{
		BufferView:    gltf.Index(view),
		ByteOffset:    offset,
		ComponentType: ct,
		Type:          at,
		Count:         uint32(p.count),
		Normalized:    normalized,
	}
}

func (p *packer) push(acc *gltf.Accessor) uint32 {
	p.accessors = append(p.accessors, acc)
	return uint32(len(p.accessors) - 1)
}

// document assembles the graph. Every offset and length in it is bounded by
// the buffer length, so checking that one value covers the uint32 fields.
func (p *packer) document(cfg Config, attrs gltf.Attribute) (*gltf.Document, error) {
	length, err := conv.IntToUint32(len(p.buf))
	if err != nil {
		return nil, fmt.Errorf("%w: buffer too large for glTF: %w", ErrSerialization, err)
	}

	doc := &gltf.Document{
		Asset:       gltf.Asset{Version: "2.0", Generator: cfg.Generator},
		Accessors:   p.accessors,
		BufferViews: p.views,
		Buffers:     []*gltf.Buffer{{ByteLength: length, Data: p.buf}},
		Meshes: []*gltf.Mesh{{
			Name: "splats",
			Primitives: []*gltf.Primitive{{
				Attributes: attrs,
				Mode:       gltf.PrimitivePoints,
				Extensions: gltf.Extensions{ExtGaussianSplatting: map[string]any{}},
			}},
		}},
		Nodes:          []*gltf.Node{{Name: "splats", Mesh: gltf.Index(0)}},
		Scenes:         []*gltf.Scene{{Nodes: []uint32{0}}},
		Scene:          gltf.Index(0),
		ExtensionsUsed: []string{ExtGaussianSplatting},
	}

	// Extensions are declared as used only; quantized positions are
	// denormalized by consumers from the POSITION accessor bounds.
	if cfg.QuantizePositions {
		doc.ExtensionsUsed = append(doc.ExtensionsUsed, ExtMeshQuantization)
	}
	if p.stats.Compressed > 0 {
		doc.ExtensionsUsed = append(doc.ExtensionsUsed, ExtMeshoptCompression)
	}
	return doc, nil
}

func serialize(doc *gltf.Document, format Format) ([]byte, error) {
	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)

	switch format {
	case FormatGLB:
		enc.AsBinary = true
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		return out.Bytes(), nil
	case FormatGLTF:
		buf := doc.Buffers[0]
		buf.EmbeddedResource()
		enc.AsBinary = false
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, out.Bytes(), "", "  "); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		return pretty.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %v", ErrSerialization, format)
	}
}
