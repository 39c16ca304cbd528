// Package quantization provides the lossy attribute encoders used by the glTF
// exporter.
//
// Two quantizers are available:
//
//   - PositionQuantizer: per-axis affine mapping of float32 positions into the
//     signed 16-bit normalized range (KHR_mesh_quantization friendly).
//   - ColorQuantizer: [0, 1] colour channels into unsigned 8-bit normalized
//     values.
//
// # Position Quantization
//
//	var pq quantization.PositionQuantizer
//	_ = pq.Train(positions)          // per-axis min/max
//	code := pq.Encode(p)             // [3]int16, 6 bytes instead of 12
//	p2 := pq.Decode(code)            // reconstruct (error < one step)
//
// Encoding truncates toward zero. An axis whose extent is below the float32
// epsilon encodes to 0 and decodes to min.
//
// # Colour Quantization
//
//	var cq quantization.ColorQuantizer
//	rgba := cq.Encode([4]float32{0.5, 0.5, 0.5, 1}) // [128 128 128 255]
package quantization
