// Package conv provides checked integer conversions for values whose range
// is not guaranteed by construction: glTF offsets and lengths are uint32,
// byte-size flags arrive as uint64.
//
// Conversions that are bounded by the surrounding code (loop indices,
// per-element strides) use plain casts instead.
package conv
