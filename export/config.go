package export

import (
	"fmt"
	"strings"
)

// Format selects the output container.
type Format int

const (
	// FormatGLB is the binary container: JSON chunk plus BIN chunk.
	FormatGLB Format = iota
	// FormatGLTF is pretty-printed JSON with the buffer embedded as a
	// base64 data URI.
	FormatGLTF
)

// String returns "glb" or "gltf".
func (f Format) String() string {
	switch f {
	case FormatGLB:
		return "glb"
	case FormatGLTF:
		return "gltf"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the conventional file extension including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// ParseFormat parses "glb" or "gltf" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "glb":
		return FormatGLB, nil
	case "gltf", "json":
		return FormatGLTF, nil
	default:
		return 0, fmt.Errorf("export: unknown format %q", s)
	}
}

// Config controls how a collection is encoded. The boolean toggles are
// independent; every combination is valid.
type Config struct {
	Format Format

	// QuantizeColors stores COLOR_0 as normalized UNSIGNED_BYTE instead of FLOAT.
	QuantizeColors bool
	// FullSH adds all 48 spherical-harmonics coefficients as twelve VEC4 accessors.
	FullSH bool
	// QuantizePositions stores POSITION as normalized SHORT instead of FLOAT.
	QuantizePositions bool
	// Compress applies meshopt vertex compression to each attribute view
	// when it makes the view smaller.
	Compress bool

	// Generator is written to asset.generator.
	Generator string
}

// DefaultConfig returns a GLB configuration with 8-bit colours and every
// other toggle disabled.
func DefaultConfig() Config {
	return Config{
		Format:         FormatGLB,
		QuantizeColors: true,
		Generator:      "splatgo",
	}
}
