package export

// AttributeStats describes one attribute view considered for compression.
type AttributeStats struct {
	Name            string `json:"name"`
	OriginalBytes   int    `json:"original_bytes"`
	CompressedBytes int    `json:"compressed_bytes"` // 0 when left uncompressed
}

// Compressed reports whether the compressed form was emitted.
func (a AttributeStats) Compressed() bool {
	return a.CompressedBytes > 0
}

// Ratio returns OriginalBytes/CompressedBytes, or 1 when not compressed.
func (a AttributeStats) Ratio() float64 {
	if a.CompressedBytes == 0 {
		return 1
	}
	return float64(a.OriginalBytes) / float64(a.CompressedBytes)
}

// CompressionStats aggregates AttributeStats over all views of one export.
type CompressionStats struct {
	Attributes []AttributeStats `json:"attributes"`

	Compressed int `json:"compressed"`
	Skipped    int `json:"skipped"`

	TotalOriginal int `json:"total_original"`
	// TotalCompressed is the number of bytes actually emitted for the
	// considered views, compressed or not.
	TotalCompressed int `json:"total_compressed"`
}

// Ratio returns TotalOriginal/TotalCompressed, or 1 when nothing was emitted.
func (s *CompressionStats) Ratio() float64 {
	if s == nil || s.TotalCompressed == 0 {
		return 1
	}
	return float64(s.TotalOriginal) / float64(s.TotalCompressed)
}

// SavedBytes returns how many bytes compression removed.
func (s *CompressionStats) SavedBytes() int {
	if s == nil {
		return 0
	}
	return s.TotalOriginal - s.TotalCompressed
}

func (s *CompressionStats) add(a AttributeStats, emitted int) {
	s.Attributes = append(s.Attributes, a)
	if a.Compressed() {
		s.Compressed++
	} else {
		s.Skipped++
	}
	s.TotalOriginal += a.OriginalBytes
	s.TotalCompressed += emitted
}
