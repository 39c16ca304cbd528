package splatgo

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/export"
)

// MetricsCollector defines an interface for collecting conversion metrics.
// Implement this interface to integrate with monitoring systems; see
// package metrics/prometheus for a Prometheus implementation.
type MetricsCollector interface {
	// RecordConvert is called after each conversion, successful or not.
	RecordConvert(format OutputFormat, inputBytes, outputBytes int, duration time.Duration, err error)

	// RecordClean is called after the cleaning stage ran.
	RecordClean(stats clean.Stats)

	// RecordCompression is called after an export with compression enabled.
	RecordCompression(stats *export.CompressionStats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordConvert(OutputFormat, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordClean(clean.Stats)                                   {}
func (NoopMetricsCollector) RecordCompression(*export.CompressionStats)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	ConvertCount      atomic.Int64
	ConvertErrors     atomic.Int64
	ConvertTotalNanos atomic.Int64
	InputBytes        atomic.Int64
	OutputBytes       atomic.Int64

	SplatsIn      atomic.Int64
	SplatsRemoved atomic.Int64

	ViewsCompressed atomic.Int64
	ViewsSkipped    atomic.Int64
	BytesSaved      atomic.Int64
}

// RecordConvert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConvert(_ OutputFormat, inputBytes, outputBytes int, duration time.Duration, err error) {
	b.ConvertCount.Add(1)
	b.ConvertTotalNanos.Add(duration.Nanoseconds())
	b.InputBytes.Add(int64(inputBytes))
	if err != nil {
		b.ConvertErrors.Add(1)
		return
	}
	b.OutputBytes.Add(int64(outputBytes))
}

// RecordClean implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClean(stats clean.Stats) {
	b.SplatsIn.Add(int64(stats.OriginalCount))
	b.SplatsRemoved.Add(int64(stats.Removed()))
}

// RecordCompression implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompression(stats *export.CompressionStats) {
	if stats == nil {
		return
	}
	b.ViewsCompressed.Add(int64(stats.Compressed))
	b.ViewsSkipped.Add(int64(stats.Skipped))
	b.BytesSaved.Add(int64(stats.SavedBytes()))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ConvertCount:    b.ConvertCount.Load(),
		ConvertErrors:   b.ConvertErrors.Load(),
		ConvertAvgNanos: b.getAvgConvertNanos(),
		InputBytes:      b.InputBytes.Load(),
		OutputBytes:     b.OutputBytes.Load(),
		SplatsIn:        b.SplatsIn.Load(),
		SplatsRemoved:   b.SplatsRemoved.Load(),
		ViewsCompressed: b.ViewsCompressed.Load(),
		ViewsSkipped:    b.ViewsSkipped.Load(),
		BytesSaved:      b.BytesSaved.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgConvertNanos() int64 {
	count := b.ConvertCount.Load()
	if count == 0 {
		return 0
	}
	return b.ConvertTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ConvertCount    int64
	ConvertErrors   int64
	ConvertAvgNanos int64
	InputBytes      int64
	OutputBytes     int64
	SplatsIn        int64
	SplatsRemoved   int64
	ViewsCompressed int64
	ViewsSkipped    int64
	BytesSaved      int64
}
