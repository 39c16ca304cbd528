// Package prometheus exports converter metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, _ := splatprom.NewCollector(reg, "splatgo")
//	conv, _ := splatgo.New(splatgo.WithMetricsCollector(mc))
//	http.Handle("/metrics", splatprom.Handler(reg))
package prometheus

import (
	"errors"
	"net/http"
	"time"

	"github.com/hupe1980/splatgo"
	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/export"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ splatgo.MetricsCollector = (*Collector)(nil)

// Collector implements splatgo.MetricsCollector with Prometheus metrics.
type Collector struct {
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inputBytes  prometheus.Counter
	outputBytes *prometheus.CounterVec

	splatsRemoved *prometheus.CounterVec
	splatsKept    prometheus.Counter

	views      *prometheus.CounterVec
	bytesSaved prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversions by output format and result.",
		}, []string{"format", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Conversion latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"format"}),
		inputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_total",
			Help:      "Bytes received for conversion.",
		}),
		outputBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes produced by successful conversions.",
		}, []string{"format"}),
		splatsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splats_removed_total",
			Help:      "Splats removed by the cleaning stage, by reason.",
		}, []string{"reason"}),
		splatsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splats_kept_total",
			Help:      "Splats surviving the cleaning stage.",
		}),
		views: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_views_total",
			Help:      "Attribute views considered for vertex compression.",
		}, []string{"result"}),
		bytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_saved_bytes_total",
			Help:      "Bytes removed by vertex compression.",
		}),
	}

	var errs []error
	for _, m := range []prometheus.Collector{
		c.conversions, c.duration, c.inputBytes, c.outputBytes,
		c.splatsRemoved, c.splatsKept, c.views, c.bytesSaved,
	} {
		errs = append(errs, reg.Register(m))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// RecordConvert implements splatgo.MetricsCollector.
func (c *Collector) RecordConvert(format splatgo.OutputFormat, inputBytes, outputBytes int, duration time.Duration, err error) {
	f := string(format)
	c.inputBytes.Add(float64(inputBytes))
	c.duration.WithLabelValues(f).Observe(duration.Seconds())
	if err != nil {
		c.conversions.WithLabelValues(f, errorLabel(err)).Inc()
		return
	}
	c.conversions.WithLabelValues(f, "ok").Inc()
	c.outputBytes.WithLabelValues(f).Add(float64(outputBytes))
}

// RecordClean implements splatgo.MetricsCollector.
func (c *Collector) RecordClean(stats clean.Stats) {
	c.splatsRemoved.WithLabelValues("low_opacity").Add(float64(stats.LowOpacity))
	c.splatsRemoved.WithLabelValues("small_scale").Add(float64(stats.SmallScale))
	c.splatsRemoved.WithLabelValues("outlier").Add(float64(stats.Outlier))
	c.splatsKept.Add(float64(stats.FinalCount))
}

// RecordCompression implements splatgo.MetricsCollector.
func (c *Collector) RecordCompression(stats *export.CompressionStats) {
	if stats == nil {
		return
	}
	c.views.WithLabelValues("compressed").Add(float64(stats.Compressed))
	c.views.WithLabelValues("skipped").Add(float64(stats.Skipped))
	c.bytesSaved.Add(float64(max(stats.SavedBytes(), 0)))
}

// errorLabel keeps label cardinality bounded: only the failing stage is
// recorded.
func errorLabel(err error) string {
	var se *splatgo.StageError
	if errors.As(err, &se) {
		return "error_" + string(se.Stage)
	}
	return "error"
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
