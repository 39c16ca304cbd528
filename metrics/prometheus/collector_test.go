package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hupe1980/splatgo"
	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/export"
	"github.com/hupe1980/splatgo/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "splatgo")
	require.NoError(t, err)
	return c, reg
}

func TestCollector_RecordConvert(t *testing.T) {
	c, _ := newCollector(t)

	c.RecordConvert(splatgo.FormatGLB, 100, 40, 10*time.Millisecond, nil)
	c.RecordConvert(splatgo.FormatGLB, 50, 0, time.Millisecond, &splatgo.StageError{Stage: splatgo.StageDecode, Err: errors.New("bad")})
	c.RecordConvert(splatgo.FormatGLTF, 10, 0, time.Millisecond, context.Canceled)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.conversions.WithLabelValues("glb", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.conversions.WithLabelValues("glb", "error_decode")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.conversions.WithLabelValues("gltf", "error")))
	assert.Equal(t, 160.0, promtest.ToFloat64(c.inputBytes))
	assert.Equal(t, 40.0, promtest.ToFloat64(c.outputBytes.WithLabelValues("glb")))
	assert.Equal(t, 2, promtest.CollectAndCount(c.duration))
}

func TestCollector_RecordCleanAndCompression(t *testing.T) {
	c, _ := newCollector(t)

	c.RecordClean(clean.Stats{OriginalCount: 10, LowOpacity: 2, SmallScale: 1, Outlier: 3, FinalCount: 4})
	c.RecordCompression(&export.CompressionStats{Compressed: 3, Skipped: 1, TotalOriginal: 1000, TotalCompressed: 400})
	c.RecordCompression(nil)

	assert.Equal(t, 2.0, promtest.ToFloat64(c.splatsRemoved.WithLabelValues("low_opacity")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.splatsRemoved.WithLabelValues("small_scale")))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.splatsRemoved.WithLabelValues("outlier")))
	assert.Equal(t, 4.0, promtest.ToFloat64(c.splatsKept))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.views.WithLabelValues("compressed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.views.WithLabelValues("skipped")))
	assert.Equal(t, 600.0, promtest.ToFloat64(c.bytesSaved))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg, "splatgo")
	require.NoError(t, err)

	_, err = NewCollector(reg, "splatgo")
	assert.Error(t, err)
}

func TestCollector_WithConverter(t *testing.T) {
	c, reg := newCollector(t)

	cfg := clean.DefaultConfig()
	conv, err := splatgo.New(
		splatgo.WithMetricsCollector(c),
		splatgo.WithCleaning(&cfg),
	)
	require.NoError(t, err)

	b := testutil.NewPLYBuilder(true)
	for i := range 4 {
		b.Add(testutil.IdentityRecord([3]float32{float32(i), 0, 0}))
	}
	_, err = conv.Convert(context.Background(), b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.conversions.WithLabelValues("glb", "ok")))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `splatgo_conversions_total{format="glb",result="ok"} 1`)
	assert.Contains(t, string(body), "splatgo_splats_kept_total")
}
