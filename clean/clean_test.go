package clean

import (
	"math"
	"testing"

	"github.com/hupe1980/splatgo/splat"
	"github.com/hupe1980/splatgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keepAll() Config {
	return Config{}
}

func assertAccounting(t *testing.T, s Stats) {
	t.Helper()
	assert.Equal(t, s.OriginalCount, s.LowOpacity+s.SmallScale+s.Outlier+s.FinalCount)
}

func TestFilter_OutlierScenario(t *testing.T) {
	c := testutil.Uniform(6, [3]float32{})
	c.Positions[1] = [3]float32{0.1, 0, 0}
	c.Positions[2] = [3]float32{-0.1, 0, 0}
	c.Positions[3] = [3]float32{0, 0.1, 0}
	c.Positions[4] = [3]float32{0, -0.1, 0}
	c.Positions[5] = [3]float32{100, 0, 0}

	cfg := keepAll()
	cfg.OutlierSigma = Sigma(3)

	out, stats := Filter(c, cfg)

	assert.Equal(t, Stats{OriginalCount: 6, Outlier: 1, FinalCount: 5}, stats)
	require.Equal(t, 5, out.Len())
	for i := range 5 {
		assert.Equal(t, c.Positions[i], out.Positions[i])
	}
	assertAccounting(t, stats)
}

func TestFilter_OpacityBoundaryInclusive(t *testing.T) {
	c := testutil.Uniform(3, [3]float32{})
	c.Opacities[0] = 0.5
	c.Opacities[1] = 0.4999
	c.Opacities[2] = 0.9

	out, stats := Filter(c, Config{MinOpacity: 0.5})

	assert.Equal(t, 1, stats.LowOpacity)
	assert.Equal(t, 2, stats.FinalCount)
	assert.Equal(t, []float32{0.5, 0.9}, out.Opacities)
	assertAccounting(t, stats)
}

func TestFilter_ScaleAnyAxisKeeps(t *testing.T) {
	c := testutil.Uniform(3, [3]float32{})
	c.Scales[0] = [3]float32{1e-6, 1e-6, 1e-6}
	c.Scales[1] = [3]float32{1e-6, 1e-6, 0.5}
	c.Scales[2] = [3]float32{0.01, 0.01, 0.01}

	out, stats := Filter(c, Config{MinScale: 0.01})

	assert.Equal(t, 1, stats.SmallScale)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, c.Scales[1], out.Scales[0])
	assert.Equal(t, c.Scales[2], out.Scales[1])
}

func TestFilter_StagesCountOnce(t *testing.T) {
	c := testutil.Uniform(2, [3]float32{})
	// Fails both the opacity and the scale stage; only the first counts.
	c.Opacities[0] = 0
	c.Scales[0] = [3]float32{}

	_, stats := Filter(c, Config{MinOpacity: 0.1, MinScale: 0.1})
	assert.Equal(t, Stats{OriginalCount: 2, LowOpacity: 1, FinalCount: 1}, stats)
}

func TestFilter_NaNIsRemoved(t *testing.T) {
	nan := float32(math.NaN())
	c := testutil.Uniform(3, [3]float32{})
	c.Opacities[0] = nan
	c.Scales[1] = [3]float32{nan, nan, nan}

	out, stats := Filter(c, Config{MinOpacity: 0.1, MinScale: 0.01})
	assert.Equal(t, Stats{OriginalCount: 3, LowOpacity: 1, SmallScale: 1, FinalCount: 1}, stats)
	assert.Equal(t, 1, out.Len())

	// One NaN axis does not hide a valid one.
	c.Scales[1] = [3]float32{nan, 0.5, nan}
	_, stats = Filter(c, Config{MinOpacity: 0.1, MinScale: 0.01})
	assert.Equal(t, 0, stats.SmallScale)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(0.005), cfg.MinOpacity)
	assert.Equal(t, float32(1e-4), cfg.MinScale)
	assert.Nil(t, cfg.OutlierSigma)
}

func TestFilter_NilSigmaSkipsOutliers(t *testing.T) {
	c := testutil.Uniform(6, [3]float32{})
	c.Positions[5] = [3]float32{1e6, 1e6, 1e6}

	out, stats := Filter(c, keepAll())
	assert.Equal(t, 0, stats.Outlier)
	assert.Equal(t, 6, out.Len())
}

func TestFilter_TooFewForOutliers(t *testing.T) {
	c := testutil.Uniform(2, [3]float32{})
	c.Positions[1] = [3]float32{1e6, 0, 0}

	out, stats := Filter(c, Config{OutlierSigma: Sigma(0)})
	assert.Equal(t, 0, stats.Outlier)
	assert.Equal(t, 2, out.Len())
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	c := testutil.NewRNG(3).Splats(128)
	before := c.Clone()

	out, stats := Filter(c, DefaultConfig())
	assert.Equal(t, before, c)
	assertAccounting(t, stats)
	require.NoError(t, out.Validate())

	if out.Len() > 0 {
		out.Positions[0][0] = 1234
		assert.NotEqual(t, float32(1234), c.Positions[0][0])
	}
}

func TestFilter_Random(t *testing.T) {
	rng := testutil.NewRNG(42)
	c := rng.ClusteredSplats(1000, 0.5)
	for i := range 10 {
		c.Positions[i] = [3]float32{50, 50, 50}
	}

	out, stats := Filter(c, Config{MinOpacity: 0.2, MinScale: 0.05, OutlierSigma: Sigma(3)})
	assertAccounting(t, stats)
	assert.Equal(t, stats.FinalCount, out.Len())
	assert.Equal(t, stats.OriginalCount-stats.Removed(), stats.FinalCount)

	for i := range out.Len() {
		assert.GreaterOrEqual(t, out.Opacities[i], float32(0.2))
		assert.Less(t, out.Positions[i][0], float32(50))
	}
}

func TestFilter_Empty(t *testing.T) {
	out, stats := Filter(splat.New(0), DefaultConfig())
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, Stats{}, stats)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3}, 3},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{-1, 1}, 0},
	}
	for _, tt := range tests {
		in := append([]float64(nil), tt.in...)
		assert.Equal(t, tt.want, median(in))
		assert.Equal(t, tt.in, in)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero", Config{}, false},
		{"negative opacity", Config{MinOpacity: -1}, true},
		{"nan scale", Config{MinScale: float32(math.NaN())}, true},
		{"inf sigma", Config{OutlierSigma: Sigma(float32(math.Inf(1)))}, true},
		{"negative sigma", Config{OutlierSigma: Sigma(-2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func BenchmarkFilter(b *testing.B) {
	c := testutil.NewRNG(1).ClusteredSplats(100_000, 1)
	cfg := DefaultConfig()

	b.ResetTimer()
	for b.Loop() {
		Filter(c, cfg)
	}
}
