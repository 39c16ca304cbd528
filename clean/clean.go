// Package clean removes degenerate and outlying splats from a collection.
//
// Filtering runs three stages in a fixed order; a splat rejected by one stage
// is not seen by later stages and is counted only once:
//
//  1. opacity: keep opacity >= MinOpacity
//  2. scale:   keep when any scale axis >= MinScale
//  3. outlier: keep splats within median + k*sigma of the robust center
//     (median/MAD), only when OutlierSigma is set and more than two
//     splats survived.
//
// A NaN opacity or scale fails its keep-condition and is removed.
package clean

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/splatgo/splat"
	"gonum.org/v1/gonum/spatial/r3"
)

// madScale makes the median absolute deviation a consistent estimator of
// the standard deviation for normally distributed data.
const madScale = 1.4826

// minOutlierSamples is the smallest survivor count for which the outlier
// stage runs.
const minOutlierSamples = 3

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("clean: invalid config")

// Config controls the filter thresholds.
type Config struct {
	// MinOpacity keeps splats with opacity >= MinOpacity.
	MinOpacity float32
	// MinScale keeps splats with at least one scale axis >= MinScale.
	MinScale float32
	// OutlierSigma enables the outlier stage when non-nil.
	OutlierSigma *float32
}

// DefaultConfig drops splats below 0.5% opacity and those smaller than
// 1e-4 on every axis. Outlier removal is off.
func DefaultConfig() Config {
	return Config{
		MinOpacity: 0.005,
		MinScale:   1e-4,
	}
}

// Sigma is a helper returning a pointer to k for Config.OutlierSigma.
func Sigma(k float32) *float32 {
	return &k
}

// Validate rejects negative or non-finite thresholds.
func (c Config) Validate() error {
	check := func(name string, v float32) error {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidConfig, name, v)
		}
		return nil
	}

	if err := check("min opacity", c.MinOpacity); err != nil {
		return err
	}
	if err := check("min scale", c.MinScale); err != nil {
		return err
	}
	if c.OutlierSigma != nil {
		return check("outlier sigma", *c.OutlierSigma)
	}
	return nil
}

// Stats reports how many splats each stage removed.
//
// OriginalCount == LowOpacity + SmallScale + Outlier + FinalCount.
type Stats struct {
	OriginalCount int `json:"original_count"`
	LowOpacity    int `json:"low_opacity"`
	SmallScale    int `json:"small_scale"`
	Outlier       int `json:"outlier"`
	FinalCount    int `json:"final_count"`
}

// Removed returns the total number of rejected splats.
func (s Stats) Removed() int {
	return s.LowOpacity + s.SmallScale + s.Outlier
}

// Filter returns a new collection with the splats that pass every stage, in
// their original order, and the per-stage removal counts. c is not modified.
func Filter(c *splat.Collection, cfg Config) (*splat.Collection, Stats) {
	stats := Stats{OriginalCount: c.Len()}

	survivors := roaring.New()
	// Stages are keep-conditions so NaN values are rejected.
	for i := range c.Len() {
		if !(c.Opacities[i] >= cfg.MinOpacity) {
			stats.LowOpacity++
			continue
		}
		s := c.Scales[i]
		if !(s[0] >= cfg.MinScale || s[1] >= cfg.MinScale || s[2] >= cfg.MinScale) {
			stats.SmallScale++
			continue
		}
		survivors.Add(uint32(i))
	}

	if cfg.OutlierSigma != nil && survivors.GetCardinality() >= minOutlierSamples {
		outliers := findOutliers(c, survivors, float64(*cfg.OutlierSigma))
		stats.Outlier = int(outliers.GetCardinality())
		survivors.AndNot(outliers)
	}

	n := int(survivors.GetCardinality())
	stats.FinalCount = n
	return c.Select(indices(survivors), n), stats
}

// findOutliers returns the survivors farther than median + k*sigma from the
// per-axis median center, with sigma estimated from the MAD of distances.
func findOutliers(c *splat.Collection, survivors *roaring.Bitmap, k float64) *roaring.Bitmap {
	n := int(survivors.GetCardinality())
	ids := survivors.ToArray()

	axis := make([]float64, n)
	var center r3.Vec
	for dim := range 3 {
		for j, id := range ids {
			axis[j] = float64(c.Positions[id][dim])
		}
		m := median(axis)
		switch dim {
		case 0:
			center.X = m
		case 1:
			center.Y = m
		default:
			center.Z = m
		}
	}

	dists := make([]float64, n)
	for j, id := range ids {
		p := c.Positions[id]
		dists[j] = r3.Norm(r3.Sub(r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}, center))
	}

	medianDist := median(dists)
	for j, d := range dists {
		axis[j] = math.Abs(d - medianDist)
	}
	sigma := madScale * median(axis)
	limit := medianDist + k*sigma

	outliers := roaring.New()
	for j, d := range dists {
		if !(d <= limit) {
			outliers.Add(ids[j])
		}
	}
	return outliers
}

// median returns the median of values without reordering them.
// Even-length inputs average the two middle values.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func indices(bm *roaring.Bitmap) iter.Seq[int] {
	return func(yield func(int) bool) {
		it := bm.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}
