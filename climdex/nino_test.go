package climdex

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func nino34Box() Box {
	return Box{LonMin: 190, LonMax: 240, LatMin: -5, LatMax: 5}
}

// A pure 12-month sinusoid has no trend; the anomaly series before smoothing
// is a fixed (near-zero) offset with no residual trend.
func Test_NinoIndex_SinusoidAnomalyIsFlat(t *testing.T) {
	lat := []float64{-4.5, -0.5, 0.5, 4.5}
	lon := []float64{195, 215, 235}
	g := makeMonthlyGrid(1950, 2020, lat, lon, "K", func(t int, _ time.Time) float64 {
		return 20 + math.Sin(2*math.Pi*float64(t)/12)
	})

	sub, err := g.subsetBox(nino34Box())
	assert.NoError(t, err)
	assert.NoError(t, sub.detrend())
	clim, err := sub.monthlyClimatology(1981, 2010)
	assert.NoError(t, err)
	sub.subtractClimatology(clim)

	// The discrete regression over whole cycles leaves a sub-0.05 K ripple;
	// the anomaly must show no seasonal cycle beyond that.
	anom := sub.spatialMean()
	assert.Equal(t, len(g.Time), len(anom))
	for _, v := range anom {
		assert.InDelta(t, 0.0, v, 0.05)
	}

	// The full index is equally flat.
	index, err := NinoIndex(g, nino34Box(), 1981, 2010)
	assert.NoError(t, err)
	assert.Equal(t, len(g.Time), len(index.Time))
	for _, v := range index.Value {
		assert.InDelta(t, 0.0, v, 0.05)
	}
}

// Adding a constant offset to the input leaves the anomaly series unchanged:
// trend plus climatology removal cancels additive shifts.
func Test_NinoIndex_ConstantOffsetInvariant(t *testing.T) {
	lat := []float64{-4.5, 0.5, 4.5}
	lon := []float64{195, 225}
	rng := rand.New(rand.NewSource(11))
	g1 := makeMonthlyGrid(1950, 2020, lat, lon, "K", func(t int, _ time.Time) float64 {
		return 20 + 0.01*float64(t) + rng.NormFloat64()
	})

	g2 := NewTimeSeriesGrid(append([]time.Time{}, g1.Time...), lat, lon, "K")
	for i, v := range g1.Data {
		g2.Data[i] = v + 7.5
	}

	i1, err := NinoIndex(g1, nino34Box(), 1981, 2010)
	assert.NoError(t, err)
	i2, err := NinoIndex(g2, nino34Box(), 1981, 2010)
	assert.NoError(t, err)

	for k := range i1.Value {
		assert.InDelta(t, i1.Value[k], i2.Value[k], 1e-8)
	}
}

// The linear detrend removes a planted warming trend.
func Test_NinoIndex_RemovesLinearTrend(t *testing.T) {
	lat := []float64{-4.5, 0.5, 4.5}
	lon := []float64{195, 225}
	g := makeMonthlyGrid(1950, 2020, lat, lon, "K", func(t int, _ time.Time) float64 {
		return 20 + 0.002*float64(t) + math.Sin(2*math.Pi*float64(t)/12)
	})

	index, err := NinoIndex(g, nino34Box(), 1981, 2010)
	assert.NoError(t, err)
	for _, v := range index.Value {
		assert.InDelta(t, 0.0, v, 0.05)
	}
}

func Test_RunningMean3(t *testing.T) {
	// Edge months shrink the window; length is preserved.
	out := runningMean3([]float64{0, 3, 6})
	assert.Equal(t, 3, len(out))
	assert.InDelta(t, 1.5, out[0], 1e-12)
	assert.InDelta(t, 3.0, out[1], 1e-12)
	assert.InDelta(t, 4.5, out[2], 1e-12)

	// A constant series is a fixed point.
	konst := []float64{2, 2, 2, 2, 2}
	smooth := runningMean3(konst)
	assert.Equal(t, len(konst), len(smooth))
	for _, v := range smooth {
		assert.InDelta(t, 2.0, v, 1e-12)
	}
}

func Test_NinoIndex_BaselineOutsideData(t *testing.T) {
	lat := []float64{-4.5, 0.5}
	lon := []float64{195, 225}
	g := makeMonthlyGrid(1950, 1960, lat, lon, "K", func(t int, _ time.Time) float64 {
		return float64(t)
	})

	_, err := NinoIndex(g, nino34Box(), 1981, 2010)
	assert.Error(t, err)
	var be *BaselineWindowError
	assert.ErrorAs(t, err, &be)
}

func Test_NinoIndex_TooShortForTrend(t *testing.T) {
	lat := []float64{-4.5, 0.5}
	lon := []float64{195, 225}
	times := []time.Time{time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)}
	g := NewTimeSeriesGrid(times, lat, lon, "K")

	_, err := NinoIndex(g, nino34Box(), 1981, 2010)
	assert.Error(t, err)
	var te *TrendFitError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.N)
}

func Test_SubsetBox_Empty(t *testing.T) {
	lat := []float64{50, 60}
	lon := []float64{10, 20}
	g := makeMonthlyGrid(2000, 2001, lat, lon, "K", func(t int, _ time.Time) float64 {
		return float64(t)
	})

	_, err := g.subsetBox(nino34Box())
	assert.Error(t, err)
	var ee *EmptyRangeError
	assert.ErrorAs(t, err, &ee)
}
