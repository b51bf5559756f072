package climdex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// End-to-end reference + exceedance over a 65-year synthetic daily series.
//
// Every cell carries the same strictly increasing ramp v(t) = t, so the
// reference-window values are n consecutive integers and the interpolated
// 99th percentile is exactly firstRefDay + 0.99*(n-1).
func Test_ReferenceAndExceedance_PlantedPercentile(t *testing.T) {
	lat := []float64{-30, 0, 30}
	lon := []float64{100, 180, 260}
	g := makeDailyGrid(1950, 2014, lat, lon, "mm/day", func(t int, _ time.Time) float64 {
		return float64(t)
	})

	ref, err := g.ExtractYears(1980, 2014)
	assert.NoError(t, err)
	n := len(ref.Time)
	t0 := ref.At(0, 0, 0)
	wantV := t0 + 0.99*float64(n-1)

	field, err := ReferenceThresholds(g, 1980, 2014, 99)
	assert.NoError(t, err)
	for j := range lat {
		for i := range lon {
			assert.InDelta(t, wantV, field.At(j, i), 1e-6)
		}
	}

	// Exceedance of the reference window against its own threshold: the
	// days strictly above the lower interpolation rank exceed, i.e.
	// n - (floor(0.99*(n-1)) + 1) days in total.
	series, err := AnnualExceedance(ref, field)
	assert.NoError(t, err)
	assert.Equal(t, 35, len(series.Time))

	total := 0.0
	for _, d := range series.Days {
		total += d
	}
	wantDays := float64(n - (int(0.99*float64(n-1)) + 1))
	assert.InDelta(t, wantDays, total, 1e-6)

	// Mean annual frequency approximates 1% of days: about 3.65 days/year.
	assert.InDelta(t, 3.65, total/35.0, 0.1)

	// Self-consistency: the exceedance fraction stays within tolerance of
	// (100-p)/100.
	frac := total / float64(n)
	assert.InDelta(t, 0.01, frac, 5e-4)
}

func Test_MonthlyExceedance(t *testing.T) {
	lat := []float64{-30, 0, 30}
	lon := []float64{100, 180, 260}
	g := makeDailyGrid(1950, 2014, lat, lon, "mm/day", func(t int, _ time.Time) float64 {
		return float64(t)
	})

	field, err := ReferenceThresholds(g, 1980, 2014, 99)
	assert.NoError(t, err)

	ref, err := g.ExtractYears(1980, 2014)
	assert.NoError(t, err)
	annual, err := AnnualExceedance(ref, field)
	assert.NoError(t, err)
	monthly, err := MonthlyExceedance(ref, field)
	assert.NoError(t, err)

	assert.Equal(t, 35*12, len(monthly.Time))

	// The monthly counts partition the annual counts.
	sumAnnual, sumMonthly := 0.0, 0.0
	for _, d := range annual.Days {
		sumAnnual += d
	}
	for _, d := range monthly.Days {
		sumMonthly += d
	}
	assert.InDelta(t, sumAnnual, sumMonthly, 1e-6)
}

func Test_Exceedance_ThresholdReuseAcrossPeriods(t *testing.T) {
	lat := []float64{0}
	lon := []float64{0}
	g := makeDailyGrid(1950, 2084, lat, lon, "mm/day", func(t int, _ time.Time) float64 {
		return float64(t % 1000)
	})

	field, err := ReferenceThresholds(g, 1980, 2014, 99)
	assert.NoError(t, err)

	// The same field applies to a future window; a shifted climate with the
	// same value distribution yields a comparable frequency.
	hist, err := g.ExtractYears(1950, 2014)
	assert.NoError(t, err)
	future, err := g.ExtractYears(2050, 2084)
	assert.NoError(t, err)

	sHist, err := AnnualExceedance(hist, field)
	assert.NoError(t, err)
	sFut, err := AnnualExceedance(future, field)
	assert.NoError(t, err)

	meanOf := func(xs []float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs))
	}
	assert.InDelta(t, meanOf(sHist.Days), meanOf(sFut.Days), 0.5)
}

func Test_Exceedance_ShapeMismatch(t *testing.T) {
	lat := []float64{0}
	lon := []float64{0}
	g := makeDailyGrid(2000, 2000, lat, lon, "mm/day", func(t int, _ time.Time) float64 {
		return float64(t)
	})
	field := &PercentileThresholdField{Lat: []float64{0, 10}, Lon: []float64{0}, Level: 99, Data: []float64{1, 1}}

	_, err := AnnualExceedance(g, field)
	assert.Error(t, err)
}
