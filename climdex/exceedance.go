package climdex

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

//--------------------------------------
// Threshold exceedance frequencies
//--------------------------------------

// ExceedanceSeries is a scalar-per-period series of area-weighted mean
// exceedance-day counts, one entry per year or per calendar month.
type ExceedanceSeries struct {
	Level float64
	Time  []time.Time // start of each aggregation period
	Days  []float64   // mean exceedance days per period
}

// AnnualExceedance counts, per grid cell and calendar year, the time steps
// whose value reaches or exceeds the cell's reference threshold, then
// averages the counts over the grid with cos(lat) area weights. Missing
// values and all-NaN threshold cells are excluded from the average.
func AnnualExceedance(g *TimeSeriesGrid, f *PercentileThresholdField) (*ExceedanceSeries, error) {
	return exceedance(g, f, func(t time.Time) time.Time {
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	})
}

// MonthlyExceedance is the monthly-granularity variant of AnnualExceedance.
func MonthlyExceedance(g *TimeSeriesGrid, f *PercentileThresholdField) (*ExceedanceSeries, error) {
	return exceedance(g, f, func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	})
}

// exceedance aggregates exceedance-day counts into periods keyed by periodOf.
func exceedance(g *TimeSeriesGrid, f *PercentileThresholdField, periodOf func(time.Time) time.Time) (*ExceedanceSeries, error) {
	if len(g.Lat) != len(f.Lat) || len(g.Lon) != len(f.Lon) {
		return nil, errors.Errorf("exceedance: grid %dx%d does not match threshold field %dx%d",
			len(g.Lat), len(g.Lon), len(f.Lat), len(f.Lon))
	}

	series := &ExceedanceSeries{Level: f.Level}
	weights := areaWeights(g.Lat)
	cells := g.NCells()

	// Per-cell exceedance counts for the current period.
	counts := make([]float64, cells)

	flush := func() {
		sum, wsum := 0.0, 0.0
		for j := range g.Lat {
			for i := range g.Lon {
				c := j*len(g.Lon) + i
				if math.IsNaN(f.Data[c]) {
					continue
				}
				sum += weights[j] * counts[c]
				wsum += weights[j]
			}
		}
		if wsum > 0 {
			series.Days = append(series.Days, sum/wsum)
		} else {
			series.Days = append(series.Days, math.NaN())
		}
		for c := range counts {
			counts[c] = 0
		}
	}

	var current time.Time
	for t := range g.Time {
		p := periodOf(g.Time[t])
		if len(series.Time) == 0 || !p.Equal(current) {
			if len(series.Time) > 0 {
				flush()
			}
			series.Time = append(series.Time, p)
			current = p
		}
		for j := range g.Lat {
			for i := range g.Lon {
				v := g.At(t, j, i)
				if math.IsNaN(v) {
					continue
				}
				if v >= f.At(j, i) {
					counts[j*len(g.Lon)+i]++
				}
			}
		}
	}
	if len(series.Time) > 0 {
		flush()
	}

	if len(series.Time) == 0 {
		return nil, &EmptyRangeError{Detail: "no time steps to aggregate"}
	}
	return series, nil
}
