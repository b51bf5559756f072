package climdex

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

//--------------------------------------
// Oceanic Nino Index
//--------------------------------------

// Box is a lat/lon selection rectangle in degrees east / degrees north.
type Box struct {
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
}

// ClimateIndexSeries is a scalar monthly climate index, e.g. Nino 3.4.
type ClimateIndexSeries struct {
	Time  []time.Time
	Value []float64
}

// NinoIndex derives a monthly ONI-style index from one member's SST grid:
// box subset, per-cell linear detrend, monthly climatology over the baseline
// years, anomaly, centered 3-month running mean, area-weighted spatial mean.
//
// The running mean shrinks its window at the series edges (the first and last
// month average two samples), so the output length equals the input length.
// All intermediate grids are locals and are dropped once the index is built.
func NinoIndex(sst *TimeSeriesGrid, box Box, baseStart, baseEnd int) (*ClimateIndexSeries, error) {
	sub, err := sst.subsetBox(box)
	if err != nil {
		return nil, err
	}

	if err := sub.detrend(); err != nil {
		return nil, err
	}

	clim, err := sub.monthlyClimatology(baseStart, baseEnd)
	if err != nil {
		return nil, err
	}
	sub.subtractClimatology(clim)

	anom := sub.spatialMean()
	smooth := runningMean3(anom)

	return &ClimateIndexSeries{
		Time:  append([]time.Time{}, sub.Time...),
		Value: smooth,
	}, nil
}

// subsetBox copies the cells whose center falls inside the box (inclusive).
func (g *TimeSeriesGrid) subsetBox(box Box) (*TimeSeriesGrid, error) {
	var latIdx, lonIdx []int
	for j, la := range g.Lat {
		if la >= box.LatMin && la <= box.LatMax {
			latIdx = append(latIdx, j)
		}
	}
	for i, lo := range g.Lon {
		if lo >= box.LonMin && lo <= box.LonMax {
			lonIdx = append(lonIdx, i)
		}
	}
	if len(latIdx) == 0 || len(lonIdx) == 0 {
		return nil, &EmptyRangeError{
			Detail: fmt.Sprintf("no grid cells inside box %.0f-%.0fE %.0f-%.0fN",
				box.LonMin, box.LonMax, box.LatMin, box.LatMax),
		}
	}

	lat := make([]float64, len(latIdx))
	for k, j := range latIdx {
		lat[k] = g.Lat[j]
	}
	lon := make([]float64, len(lonIdx))
	for k, i := range lonIdx {
		lon[k] = g.Lon[i]
	}

	out := NewTimeSeriesGrid(append([]time.Time{}, g.Time...), lat, lon, g.Units)
	for t := range g.Time {
		for k, j := range latIdx {
			for m, i := range lonIdx {
				out.Set(t, k, m, g.At(t, j, i))
			}
		}
	}
	return out, nil
}

// detrend fits and removes a linear trend independently per grid cell, in
// place. Cells with fewer than 2 non-missing samples in an otherwise too
// short series return a TrendFitError.
func (g *TimeSeriesGrid) detrend() error {
	nt := len(g.Time)
	if nt < 2 {
		return &TrendFitError{N: nt}
	}

	xs := make([]float64, nt)
	for t := range xs {
		xs[t] = float64(t)
	}

	ys := make([]float64, nt)
	for j := range g.Lat {
		for i := range g.Lon {
			for t := 0; t < nt; t++ {
				ys[t] = g.At(t, j, i)
			}
			alpha, beta := stat.LinearRegression(xs, ys, nil, false)
			if math.IsNaN(alpha) || math.IsNaN(beta) {
				// All-missing cell; leave as is.
				continue
			}
			for t := 0; t < nt; t++ {
				g.Set(t, j, i, ys[t]-(alpha+beta*xs[t]))
			}
		}
	}
	return nil
}

// monthlyClimatology returns, per calendar month and cell, the mean over the
// inclusive baseline years. A month with no samples in the baseline returns a
// BaselineWindowError.
func (g *TimeSeriesGrid) monthlyClimatology(baseStart, baseEnd int) ([12][]float64, error) {
	var clim [12][]float64
	var seen [12]bool
	cells := g.NCells()
	for m := range clim {
		clim[m] = make([]float64, cells)
	}
	var counts [12][]float64
	for m := range counts {
		counts[m] = make([]float64, cells)
	}

	for t, ts := range g.Time {
		if ts.Year() < baseStart || ts.Year() > baseEnd {
			continue
		}
		m := int(ts.Month()) - 1
		seen[m] = true
		for c := 0; c < cells; c++ {
			v := g.Data[t*cells+c]
			if math.IsNaN(v) {
				continue
			}
			clim[m][c] += v
			counts[m][c]++
		}
	}

	for m := 0; m < 12; m++ {
		if !seen[m] {
			return clim, &BaselineWindowError{Month: m + 1}
		}
		for c := 0; c < cells; c++ {
			if counts[m][c] > 0 {
				clim[m][c] /= counts[m][c]
			} else {
				clim[m][c] = math.NaN()
			}
		}
	}
	return clim, nil
}

// subtractClimatology turns the grid into anomalies, in place.
func (g *TimeSeriesGrid) subtractClimatology(clim [12][]float64) {
	cells := g.NCells()
	for t, ts := range g.Time {
		m := int(ts.Month()) - 1
		for c := 0; c < cells; c++ {
			g.Data[t*cells+c] -= clim[m][c]
		}
	}
}

// spatialMean collapses each time step to one area-weighted scalar.
func (g *TimeSeriesGrid) spatialMean() []float64 {
	weights := areaWeights(g.Lat)
	out := make([]float64, len(g.Time))
	for t := range g.Time {
		sum, wsum := 0.0, 0.0
		for j := range g.Lat {
			for i := range g.Lon {
				v := g.At(t, j, i)
				if math.IsNaN(v) {
					continue
				}
				sum += weights[j] * v
				wsum += weights[j]
			}
		}
		if wsum > 0 {
			out[t] = sum / wsum
		} else {
			out[t] = math.NaN()
		}
	}
	return out
}

// runningMean3 applies a centered 3-point running mean. Edge points average
// the available window (2 samples), preserving series length.
func runningMean3(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > len(xs)-1 {
			hi = len(xs) - 1
		}
		sum, n := 0.0, 0.0
		for k := lo; k <= hi; k++ {
			if math.IsNaN(xs[k]) {
				continue
			}
			sum += xs[k]
			n++
		}
		if n > 0 {
			out[i] = sum / n
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
