package climdex

import (
	"sort"
	"time"
)

//--------------------------------------
// Bilinear regridding
//--------------------------------------

// Global1Deg returns the target axes of the common 1 degree by 1 degree
// global grid (360 x 180 cell centers).
func Global1Deg() (lat []float64, lon []float64) {
	lat = make([]float64, 180)
	for j := range lat {
		lat[j] = -89.5 + float64(j)
	}
	lon = make([]float64, 360)
	for i := range lon {
		lon[i] = 0.5 + float64(i)
	}
	return lat, lon
}

// RegridBilinear interpolates every time step onto the given target axes.
//
// Source axes must be ascending with at least 2 points each, otherwise a
// RegridError is returned. Target longitudes outside the source range are
// wrapped across the 0/360 seam. A NaN at any of the four surrounding source
// cells propagates to the target cell.
func (g *TimeSeriesGrid) RegridBilinear(targetLat, targetLon []float64) (*TimeSeriesGrid, error) {
	if len(g.Lat) < 2 {
		return nil, &RegridError{Axis: "lat", N: len(g.Lat)}
	}
	if len(g.Lon) < 2 {
		return nil, &RegridError{Axis: "lon", N: len(g.Lon)}
	}

	out := NewTimeSeriesGrid(append([]time.Time{}, g.Time...), targetLat, targetLon, g.Units)

	// Precompute bracketing indices and fractional offsets per target axis.
	latIdx, latFrac := bracketAxis(g.Lat, targetLat, false)
	lonIdx, lonFrac := bracketAxis(g.Lon, targetLon, true)

	for t := range g.Time {
		for j := range targetLat {
			j0 := latIdx[j]
			fy := latFrac[j]
			for i := range targetLon {
				i0 := lonIdx[i]
				fx := lonFrac[i]
				i1 := (i0 + 1) % len(g.Lon)

				v00 := g.At(t, j0, i0)
				v01 := g.At(t, j0, i1)
				v10 := g.At(t, j0+1, i0)
				v11 := g.At(t, j0+1, i1)

				v := v00*(1-fy)*(1-fx) + v01*(1-fy)*fx + v10*fy*(1-fx) + v11*fy*fx
				out.Set(t, j, i, v)
			}
		}
	}
	return out, nil
}

// bracketAxis locates, for each target coordinate, the lower source index and
// the fractional position between it and the next source point. Targets
// outside the source range clamp to the edge, except on a wrapping longitude
// axis where the seam interval between the last and first source point is
// used instead.
func bracketAxis(src, target []float64, wrap bool) (idx []int, frac []float64) {
	idx = make([]int, len(target))
	frac = make([]float64, len(target))
	n := len(src)

	for k, x := range target {
		switch {
		case x <= src[0]:
			if wrap {
				idx[k], frac[k] = seamFraction(src, x)
			} else {
				idx[k], frac[k] = 0, 0
			}
		case x >= src[n-1]:
			if wrap {
				idx[k], frac[k] = seamFraction(src, x)
			} else {
				idx[k], frac[k] = n-2, 1
			}
		default:
			i := sort.SearchFloat64s(src, x) - 1
			if i < 0 {
				i = 0
			}
			if i > n-2 {
				i = n - 2
			}
			idx[k] = i
			frac[k] = (x - src[i]) / (src[i+1] - src[i])
		}
	}
	return idx, frac
}

// seamFraction interpolates across the 0/360 longitude seam, between the last
// and first source points.
func seamFraction(src []float64, x float64) (int, float64) {
	n := len(src)
	lo := src[n-1]
	hi := src[0] + 360.0
	span := hi - lo
	if span <= 0 {
		return n - 2, 1
	}
	xx := x
	if xx < lo {
		xx += 360.0
	}
	f := (xx - lo) / span
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return n - 1, f
}
