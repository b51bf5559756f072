package climdex

import (
	"math"
	"sort"
)

//--------------------------------------
// Reference-period percentile thresholds
//--------------------------------------

// PercentileThresholdField holds one percentile value per grid cell, computed
// over a fixed reference period. Immutable once computed; the same field is
// applied to the historical and both future exceedance periods.
type PercentileThresholdField struct {
	Lat   []float64
	Lon   []float64
	Level float64 // percentile level, e.g. 99 or 99.9
	Data  []float64
}

// At returns the threshold at latitude index j, longitude index i.
func (f *PercentileThresholdField) At(j, i int) float64 {
	return f.Data[j*len(f.Lon)+i]
}

// ReferenceThresholds computes the per-cell level-th percentile of the grid
// over the inclusive reference years [refStart, refEnd].
//
// The reference window must cover every year of the span; otherwise an
// InsufficientReferenceDataError is returned. Per cell, the percentile is a
// rank estimate with linear interpolation between the two closest ranks,
// located by iteratively narrowing the observed [min, max] bracket instead of
// sorting the full series. A cell with min == max returns a
// ThresholdDegeneracyError. Cells that are all-missing stay NaN.
func ReferenceThresholds(g *TimeSeriesGrid, refStart, refEnd int, level float64) (*PercentileThresholdField, error) {
	ref, err := g.ExtractYears(refStart, refEnd)
	if err != nil {
		return nil, err
	}

	want := refEnd - refStart + 1
	if have := len(ref.years()); have < want {
		return nil, &InsufficientReferenceDataError{HaveYears: have, WantYears: want}
	}

	field := &PercentileThresholdField{
		Lat:   append([]float64{}, g.Lat...),
		Lon:   append([]float64{}, g.Lon...),
		Level: level,
		Data:  make([]float64, g.NCells()),
	}

	nt := len(ref.Time)
	vals := make([]float64, 0, nt)

	for j := range g.Lat {
		for i := range g.Lon {
			vals = vals[:0]
			lo, hi := math.Inf(1), math.Inf(-1)
			for t := 0; t < nt; t++ {
				v := ref.At(t, j, i)
				if math.IsNaN(v) {
					continue
				}
				vals = append(vals, v)
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}

			if len(vals) == 0 {
				field.Data[j*len(g.Lon)+i] = math.NaN()
				continue
			}
			if lo == hi {
				return nil, &ThresholdDegeneracyError{Lat: g.Lat[j], Lon: g.Lon[i]}
			}

			field.Data[j*len(g.Lon)+i] = bracketedPercentile(vals, lo, hi, level)
		}
	}
	return field, nil
}

// bracketedPercentile estimates the level-th percentile of vals, using the
// observed [lo, hi] extremes as the starting bracket.
//
// Rank position h = (n-1)*level/100; the result interpolates linearly between
// the floor(h)-th and (floor(h)+1)-th order statistics.
func bracketedPercentile(vals []float64, lo, hi, level float64) float64 {
	n := len(vals)
	h := float64(n-1) * level / 100.0
	k := int(math.Floor(h))
	frac := h - float64(k)

	vk := kthSmallest(vals, k, lo, hi)
	if frac == 0 || k+1 >= n {
		return vk
	}
	vk1 := kthSmallest(vals, k+1, lo, hi)
	return vk + frac*(vk1-vk)
}

// kthSmallest selects the k-th order statistic (0-based) of vals by
// repeatedly narrowing the bracket [lo, hi] to the histogram bin holding rank
// k. Only the final handful of candidates is sorted.
func kthSmallest(vals []float64, k int, lo, hi float64) float64 {
	const nBins = 16
	const smallEnough = 32

	cand := vals
	for len(cand) > smallEnough && hi > lo {
		width := (hi - lo) / nBins
		if width == 0 {
			break
		}

		var counts [nBins]int
		for _, v := range cand {
			b := int((v - lo) / width)
			if b < 0 {
				b = 0
			}
			if b >= nBins {
				b = nBins - 1
			}
			counts[b]++
		}

		// Find the bin containing rank k.
		bin := 0
		before := 0
		for ; bin < nBins; bin++ {
			if before+counts[bin] > k {
				break
			}
			before += counts[bin]
		}

		binLo := lo + float64(bin)*width
		binHi := binLo + width
		if bin == nBins-1 {
			binHi = hi
		}

		next := make([]float64, 0, counts[bin])
		for _, v := range cand {
			b := int((v - lo) / width)
			if b < 0 {
				b = 0
			}
			if b >= nBins {
				b = nBins - 1
			}
			if b == bin {
				next = append(next, v)
			}
		}

		// All remaining candidates in one bin and no progress: bail out to
		// the sort below.
		if len(next) == len(cand) {
			cand = next
			break
		}

		cand = next
		k -= before
		lo, hi = binLo, binHi
	}

	rest := append([]float64{}, cand...)
	sort.Float64s(rest)
	return rest[k]
}
