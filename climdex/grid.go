package climdex

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Seconds per day; converts a precipitation flux (kg m-2 s-1) into an
// accumulated depth per day (mm/day).
const secondsPerDay = 86400.0

// TimeSeriesGrid holds one gridded variable on a (time, lat, lon) cube.
// Data is flat, row-major over (time, lat, lon). The time axis is strictly
// increasing with no duplicates; Concat enforces this.
type TimeSeriesGrid struct {
	Time  []time.Time
	Lat   []float64 // degrees north, ascending
	Lon   []float64 // degrees east, ascending
	Units string
	Data  []float64
}

// NewTimeSeriesGrid allocates a grid with all cells set to NaN.
func NewTimeSeriesGrid(times []time.Time, lat []float64, lon []float64, units string) *TimeSeriesGrid {
	data := make([]float64, len(times)*len(lat)*len(lon))
	for i := range data {
		data[i] = math.NaN()
	}
	return &TimeSeriesGrid{
		Time:  times,
		Lat:   lat,
		Lon:   lon,
		Units: units,
		Data:  data,
	}
}

// At returns the value at time index t, latitude index j, longitude index i.
func (g *TimeSeriesGrid) At(t, j, i int) float64 {
	return g.Data[(t*len(g.Lat)+j)*len(g.Lon)+i]
}

// Set stores v at time index t, latitude index j, longitude index i.
func (g *TimeSeriesGrid) Set(t, j, i int, v float64) {
	g.Data[(t*len(g.Lat)+j)*len(g.Lon)+i] = v
}

// NCells returns the number of grid cells per time step.
func (g *TimeSeriesGrid) NCells() int {
	return len(g.Lat) * len(g.Lon)
}

// Concat joins split per-period series into one continuous grid.
//
// The parts must share lat/lon axes and units, be given in any order, and
// cover a contiguous, non-overlapping time range. A duplicate timestamp, a
// reversed step or a gap larger than the natural sampling step returns a
// DiscontinuityError. The natural step is the median spacing inside the
// parts, so both daily and calendar-month sampling pass.
func Concat(parts ...*TimeSeriesGrid) (*TimeSeriesGrid, error) {
	if len(parts) == 0 {
		return nil, errors.New("concat: no input parts")
	}

	sorted := append([]*TimeSeriesGrid{}, parts...)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Time[0].Before(sorted[b].Time[0])
	})

	first := sorted[0]
	for _, p := range sorted[1:] {
		if len(p.Lat) != len(first.Lat) || len(p.Lon) != len(first.Lon) {
			return nil, errors.Errorf("concat: grid shape mismatch (%dx%d vs %dx%d)",
				len(p.Lat), len(p.Lon), len(first.Lat), len(first.Lon))
		}
		if p.Units != first.Units {
			return nil, errors.Errorf("concat: unit mismatch (%q vs %q)", p.Units, first.Units)
		}
	}

	out := &TimeSeriesGrid{
		Lat:   append([]float64{}, first.Lat...),
		Lon:   append([]float64{}, first.Lon...),
		Units: first.Units,
	}
	for _, p := range sorted {
		out.Time = append(out.Time, p.Time...)
		out.Data = append(out.Data, p.Data...)
	}

	if err := checkContinuity(out.Time); err != nil {
		return nil, err
	}
	return out, nil
}

// checkContinuity verifies a strictly increasing time axis with no gaps.
func checkContinuity(ts []time.Time) error {
	if len(ts) < 2 {
		return nil
	}

	steps := make([]float64, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		d := ts[i].Sub(ts[i-1])
		if d <= 0 {
			return &DiscontinuityError{
				At:     ts[i].Format("2006-01-02"),
				Detail: "overlapping or duplicate time steps",
			}
		}
		steps[i-1] = d.Hours()
	}

	med := append([]float64{}, steps...)
	sort.Float64s(med)
	step := med[len(med)/2]

	// Calendar months vary between 28 and 31 days, so allow up to 1.6x the
	// median spacing before calling it a gap.
	for i, s := range steps {
		if s > step*1.6 {
			return &DiscontinuityError{
				At:     ts[i+1].Format("2006-01-02"),
				Detail: fmt.Sprintf("gap of %.0fh exceeds sampling step of %.0fh", s, step),
			}
		}
	}
	return nil
}

// ExtractYears returns a copy restricted to the inclusive year range
// [startYear, endYear]. Returns an EmptyRangeError if no time step falls in
// the range.
func (g *TimeSeriesGrid) ExtractYears(startYear, endYear int) (*TimeSeriesGrid, error) {
	startTime := time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(endYear, 12, 31, 23, 59, 59, 0, time.UTC)

	startIndex := sort.Search(len(g.Time), func(i int) bool {
		return !g.Time[i].Before(startTime)
	})
	endIndex := sort.Search(len(g.Time), func(i int) bool {
		return g.Time[i].After(endTime)
	})
	if startIndex >= endIndex {
		return nil, &EmptyRangeError{
			Detail: fmt.Sprintf("no time steps in years %d-%d", startYear, endYear),
		}
	}

	cells := g.NCells()
	out := &TimeSeriesGrid{
		Time:  append([]time.Time{}, g.Time[startIndex:endIndex]...),
		Lat:   append([]float64{}, g.Lat...),
		Lon:   append([]float64{}, g.Lon...),
		Units: g.Units,
		Data:  append([]float64{}, g.Data[startIndex*cells:endIndex*cells]...),
	}
	return out, nil
}

// ConvertPrecipFluxToDaily converts a precipitation flux in kg m-2 s-1 to an
// accumulated depth in mm/day, in place. A grid already in mm/day is left
// unchanged.
func (g *TimeSeriesGrid) ConvertPrecipFluxToDaily() {
	if g.Units == "mm/day" {
		return
	}
	for i, v := range g.Data {
		g.Data[i] = v * secondsPerDay
	}
	g.Units = "mm/day"
}

// years returns the distinct calendar years on the time axis, ascending.
func (g *TimeSeriesGrid) years() []int {
	var out []int
	for _, t := range g.Time {
		y := t.Year()
		if len(out) == 0 || out[len(out)-1] != y {
			out = append(out, y)
		}
	}
	return out
}

// areaWeights returns cos(lat) weights per latitude row.
func areaWeights(lat []float64) []float64 {
	w := make([]float64, len(lat))
	for j, la := range lat {
		w[j] = math.Cos(la * math.Pi / 180.0)
	}
	return w
}
