package climdex

import (
	"fmt"
)

// DiscontinuityError reports a gap, overlap or duplicate on the time axis
// found while concatenating split series files.
type DiscontinuityError struct {
	At     string // timestamp where the discontinuity was detected
	Detail string
}

func (e *DiscontinuityError) Error() string {
	return fmt.Sprintf("time axis discontinuity at %s: %s", e.At, e.Detail)
}

// RegridError reports a source grid that cannot be interpolated.
type RegridError struct {
	Axis string
	N    int
}

func (e *RegridError) Error() string {
	return fmt.Sprintf("cannot regrid: %s axis has %d points, need at least 2", e.Axis, e.N)
}

// EmptyRangeError reports a year-range or box selection that matched nothing.
type EmptyRangeError struct {
	Detail string
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("empty selection: %s", e.Detail)
}

// InsufficientReferenceDataError reports a reference window that does not
// cover the full configured span.
type InsufficientReferenceDataError struct {
	HaveYears int
	WantYears int
}

func (e *InsufficientReferenceDataError) Error() string {
	return fmt.Sprintf("reference period incomplete: have %d years, want %d", e.HaveYears, e.WantYears)
}

// ThresholdDegeneracyError reports a grid cell whose reference series is
// constant (min == max), which makes the percentile bracket degenerate.
type ThresholdDegeneracyError struct {
	Lat float64
	Lon float64
}

func (e *ThresholdDegeneracyError) Error() string {
	return fmt.Sprintf("degenerate threshold at (%.2f, %.2f): min == max over reference period", e.Lat, e.Lon)
}

// BaselineWindowError reports a climatology baseline with no samples for one
// or more calendar months.
type BaselineWindowError struct {
	Month int
}

func (e *BaselineWindowError) Error() string {
	return fmt.Sprintf("climatology baseline has no samples for month %d", e.Month)
}

// TrendFitError reports a series too short to fit a linear trend.
type TrendFitError struct {
	N int
}

func (e *TrendFitError) Error() string {
	return fmt.Sprintf("cannot fit linear trend: %d time points, need at least 2", e.N)
}

// PipelineError records where in a member pipeline a failure happened. The
// batch runner stores one per failed member; it never aborts other members.
type PipelineError struct {
	Member string
	Stage  string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("member %s, stage %s: %v", e.Member, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
