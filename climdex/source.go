package climdex

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

//--------------------------------------
// File-backed member source and sink
//--------------------------------------

// FileSource reads raw model output from a directory of NetCDF files named
// <variable>_<experiment>_<member>_<period>.nc, e.g.
// pr_historical_r3_1950-1999.nc. Split period files are concatenated into
// one continuous series per member and variable.
type FileSource struct {
	Dir      string
	Scenario string
}

// NewFileSource validates the source directory up front; a missing directory
// is a configuration error and aborts the run before any member starts.
func NewFileSource(dir, scenario string) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "source directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("source path %s is not a directory", dir)
	}
	return &FileSource{Dir: dir, Scenario: scenario}, nil
}

// PrecipSeries loads and concatenates the member's daily precipitation
// (variable "pr") across the historical and scenario branches.
func (s *FileSource) PrecipSeries(member string) (*TimeSeriesGrid, error) {
	return s.loadSeries("pr", member)
}

// SSTSeries loads and concatenates the member's monthly sea-surface
// temperature (variable "tos").
func (s *FileSource) SSTSeries(member string) (*TimeSeriesGrid, error) {
	return s.loadSeries("tos", member)
}

func (s *FileSource) loadSeries(variable, member string) (*TimeSeriesGrid, error) {
	var paths []string
	for _, experiment := range []string{"historical", s.Scenario} {
		pattern := filepath.Join(s.Dir, fmt.Sprintf("%s_%s_%s_*.nc", variable, experiment, member))
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no %s files for member %s under %s", variable, member, s.Dir)
	}
	sort.Strings(paths)

	parts := make([]*TimeSeriesGrid, len(paths))
	for i, p := range paths {
		g, err := ReadGrid(p, variable)
		if err != nil {
			return nil, err
		}
		parts[i] = g
	}
	return Concat(parts...)
}

// FileSink writes derived artifacts as NetCDF plus a CSV sibling for the
// plotting tools. All keying fields (member, level, period) are explicit
// arguments; the filename is derived, never parsed back.
type FileSink struct {
	Dir string
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "output directory %s", dir)
	}
	return &FileSink{Dir: dir}, nil
}

func (s *FileSink) WriteThreshold(member string, field *PercentileThresholdField) error {
	name := fmt.Sprintf("threshold_p%s_%s.nc", levelTag(field.Level), member)
	return WriteThresholdField(filepath.Join(s.Dir, name), field, "mm/day")
}

func (s *FileSink) WriteExceedance(member string, level float64, period Period, monthly bool, series *ExceedanceSeries) error {
	granularity := "annual"
	if monthly {
		granularity = "monthly"
	}
	base := fmt.Sprintf("exceedance_%s_p%s_%s_%s", granularity, levelTag(level), period, member)

	if err := WriteSeries(filepath.Join(s.Dir, base+".nc"), "days", series.Time, series.Days); err != nil {
		return err
	}
	return writeCSV(filepath.Join(s.Dir, base+".csv"), series)
}

func (s *FileSink) WriteIndex(member string, series *ClimateIndexSeries) error {
	base := fmt.Sprintf("nino34_%s", member)
	if err := WriteSeries(filepath.Join(s.Dir, base+".nc"), "index", series.Time, series.Value); err != nil {
		return err
	}
	return writeCSV(filepath.Join(s.Dir, base+".csv"), series)
}

type csvExporter interface {
	ToCSV(buf *bytes.Buffer)
}

func writeCSV(path string, e csvExporter) error {
	var buf bytes.Buffer
	e.ToCSV(&buf)
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// levelTag renders a percentile level for filenames: 99 -> "99",
// 99.9 -> "99_9".
func levelTag(level float64) string {
	s := strconv.FormatFloat(level, 'f', -1, 64)
	return strings.ReplaceAll(s, ".", "_")
}
