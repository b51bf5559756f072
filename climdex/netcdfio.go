package climdex

import (
	"math"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/pkg/errors"
)

//--------------------------------------
// NetCDF input and output
//--------------------------------------

// ReadGrid loads one (time, lat, lon) variable from a NetCDF file into a
// TimeSeriesGrid. Coordinate variables are located by dimension name, the
// time axis is decoded from its CF "days since ..." / "hours since ..."
// units attribute, and _FillValue / missing_value cells become NaN.
func ReadGrid(path, varName string) (*TimeSeriesGrid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer nc.Close()

	v, err := nc.Var(varName)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: variable %q not found", path, varName)
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: dims of %q", path, varName)
	}
	if len(dims) != 3 {
		return nil, errors.Errorf("%s: variable %q is %dD, expected (time, lat, lon)", path, varName, len(dims))
	}

	var dimNames [3]string
	var dimLens [3]int
	for i, d := range dims {
		name, err := d.Name()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: dim name", path)
		}
		n, err := d.Len()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: dim length", path)
		}
		dimNames[i] = name
		dimLens[i] = int(n)
	}

	rawTime, err := readCoord(nc, dimNames[0], dimLens[0])
	if err != nil {
		return nil, err
	}
	lat, err := readCoord(nc, dimNames[1], dimLens[1])
	if err != nil {
		return nil, err
	}
	lon, err := readCoord(nc, dimNames[2], dimLens[2])
	if err != nil {
		return nil, err
	}

	timeVar, err := nc.Var(dimNames[0])
	if err != nil {
		return nil, errors.Wrapf(err, "%s: time coordinate %q", path, dimNames[0])
	}
	times, err := decodeTimeAxis(rawTime, attrString(timeVar, "units"))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	data, err := readValues(v, dimLens[0]*dimLens[1]*dimLens[2])
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read %q", path, varName)
	}

	if fill, ok := fillValue(v); ok {
		for i, x := range data {
			if x == fill {
				data[i] = math.NaN()
			}
		}
	}

	return &TimeSeriesGrid{
		Time:  times,
		Lat:   lat,
		Lon:   lon,
		Units: attrString(v, "units"),
		Data:  data,
	}, nil
}

// readCoord reads a 1-D coordinate variable named after its dimension.
func readCoord(nc netcdf.Dataset, name string, n int) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, errors.Wrapf(err, "coordinate variable %q not found", name)
	}
	return readValues(v, n)
}

// readValues reads a variable as float64 regardless of its stored width.
func readValues(v netcdf.Var, n int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, err
	}
	switch t {
	case netcdf.DOUBLE:
		out := make([]float64, n)
		if err := v.ReadFloat64s(out); err != nil {
			return nil, err
		}
		return out, nil
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, n)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, n)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported variable type %v", t)
	}
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		n, err := a.Len()
		if err != nil || n == 0 {
			continue
		}
		buf64 := make([]float64, 1)
		if err := a.ReadFloat64s(buf64); err == nil {
			return buf64[0], true
		}
		buf32 := make([]float32, 1)
		if err := a.ReadFloat32s(buf32); err == nil {
			return float64(buf32[0]), true
		}
	}
	return 0, false
}

// attrString reads a character attribute, or "" if absent.
func attrString(v netcdf.Var, name string) string {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

// decodeTimeAxis converts CF-style numeric time values into timestamps.
// Supported unit forms: "days since <date>" and "hours since <date>", with
// the epoch as "2006-01-02" or "2006-01-02 15:04:05". The calendar is
// treated as proleptic gregorian.
func decodeTimeAxis(raw []float64, units string) ([]time.Time, error) {
	fields := strings.Fields(units)
	if len(fields) < 3 || fields[1] != "since" {
		return nil, errors.Errorf("unsupported time units %q", units)
	}

	var perUnit time.Duration
	switch fields[0] {
	case "days", "day":
		perUnit = 24 * time.Hour
	case "hours", "hour":
		perUnit = time.Hour
	default:
		return nil, errors.Errorf("unsupported time units %q", units)
	}

	epochStr := strings.Join(fields[2:], " ")
	var epoch time.Time
	var err error
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		epoch, err = time.Parse(layout, epochStr)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, errors.Errorf("cannot parse time epoch %q", epochStr)
	}

	out := make([]time.Time, len(raw))
	for i, x := range raw {
		out[i] = epoch.Add(time.Duration(x * float64(perUnit)))
	}
	return out, nil
}

// WriteThresholdField saves a percentile threshold field as a (lat, lon)
// NetCDF variable.
func WriteThresholdField(path string, f *PercentileThresholdField, units string) error {
	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer nc.Close()

	latDim, err := nc.AddDim("lat", uint64(len(f.Lat)))
	if err != nil {
		return err
	}
	lonDim, err := nc.AddDim("lon", uint64(len(f.Lon)))
	if err != nil {
		return err
	}

	latVar, err := nc.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	lonVar, err := nc.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	thrVar, err := nc.AddVar("threshold", netcdf.DOUBLE, []netcdf.Dim{latDim, lonDim})
	if err != nil {
		return err
	}
	if err := thrVar.Attr("units").WriteBytes([]byte(units)); err != nil {
		return err
	}
	if err := thrVar.Attr("percentile").WriteFloat64s([]float64{f.Level}); err != nil {
		return err
	}
	if err := nc.EndDef(); err != nil {
		return err
	}

	if err := latVar.WriteFloat64s(f.Lat); err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(f.Lon); err != nil {
		return err
	}
	return thrVar.WriteFloat64s(f.Data)
}

// WriteSeries saves a 1-D time series (index or exceedance values) as a
// NetCDF variable over a "days since 1850-01-01" time axis.
func WriteSeries(path, varName string, times []time.Time, values []float64) error {
	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer nc.Close()

	timeDim, err := nc.AddDim("time", uint64(len(times)))
	if err != nil {
		return err
	}
	timeVar, err := nc.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	epochUnits := "days since 1850-01-01"
	if err := timeVar.Attr("units").WriteBytes([]byte(epochUnits)); err != nil {
		return err
	}
	dataVar, err := nc.AddVar(varName, netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	if err := nc.EndDef(); err != nil {
		return err
	}

	epoch := time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC)
	rawTime := make([]float64, len(times))
	for i, t := range times {
		rawTime[i] = t.Sub(epoch).Hours() / 24.0
	}
	if err := timeVar.WriteFloat64s(rawTime); err != nil {
		return err
	}
	return dataVar.WriteFloat64s(values)
}
