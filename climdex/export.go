package climdex

import (
	"bytes"
	"strconv"
)

//--------------------------------------
// Tabular export for downstream plotting
//--------------------------------------

// ToCSV writes one row per aggregation period: date,days.
func (s *ExceedanceSeries) ToCSV(buf *bytes.Buffer) {
	buf.WriteString("date,days\n")
	for i := range s.Time {
		buf.WriteString(s.Time[i].Format("2006-01-02"))
		buf.WriteString(",")
		buf.WriteString(strconv.FormatFloat(s.Days[i], 'f', -1, 64))
		buf.WriteString("\n")
	}
}

// ToCSV writes one row per month: date,index.
func (s *ClimateIndexSeries) ToCSV(buf *bytes.Buffer) {
	buf.WriteString("date,index\n")
	for i := range s.Time {
		buf.WriteString(s.Time[i].Format("2006-01-02"))
		buf.WriteString(",")
		buf.WriteString(strconv.FormatFloat(s.Value[i], 'f', -1, 64))
		buf.WriteString("\n")
	}
}

// ToCSV writes one row per grid cell: lat,lon,threshold.
func (f *PercentileThresholdField) ToCSV(buf *bytes.Buffer) {
	buf.WriteString("lat,lon,threshold\n")
	for j := range f.Lat {
		for i := range f.Lon {
			buf.WriteString(strconv.FormatFloat(f.Lat[j], 'f', -1, 64))
			buf.WriteString(",")
			buf.WriteString(strconv.FormatFloat(f.Lon[i], 'f', -1, 64))
			buf.WriteString(",")
			buf.WriteString(strconv.FormatFloat(f.At(j, i), 'f', -1, 64))
			buf.WriteString("\n")
		}
	}
}
