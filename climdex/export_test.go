package climdex

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ExceedanceSeries_ToCSV(t *testing.T) {
	s := &ExceedanceSeries{
		Level: 99,
		Time: []time.Time{
			time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Days: []float64{3.5, 4},
	}

	var buf bytes.Buffer
	s.ToCSV(&buf)
	assert.Equal(t, "date,days\n2015-01-01,3.5\n2016-01-01,4\n", buf.String())
}

func Test_ClimateIndexSeries_ToCSV(t *testing.T) {
	s := &ClimateIndexSeries{
		Time: []time.Time{
			time.Date(1981, 1, 15, 0, 0, 0, 0, time.UTC),
			time.Date(1981, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		Value: []float64{-0.25, 1.125},
	}

	var buf bytes.Buffer
	s.ToCSV(&buf)
	assert.Equal(t, "date,index\n1981-01-15,-0.25\n1981-02-15,1.125\n", buf.String())
}

func Test_ThresholdField_ToCSV(t *testing.T) {
	f := &PercentileThresholdField{
		Lat:   []float64{-0.5, 0.5},
		Lon:   []float64{120.5},
		Level: 99,
		Data:  []float64{10, 20},
	}

	var buf bytes.Buffer
	f.ToCSV(&buf)
	assert.Equal(t, "lat,lon,threshold\n-0.5,120.5,10\n0.5,120.5,20\n", buf.String())
}

func Test_LevelTag(t *testing.T) {
	assert.Equal(t, "99", levelTag(99))
	assert.Equal(t, "99_9", levelTag(99.9))
}
