package climdex

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Bilinear interpolation reproduces a field that is linear in lat and lon
// exactly, away from the longitude seam.
func Test_RegridBilinear_LinearField(t *testing.T) {
	srcLat := []float64{-80, -40, 0, 40, 80}
	srcLon := []float64{0, 90, 180, 270}
	times := []time.Time{time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)}

	g := NewTimeSeriesGrid(times, srcLat, srcLon, "K")
	for j, la := range srcLat {
		for i, lo := range srcLon {
			g.Set(0, j, i, 2*la+0.5*lo)
		}
	}

	out, err := g.RegridBilinear([]float64{-20, 20}, []float64{45, 135})
	assert.NoError(t, err)
	assert.InDelta(t, 2*(-20)+0.5*45, out.At(0, 0, 0), 1e-9)
	assert.InDelta(t, 2*(-20)+0.5*135, out.At(0, 0, 1), 1e-9)
	assert.InDelta(t, 2*20+0.5*45, out.At(0, 1, 0), 1e-9)
	assert.InDelta(t, 2*20+0.5*135, out.At(0, 1, 1), 1e-9)
}

func Test_RegridBilinear_SeamWrap(t *testing.T) {
	srcLat := []float64{-10, 10}
	srcLon := []float64{45, 135, 225, 315}
	times := []time.Time{time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)}

	g := NewTimeSeriesGrid(times, srcLat, srcLon, "K")
	for j := range srcLat {
		g.Set(0, j, 0, 1.0)
		g.Set(0, j, 1, 2.0)
		g.Set(0, j, 2, 3.0)
		g.Set(0, j, 3, 4.0)
	}

	// 0 degrees east lies midway between the 315 and 45 degree columns.
	out, err := g.RegridBilinear([]float64{0}, []float64{0})
	assert.NoError(t, err)
	assert.InDelta(t, (4.0+1.0)/2, out.At(0, 0, 0), 1e-9)
}

func Test_RegridBilinear_NaNPropagates(t *testing.T) {
	srcLat := []float64{-10, 10}
	srcLon := []float64{100, 200}
	times := []time.Time{time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)}

	g := NewTimeSeriesGrid(times, srcLat, srcLon, "K")
	g.Set(0, 0, 0, math.NaN())
	g.Set(0, 0, 1, 1.0)
	g.Set(0, 1, 0, 1.0)
	g.Set(0, 1, 1, 1.0)

	out, err := g.RegridBilinear([]float64{0}, []float64{150})
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(out.At(0, 0, 0)))
}

func Test_RegridBilinear_DegenerateAxis(t *testing.T) {
	times := []time.Time{time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)}
	g := NewTimeSeriesGrid(times, []float64{0}, []float64{100, 200}, "K")

	lat1, lon1 := Global1Deg()
	_, err := g.RegridBilinear(lat1, lon1)
	assert.Error(t, err)
	var re *RegridError
	assert.ErrorAs(t, err, &re)
	assert.Equal(t, "lat", re.Axis)
}

func Test_Global1Deg(t *testing.T) {
	lat, lon := Global1Deg()
	assert.Equal(t, 180, len(lat))
	assert.Equal(t, 360, len(lon))
	assert.Equal(t, -89.5, lat[0])
	assert.Equal(t, 89.5, lat[179])
	assert.Equal(t, 0.5, lon[0])
	assert.Equal(t, 359.5, lon[359])
}
