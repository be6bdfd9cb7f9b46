package geodesy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// arrayGrid is a minimal Grid for tests.
type arrayGrid [][]int32

func (g arrayGrid) At(i, j int) int32 { return g[i][j] }

func TestDisplaceIsSelfInverse(t *testing.T) {
	// Invariant 4: displacing by (d, theta) then (d, theta+pi) returns to
	// the origin within floating tolerance.
	origin := NewPoint(10, 20)
	mid := Displace(origin, 400, 0.7)
	back := Displace(mid, 400, 0.7+math.Pi)

	assert.InDelta(t, origin.Lat, back.Lat, 1e-6)
	assert.InDelta(t, origin.Lon, back.Lon, 1e-6)
}

func TestDisplaceNorth(t *testing.T) {
	origin := NewPoint(0, 0)
	dest := Displace(origin, 111.19, 0) // ~1 degree of latitude north
	assert.InDelta(t, 1.0, dest.Lat, 0.01)
	assert.InDelta(t, 0.0, dest.Lon, 0.01)
}

func TestInterpolateExactAtGridNodes(t *testing.T) {
	// Invariant 5: bilinear interpolation is exact at every grid node,
	// boundary nodes included.
	lats := []float64{2, 1, 0, -1, -2}
	lons := []float64{0, 1, 2, 3}
	grid := arrayGrid{
		{10, 11, 12, 13},
		{20, 21, 22, 23},
		{30, 31, 32, 33},
		{40, 41, 42, 43},
		{50, 51, 52, 53},
	}

	for i, lat := range lats {
		for j, lon := range lons {
			v, ok := Interpolate(lats, lons, grid, NewPoint(lat, lon))
			assert.True(t, ok)
			assert.Equal(t, grid[i][j], v)
		}
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	lats := []float64{1, 0}
	lons := []float64{0, 1}
	grid := arrayGrid{
		{0, 10},
		{0, 10},
	}

	v, ok := Interpolate(lats, lons, grid, NewPoint(0.5, 0.5))
	assert.True(t, ok)
	assert.Equal(t, int32(5), v)
}

func TestInterpolateOutOfRange(t *testing.T) {
	lats := []float64{10, 0}
	lons := []float64{0, 10}
	grid := arrayGrid{
		{0, 0},
		{0, 0},
	}

	_, ok := Interpolate(lats, lons, grid, NewPoint(20, 5))
	assert.False(t, ok)

	_, ok = Interpolate(lats, lons, grid, NewPoint(5, 20))
	assert.False(t, ok)
}
