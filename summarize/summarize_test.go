package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/detect"
	"github.com/weathercore/blockwatch/geodesy"
	"github.com/weathercore/blockwatch/model"
)

func TestBuildComputesBoundsAndCentroid(t *testing.T) {
	grid := &detect.Grid{
		SizeX: 1, SizeY: 3,
		Points: []model.SelectedPoint{
			{Point: geodesy.NewPoint(50, 10), Type: model.Max, ClusterID: 0},
			{Point: geodesy.NewPoint(52, 12), Type: model.Max, ClusterID: 0},
			{Point: geodesy.NewPoint(48, 14), Type: model.Max, ClusterID: 0},
		},
	}

	clusters := Build(grid, config.DefaultLatBand(), 1)
	assert.Len(t, clusters, 1)

	c := clusters[0]
	assert.Equal(t, 3, c.NPoints)
	assert.InDelta(t, 52, c.PointN.Lat, 1e-9)
	assert.InDelta(t, 48, c.PointS.Lat, 1e-9)
	assert.InDelta(t, 14, c.PointE.Lon, 1e-9)
	assert.InDelta(t, 10, c.PointW.Lon, 1e-9)
	assert.InDelta(t, 50, c.Centroid.Lat, 1e-9)
	assert.InDelta(t, 12, c.Centroid.Lon, 1e-9)
}

func TestBuildFiltersSizeOneAndLatitudeBand(t *testing.T) {
	grid := &detect.Grid{
		SizeX: 1, SizeY: 4,
		Points: []model.SelectedPoint{
			{Point: geodesy.NewPoint(50, 10), Type: model.Max, ClusterID: 0}, // lone member, cluster 0
			{Point: geodesy.NewPoint(20, 10), Type: model.Min, ClusterID: 1}, // below band, cluster 1
			{Point: geodesy.NewPoint(20, 12), Type: model.Min, ClusterID: 1},
			{Point: geodesy.NewPoint(60, 10), Type: model.Max, ClusterID: 2}, // survives, cluster 2
		},
	}
	// give cluster 2 a second member so it is not size-1
	grid.Points = append(grid.Points, model.SelectedPoint{Point: geodesy.NewPoint(62, 11), Type: model.Max, ClusterID: 2})
	grid.SizeY = 5

	clusters := Build(grid, config.DefaultLatBand(), 3)

	assert.Len(t, clusters, 1)
	assert.Equal(t, 0, clusters[0].ID)
	assert.InDelta(t, 61, clusters[0].Centroid.Lat, 1e-9)
}

func TestBuildRenumbersDensely(t *testing.T) {
	grid := &detect.Grid{
		SizeX: 1, SizeY: 4,
		Points: []model.SelectedPoint{
			{Point: geodesy.NewPoint(50, 10), Type: model.Max, ClusterID: 0},
			{Point: geodesy.NewPoint(51, 11), Type: model.Max, ClusterID: 0},
			{Point: geodesy.NewPoint(45, 10), Type: model.Min, ClusterID: 1}, // size 1, dropped
			{Point: geodesy.NewPoint(60, 10), Type: model.Max, ClusterID: 2},
		},
	}
	grid.Points = append(grid.Points, model.SelectedPoint{Point: geodesy.NewPoint(61, 11), Type: model.Max, ClusterID: 2})
	grid.SizeY = 5

	clusters := Build(grid, config.DefaultLatBand(), 3)
	assert.Len(t, clusters, 2)
	for i, c := range clusters {
		assert.Equal(t, i, c.ID)
		for _, p := range c.Points {
			assert.Equal(t, i, p.ClusterID)
		}
	}
}
