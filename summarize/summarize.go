// Package summarize implements component D, the cluster summarizer:
// bounding points, centroid, size-based and latitude-band filtering, and
// dense cluster ID renumbering (spec §4.D).
package summarize

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/detect"
	"github.com/weathercore/blockwatch/geodesy"
	"github.com/weathercore/blockwatch/model"
)

// Build collects every assigned point in grid into its cluster, computes
// bounding points and centroid, and discards clusters whose centroid
// latitude falls outside band or whose size is 1 (spec §4.D). Survivors are
// densely renumbered from 0, and the new ID is propagated back into every
// member's ClusterID so the selected-points CSV and the cluster table
// agree (spec §8 invariant 3).
func Build(grid *detect.Grid, band config.LatBand, nClustersBefore int) []model.Cluster {
	buckets := make([][]model.SelectedPoint, nClustersBefore)
	for i := 0; i < grid.SizeX; i++ {
		for j := 0; j < grid.SizeY; j++ {
			p := *grid.At(i, j)
			if p.Type == model.None {
				continue
			}
			buckets[p.ClusterID] = append(buckets[p.ClusterID], p)
		}
	}

	raw := make([]model.Cluster, 0, nClustersBefore)
	for id, members := range buckets {
		if len(members) == 0 {
			continue
		}
		raw = append(raw, summarizeOne(id, members))
	}

	survivors := lo.Filter(raw, func(c model.Cluster, _ int) bool {
		return c.Centroid.Lat > band.Min && c.Centroid.Lat < band.Max && c.NPoints != 1
	})

	for newID := range survivors {
		survivors[newID].ID = newID
		for i := range survivors[newID].Points {
			survivors[newID].Points[i].ClusterID = newID
		}
	}

	return survivors
}

// summarizeOne computes the bounding points and centroid for one cluster's
// members. Ties in the bounding search are broken by scan (member) order,
// matching the original's left-to-right iteration.
func summarizeOne(id int, members []model.SelectedPoint) model.Cluster {
	n := lo.MaxBy(members, func(item, max model.SelectedPoint) bool { return item.Point.Lat > max.Point.Lat })
	s := lo.MinBy(members, func(item, min model.SelectedPoint) bool { return item.Point.Lat < min.Point.Lat })
	e := lo.MaxBy(members, func(item, max model.SelectedPoint) bool { return item.Point.Lon > max.Point.Lon })
	w := lo.MinBy(members, func(item, min model.SelectedPoint) bool { return item.Point.Lon < min.Point.Lon })

	lats := lo.Map(members, func(m model.SelectedPoint, _ int) float64 { return m.Point.Lat })
	lons := lo.Map(members, func(m model.SelectedPoint, _ int) float64 { return m.Point.Lon })

	centroidLat := stat.Mean(lats, nil)
	// Longitudes are not wrapped: the domain of interest excludes the
	// antimeridian (spec §4.D), so a plain arithmetic mean is correct.
	centroidLon := stat.Mean(lons, nil)

	return model.Cluster{
		ID:       id,
		Points:   members,
		PointN:   n.Point,
		PointS:   s.Point,
		PointE:   e.Point,
		PointW:   w.Point,
		Centroid: geodesy.NewPoint(centroidLat, centroidLon),
		NPoints:  len(members),
		Type:     members[0].Type,
	}
}
