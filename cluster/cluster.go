// Package cluster implements component C, the spatial clusterer: 8-neighbor
// connected-component grouping of selected MAX/MIN points with a
// per-expansion-step distance threshold (spec §4.C).
//
// The original recursive neighbor walk can blow the stack on a large
// connected region; this implementation uses an explicit work list instead
// (spec §9 Design Notes).
package cluster

import (
	"math"

	"github.com/weathercore/blockwatch/detect"
	"github.com/weathercore/blockwatch/model"
)

// Run assigns a dense cluster ID, starting at 0, to every MAX/MIN point in
// grid, grouping 8-neighbors whose coordinates are within eps of the
// current frontier point (not the cluster seed). res is the field's
// angular resolution in degrees and step is the detector's subsampling
// stride, so eps = res*step per spec §4.C.
//
// requireSameType gates rule (d) from spec §4.C: true for the geopotential
// pipeline (a neighbor only joins a same-typed cluster), false for the
// temperature pipeline (any threshold-passing point joins regardless of
// type, since that pipeline has no MAX/MIN distinction to preserve).
func Run(grid *detect.Grid, res float64, step int, requireSameType bool) int {
	eps := res * float64(step)
	nextID := 0

	for i := 0; i < grid.SizeX; i++ {
		for j := 0; j < grid.SizeY; j++ {
			p := grid.At(i, j)
			if p.Type == model.None || p.ClusterID != model.Unassigned {
				continue
			}
			p.ClusterID = nextID
			expand(grid, i, j, nextID, eps, requireSameType)
			nextID++
		}
	}

	return nextID
}

// expand grows cluster id from seed (i, j) using an explicit work list
// (stack) rather than recursion.
func expand(grid *detect.Grid, i, j, id int, eps float64, requireSameType bool) {
	type cell struct{ i, j int }
	work := []cell{{i, j}}

	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		frontier := grid.At(cur.i, cur.j)

		for dx := -1; dx <= 1; dx++ {
			x := cur.i + dx
			if x < 0 || x >= grid.SizeX {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				y := cur.j + dy
				if y < 0 || y >= grid.SizeY {
					continue
				}

				neighbor := grid.At(x, y)
				if neighbor.ClusterID != model.Unassigned || neighbor.Type == model.None {
					continue
				}
				if requireSameType && neighbor.Type != frontier.Type {
					continue
				}
				if math.Abs(neighbor.Point.Lat-frontier.Point.Lat) > eps {
					continue
				}
				if math.Abs(neighbor.Point.Lon-frontier.Point.Lon) > eps {
					continue
				}

				neighbor.ClusterID = id
				work = append(work, cell{x, y})
			}
		}
	}
}
