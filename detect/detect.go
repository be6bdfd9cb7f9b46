// Package detect implements component B, the bearing-poll extremum
// detector (spec §4.B). Run performs a data-parallel map over the
// subsampled (lat, lon) grid using a worker pool, per the concurrency
// model in spec §5.
package detect

import (
	"math"
	"sync"

	"github.com/alitto/pond"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/field"
	"github.com/weathercore/blockwatch/geodesy"
	"github.com/weathercore/blockwatch/model"
)

// Grid is the subsampled (size_x, size_y) array of selected points for one
// time step, in row-major order.
type Grid struct {
	Points []model.SelectedPoint
	SizeX  int
	SizeY  int
}

// At returns the selected point at subsampled row i, column j.
func (g *Grid) At(i, j int) *model.SelectedPoint {
	return &g.Points[i*g.SizeY+j]
}

// Run classifies every subsampled grid point for time index t as MAX, MIN,
// or NONE, restricted to the [latMin, latMax] x [lonMin, lonMax] bounding
// box the CLI was given (points outside the box are kept in the grid, with
// type NONE, so cluster/summarize never see them — a deliberate deviation
// from the original's LAT_LIM_MIN-only sizing, recorded in DESIGN.md).
//
// The inner loop is an embarrassingly parallel map: each cell reads only
// the read-only field and axes and writes to a unique slot of the output
// grid, so it is submitted to a worker pool with no further synchronization
// (spec §5).
func Run(f *field.Field, t int, cfg config.Config, pool *pond.WorkerPool) Grid {
	det := cfg.Detection
	slice := f.TimeSlice(t)

	sizeX := (len(f.Lats) + det.Step - 1) / det.Step
	sizeY := (len(f.Lons) + det.Step - 1) / det.Step

	grid := Grid{
		Points: make([]model.SelectedPoint, sizeX*sizeY),
		SizeX:  sizeX,
		SizeY:  sizeY,
	}

	var wg sync.WaitGroup
	for i := 0; i < sizeX; i++ {
		i := i
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			latIdx := i * det.Step
			for j := 0; j < sizeY; j++ {
				lonIdx := j * det.Step
				grid.Points[i*sizeY+j] = classify(f, slice, latIdx, lonIdx, i, j, det, cfg)
			}
		})
	}
	wg.Wait()

	return grid
}

func classify(f *field.Field, slice field.Slice, latIdx, lonIdx, i, j int, det config.Detection, cfg config.Config) model.SelectedPoint {
	lat := f.Lats[latIdx]
	lon := f.Lons[lonIdx]
	center := geodesy.NewPoint(lat, lon)
	raw := slice.At(latIdx, lonIdx)

	sp := model.SelectedPoint{
		Point:     center,
		RawValue:  raw,
		Type:      model.None,
		ClusterID: model.Unassigned,
		GridI:     i,
		GridJ:     j,
	}

	if lat < cfg.LatMin || lat > cfg.LatMax || lon < cfg.LonMin || lon > cfg.LonMax {
		return sp
	}

	centerPhysical := f.ToPhysical(raw)
	if f.IsGeopotential {
		centerPhysical = f.ToHeight(raw)
	}

	ge, le := 0, 0
	totalBearings := det.NBearings * 2
	for b := 0; b < totalBearings; b++ {
		bearing := det.BearingStart + float64(b)*det.BearingStep
		probePoint := geodesy.Displace(center, det.DistKm, bearing)

		probeRaw, ok := geodesy.Interpolate(f.Lats, f.Lons, slice, probePoint)
		if !ok {
			// Out-of-range probes are non-disqualifying for maxima, per
			// the source's observable behavior (spec §4.B).
			ge++
			continue
		}

		probePhysical := f.ToPhysical(probeRaw)
		if f.IsGeopotential {
			probePhysical = f.ToHeight(probeRaw)
		}

		if centerPhysical >= probePhysical {
			ge++
		}
		if centerPhysical <= probePhysical {
			le++
		}
	}

	threshold := int(math.Ceil(float64(totalBearings) * det.PassPercent))
	switch {
	case ge >= threshold:
		sp.Type = model.Max
	case le >= threshold:
		sp.Type = model.Min
	}

	return sp
}
