// Package formation implements component E, the formation finder: omega
// and rex block detection over a time step's filtered high/low cluster set
// (spec §4.E).
package formation

import (
	"log"
	"math"

	"github.com/samber/lo"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/model"
)

// Find searches clusters (already filtered and densely renumbered by
// summarize.Build) for omega and rex blocks, emitting at most one formation
// per (high, kind) pair. Missing lows produce no formation for that high,
// silently (spec §4.E Failure semantics); an empty cluster is skipped with
// a log warning rather than aborting the time step.
func Find(clusters []model.Cluster, cfg config.Formation, timeIndex int) []model.Formation {
	highs := lo.Filter(clusters, func(c model.Cluster, _ int) bool { return c.Type == model.Max })
	allLows := lo.Filter(clusters, func(c model.Cluster, _ int) bool { return c.Type == model.Min })

	lows := make([]model.Cluster, 0, len(allLows))
	for _, low := range allLows {
		if low.NPoints == 0 {
			log.Printf("formation: skipping empty low cluster %d at time %d", low.ID, timeIndex)
			continue
		}
		lows = append(lows, low)
	}

	var out []model.Formation
	for _, high := range highs {
		if high.NPoints == 0 {
			log.Printf("formation: skipping empty high cluster %d at time %d", high.ID, timeIndex)
			continue
		}

		if f, ok := findRex(high, lows, cfg, timeIndex); ok {
			out = append(out, f)
		}
		if f, ok := findOmega(high, lows, cfg, timeIndex); ok {
			out = append(out, f)
		}
	}

	return out
}

// findRex looks for a single low roughly south of high, within the
// longitude window, breaking ties by the smallest longitudinal span (spec
// §4.E).
func findRex(high model.Cluster, lows []model.Cluster, cfg config.Formation, timeIndex int) (model.Formation, bool) {
	best := -1
	bestSpan := math.Inf(1)

	for _, low := range lows {
		deltaLat := high.Centroid.Lat - low.Centroid.Lat
		if deltaLat < cfg.RexDeltaLatMin {
			continue
		}
		deltaLon := math.Abs(high.Centroid.Lon - low.Centroid.Lon)
		if deltaLon > cfg.RexDeltaLonMax {
			continue
		}

		if deltaLon < bestSpan {
			bestSpan = deltaLon
			best = low.ID
		}
	}

	if best < 0 {
		return model.Formation{}, false
	}

	return model.Formation{
		TimeIndex: timeIndex,
		HighID:    high.ID,
		Low1ID:    best,
		Low2ID:    -1,
		Kind:      model.Rex,
	}, true
}

// findOmega looks for a southwest/southeast pair of lows flanking high
// (spec §4.E), breaking ties between candidate pairs by the smallest total
// longitudinal span (west low to east low).
func findOmega(high model.Cluster, lows []model.Cluster, cfg config.Formation, timeIndex int) (model.Formation, bool) {
	var west, east []model.Cluster
	for _, low := range lows {
		if high.Centroid.Lat-low.Centroid.Lat < cfg.OmegaDeltaLatMin {
			continue
		}
		westOffset := high.Centroid.Lon - low.Centroid.Lon
		eastOffset := low.Centroid.Lon - high.Centroid.Lon
		if westOffset >= cfg.OmegaFlankLonMin {
			west = append(west, low)
		}
		if eastOffset >= cfg.OmegaFlankLonMin {
			east = append(east, low)
		}
	}

	bestSpan := math.Inf(1)
	bestWest, bestEast := -1, -1

	for _, w := range west {
		for _, e := range east {
			if w.ID == e.ID {
				continue
			}
			width := e.Centroid.Lon - w.Centroid.Lon
			if width < cfg.OmegaMinWidth {
				continue
			}
			if width < bestSpan {
				bestSpan = width
				bestWest, bestEast = w.ID, e.ID
			}
		}
	}

	if bestWest < 0 {
		return model.Formation{}, false
	}

	return model.Formation{
		TimeIndex: timeIndex,
		HighID:    high.ID,
		Low1ID:    bestWest,
		Low2ID:    bestEast,
		Kind:      model.Omega,
	}, true
}
