// Package model holds the data types shared between the detection,
// clustering, summarization and formation-finding stages (spec §3).
package model

import "github.com/weathercore/blockwatch/geodesy"

// PointType classifies a selected grid point.
type PointType int

const (
	None PointType = iota
	Max
	Min
)

// String renders the type the way the CSV sink expects it (spec §6).
func (t PointType) String() string {
	switch t {
	case Max:
		return "MAX"
	case Min:
		return "MIN"
	default:
		return "NONE"
	}
}

// Unassigned is the cluster_id sentinel for a point not yet grouped, or
// never eligible for grouping (spec §3).
const Unassigned = -1

// SelectedPoint is produced by the extremum detector (component B) and
// mutated only by the clusterer (component C), which assigns ClusterID.
type SelectedPoint struct {
	Point     geodesy.Point
	RawValue  int32
	Type      PointType
	ClusterID int

	// GridI, GridJ are the point's position in the subsampled detection
	// grid, used by the clusterer's 8-neighbor adjacency walk.
	GridI, GridJ int
}

// Cluster is a connected region of same-typed selected points, created by
// the summarizer (component D) and immutable thereafter.
type Cluster struct {
	ID       int
	Points   []SelectedPoint
	PointN   geodesy.Point // max latitude member
	PointS   geodesy.Point // min latitude member
	PointE   geodesy.Point // max longitude member
	PointW   geodesy.Point // min longitude member
	Centroid geodesy.Point
	NPoints  int
	Type     PointType
}

// FormationKind distinguishes the two multi-center arrangements component
// E looks for (spec §3, §4.E).
type FormationKind int

const (
	Omega FormationKind = iota
	Rex
)

// String renders the kind the way the CSV sink expects it (spec §6).
func (k FormationKind) String() string {
	if k == Omega {
		return "OMEGA"
	}
	return "REX"
}

// Formation is one detected multi-center arrangement for a single time
// step.
type Formation struct {
	TimeIndex int
	HighID    int
	Low1ID    int
	Low2ID    int // -1 for a rex block, which has only one low
	Kind      FormationKind
}
