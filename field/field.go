// Package field implements component F, the field adapter: longitude axis
// normalization, the raw-to-physical scale/offset conversion, and the
// contiguous flat-buffer 3D field owned for the run (spec §3, §4.F).
package field

import (
	"fmt"
	"time"

	"github.com/weathercore/blockwatch/xerr"
)

// G0 is standard gravity, used to convert geopotential to geopotential
// height in metres (spec §3).
const G0 = 9.80665

// RawField is the external contract component F consumes (spec §6): named
// time/latitude/longitude axes, a (time, lat, lon) 16-bit data variable, and
// its scale_factor/add_offset/long_name attributes.
type RawField struct {
	Times          []time.Time
	Lats           []float64
	Lons           []float64
	Data           []int16 // flat, row-major [t][i][j]
	Scale          float64
	Offset         float64
	LongName       string
	IsGeopotential bool // true for the z (500 hPa) pipeline, false for t (850 hPa)
}

// Source is the boundary the core depends on for obtaining a RawField. The
// binary container itself (spec §1) is an external collaborator; blockwatch
// only needs something that can produce this shape (see DESIGN.md for why
// no third-party binary-format parser is bound here).
type Source interface {
	Load() (RawField, error)
}

// Field is the adapter's product: a normalized, scale/offset-aware,
// contiguous 3D scalar field. Field owns its buffer for the run; once
// constructed it is read-only and safe to share across time-step workers
// (spec §5 Shared resources).
type Field struct {
	Times          []time.Time
	Lats           []float64
	Lons           []float64
	data           []int32 // flat [t][i][j], physical scale/offset applied lazily via ToPhysical
	NLat           int
	NLon           int
	Scale          float64
	Offset         float64
	LongName       string
	IsGeopotential bool
}

// New validates raw and builds a Field, normalizing the longitude axis in
// the process (spec §4.F). Returns an error wrapping xerr.ErrFormat if any
// axis is empty, the data length does not match the axes, or the longitude
// axis is not strictly increasing. The latitude axis is not checked for
// monotonicity.
func New(raw RawField) (*Field, error) {
	nt, nlat, nlon := len(raw.Times), len(raw.Lats), len(raw.Lons)
	if nt == 0 || nlat == 0 || nlon == 0 {
		return nil, fmt.Errorf("empty time/lat/lon axis (t=%d lat=%d lon=%d): %w", nt, nlat, nlon, xerr.ErrFormat)
	}
	if len(raw.Data) != nt*nlat*nlon {
		return nil, fmt.Errorf("data length %d does not match axes %d*%d*%d: %w", len(raw.Data), nt, nlat, nlon, xerr.ErrFormat)
	}
	if !monotonic(raw.Lons) {
		return nil, fmt.Errorf("longitude axis is not monotonic: %w", xerr.ErrFormat)
	}

	data := make([]int32, len(raw.Data))
	for idx, v := range raw.Data {
		data[idx] = int32(v)
	}

	f := &Field{
		Times:          append([]time.Time(nil), raw.Times...),
		Lats:           append([]float64(nil), raw.Lats...),
		Lons:           append([]float64(nil), raw.Lons...),
		data:           data,
		NLat:           nlat,
		NLon:           nlon,
		Scale:          raw.Scale,
		Offset:         raw.Offset,
		LongName:       raw.LongName,
		IsGeopotential: raw.IsGeopotential,
	}

	if err := f.normalizeLongitude(); err != nil {
		return nil, err
	}

	return f, nil
}

// monotonic reports whether lons is either strictly increasing or is the
// regular [0, 360) axis the source format stores prior to normalization.
func monotonic(lons []float64) bool {
	for i := 1; i < len(lons); i++ {
		if lons[i] <= lons[i-1] {
			return false
		}
	}
	return true
}

// normalizeLongitude rotates the longitude axis and every time slice's data
// from [0, 360) into [-180, 180) when needed (spec §4.F). The rotation is
// computed entirely into fresh buffers before the Field's fields are
// updated, so a panic mid-computation leaves f untouched (spec §4.F:
// "must not leak partial state if interrupted").
func (f *Field) normalizeLongitude() error {
	if len(f.Lons) == 0 || f.Lons[len(f.Lons)-1] <= 180 {
		return nil // already within [-180, 180], or an empty axis
	}

	half := f.NLon / 2

	newLons := make([]float64, f.NLon)
	for j, lon := range f.Lons {
		if lon >= 180 {
			newLons[j] = lon - 360
		} else {
			newLons[j] = lon
		}
	}
	rotatedLons := make([]float64, f.NLon)
	copy(rotatedLons, newLons[half:])
	copy(rotatedLons[f.NLon-half:], newLons[:half])

	newData := make([]int32, len(f.data))
	for t := 0; t < len(f.Times); t++ {
		for i := 0; i < f.NLat; i++ {
			rowBase := (t*f.NLat+i)*f.NLon
			for j := 0; j < f.NLon; j++ {
				srcJ := (j + half) % f.NLon
				newData[rowBase+j] = f.data[rowBase+srcJ]
			}
		}
	}

	f.Lons = rotatedLons
	f.data = newData
	return nil
}

// Resolution returns the field's angular grid spacing in degrees, used by
// the clusterer to size its adjacency threshold (spec §4.C). The grid is
// assumed regular, so the spacing between the first two latitude samples is
// representative of the whole axis.
func (f *Field) Resolution() float64 {
	if len(f.Lats) < 2 {
		return 1.0
	}
	d := f.Lats[1] - f.Lats[0]
	if d < 0 {
		d = -d
	}
	return d
}

// ToPhysical converts a raw stored integer to its physical value.
func (f *Field) ToPhysical(raw int32) float64 {
	return float64(raw)*f.Scale + f.Offset
}

// ToHeight converts a raw stored geopotential integer to geopotential
// height in metres.
func (f *Field) ToHeight(raw int32) float64 {
	return f.ToPhysical(raw) / G0
}

// Slice is a thin indexed view over one time step's 2D field, replacing the
// original's pointer-fan-over-a-flat-buffer pattern (spec §9 Design Notes)
// with simple offset arithmetic.
type Slice struct {
	buf  []int32
	nlon int
}

// At returns the raw stored value at (i, j). It satisfies geodesy.Grid.
func (s Slice) At(i, j int) int32 {
	return s.buf[i*s.nlon+j]
}

// TimeSlice returns the 2D view for time index t.
func (f *Field) TimeSlice(t int) Slice {
	start := t * f.NLat * f.NLon
	return Slice{buf: f.data[start : start+f.NLat*f.NLon], nlon: f.NLon}
}
