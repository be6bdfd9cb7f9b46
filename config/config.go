// Package config builds the single immutable configuration value threaded
// through every pipeline stage, replacing the process-global mutable state
// (FILE_NAME, NLAT, ...) that the original implementation relied on.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/weathercore/blockwatch/xerr"
)

// Detection holds the bearing-poll extremum detector's tunables (spec §4.B).
type Detection struct {
	Step        int     // grid-point stride when subsampling
	DistKm      float64 // probe distance, km
	NBearings   int     // half the total probe count (2*NBearings probes)
	BearingStep float64 // radians between successive bearings
	BearingStart float64 // radians, first bearing offset
	PassPercent float64 // fraction of probes that must agree
}

// DefaultDetection returns the spec's recommended defaults.
func DefaultDetection() Detection {
	return Detection{
		Step:         3,
		DistKm:       300.0,
		NBearings:    8,
		BearingStep:  2 * math.Pi / 16,
		BearingStart: 0,
		PassPercent:  0.75,
	}
}

// Formation holds the omega/rex block geometric thresholds (spec §4.E).
// Defaults are chosen in the range used in synoptic-climatology literature
// for blocking detection (e.g. Tibaldi & Molteni-style latitude separation
// and a longitudinal flank window wide enough to exclude purely zonal
// troughs); the source excerpt does not include the original constants
// (spec §9 Design Notes), so these are explicit, overridable configuration
// rather than a guess presented as ground truth.
type Formation struct {
	RexDeltaLatMin   float64 // degrees the high must lead the low by
	RexDeltaLonMax   float64 // degrees of allowed longitudinal offset
	OmegaDeltaLatMin float64 // degrees each low must trail the high by
	OmegaFlankLonMin float64 // degrees each low must be offset E/W of the high
	OmegaMinWidth    float64 // minimum degrees separating the two lows
}

// DefaultFormation returns the package's chosen defaults.
func DefaultFormation() Formation {
	return Formation{
		RexDeltaLatMin:   10.0,
		RexDeltaLonMax:   20.0,
		OmegaDeltaLatMin: 10.0,
		OmegaFlankLonMin: 15.0,
		OmegaMinWidth:    10.0,
	}
}

// LatBand is the centroid-latitude band clusters must fall strictly inside
// to survive summarizer filtering (spec §4.D invariant).
type LatBand struct {
	Min float64
	Max float64
}

// DefaultLatBand returns the spec's (30, 85) band.
func DefaultLatBand() LatBand {
	return LatBand{Min: 30.0, Max: 85.0}
}

// Config is the single value built from CLI input and passed to every
// stage. It is never mutated after Build returns.
type Config struct {
	InputPath string
	LatMin    float64
	LatMax    float64
	LonMin    float64
	LonMax    float64
	OutDir    string
	NThreads  int

	Detection Detection
	Formation Formation
	LatBand   LatBand

	// TemperatureThresholdC is the open configuration point from spec §9:
	// the temperature pipeline's hard-coded ">28C" extremum gate is exposed
	// here rather than baked into the detector.
	TemperatureThresholdC float64

	// Now is the wall-clock the run started at, used to name output files
	// (spec §6 `<DD-MM-YYYY_HH-MM>UTC`). Threaded explicitly rather than
	// read from time.Now() inside the sink, so a run is reproducible given
	// the same inputs.
	Now time.Time
}

// Build validates positional CLI arguments per spec §6 and constructs a
// Config. All arguments are required together; any violation returns an
// error wrapping xerr.ErrConfig.
func Build(inputPath string, latMin, latMax, lonMin, lonMax float64, outDir string, nThreads int, now time.Time) (Config, error) {
	if len(inputPath) == 0 {
		return Config{}, fmt.Errorf("input path must not be empty: %w", xerr.ErrConfig)
	}
	if len(inputPath) > 255 {
		return Config{}, fmt.Errorf("input path exceeds 255 characters: %w", xerr.ErrConfig)
	}
	if latMin < -90 || latMin > 90 || latMax < -90 || latMax > 90 || latMin > latMax {
		return Config{}, fmt.Errorf("invalid latitude bounds [%v, %v]: %w", latMin, latMax, xerr.ErrConfig)
	}
	if lonMin < -180 || lonMin > 180 || lonMax < -180 || lonMax > 180 || lonMin > lonMax {
		return Config{}, fmt.Errorf("invalid longitude bounds [%v, %v]: %w", lonMin, lonMax, xerr.ErrConfig)
	}
	if nThreads < 1 {
		return Config{}, fmt.Errorf("n-threads must be >= 1, got %d: %w", nThreads, xerr.ErrConfig)
	}
	if len(outDir) == 0 {
		return Config{}, fmt.Errorf("out-dir must not be empty: %w", xerr.ErrConfig)
	}

	return Config{
		InputPath:             inputPath,
		LatMin:                latMin,
		LatMax:                latMax,
		LonMin:                lonMin,
		LonMax:                lonMax,
		OutDir:                outDir,
		NThreads:              nThreads,
		Detection:             DefaultDetection(),
		Formation:             DefaultFormation(),
		LatBand:               DefaultLatBand(),
		TemperatureThresholdC: 28.0,
		Now:                   now,
	}, nil
}
