package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/field"
	"github.com/weathercore/blockwatch/geodesy"
	"github.com/weathercore/blockwatch/model"
	"github.com/weathercore/blockwatch/sink"
	"github.com/weathercore/blockwatch/xerr"
)

// paraboloidField builds a single-time-step 11x11 grid identical to
// scenario S2 in spec §8: f(i,j) = -((i-5)^2 + (j-5)^2), one degree per
// grid step.
func paraboloidField(t *testing.T) *field.Field {
	t.Helper()
	n := 11
	lats := make([]float64, n)
	lons := make([]float64, n)
	for i := 0; i < n; i++ {
		lats[i] = float64(n-1-i) - 5 // decreasing, matching field convention
		lons[i] = float64(i) - 5    // increasing
	}
	data := make([]int16, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -((i-5)*(i-5) + (j-5)*(j-5))
			data[i*n+j] = int16(v)
		}
	}

	raw := field.RawField{
		Times:          []time.Time{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		Lats:           lats,
		Lons:           lons,
		Data:           data,
		Scale:          1,
		Offset:         0,
		LongName:       "geopotential_height",
		IsGeopotential: false,
	}

	f, err := field.New(raw)
	require.NoError(t, err)
	return f
}

func testConfig(t *testing.T, outDir string) config.Config {
	t.Helper()
	cfg, err := config.Build("in.bin", -90, 90, -180, 180, outDir, 2, time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	cfg.Detection.Step = 1
	cfg.Detection.DistKm = 111.195 // ~1 degree
	return cfg
}

func TestRunCommitsOneTimeStep(t *testing.T) {
	f := paraboloidField(t)
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := testConfig(t, outDir)

	sk, err := sink.New(cfg, "geopotential_height", "in")
	require.NoError(t, err)
	defer sk.Close()

	timer := NewTimer()
	require.NoError(t, Run(context.Background(), cfg, f, sk, timer))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

// A step that fails with ErrInternal must abort the commit sequence without
// touching the sink, while an earlier step's already-committed rows must
// survive untouched — the partial-but-consistent behaviour spec.md:144
// requires of a crash mid-run. Run itself drives commitOne this way one step
// at a time (via its internal drain loop), so exercising commitOne directly
// here pins down the defect the old end-of-run commit() could not satisfy:
// a fatal step used to be indistinguishable from "nothing committed yet".
func TestCommitOneAbortsOnInternalErrorWithoutDisturbingEarlierRows(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := testConfig(t, outDir)

	sk, err := sink.New(cfg, "geopotential_height", "in")
	require.NoError(t, err)
	defer sk.Close()

	f := paraboloidField(t)
	timer := NewTimer()

	good := &stepResult{
		clusters: []model.Cluster{
			{
				ID:       0,
				Type:     model.Max,
				Centroid: geodesy.NewPoint(0, 0),
				Points: []model.SelectedPoint{
					{Point: geodesy.NewPoint(0, 0), RawValue: 0, Type: model.Max, ClusterID: 0},
				},
			},
		},
	}
	require.NoError(t, commitOne(sk, f, 0, good, timer))

	bad := &stepResult{err: fmt.Errorf("invariant violated: %w", xerr.ErrInternal)}
	err = commitOne(sk, f, 1, bad, timer)
	assert.ErrorIs(t, err, xerr.ErrInternal)

	path := findFile(t, outDir, "selected")
	lines := readLines(t, path)
	assert.Len(t, lines, 2) // header + step 0's row only; step 1 never wrote anything
}

func TestRunHonorsAlreadyCancelledContext(t *testing.T) {
	f := paraboloidField(t)
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := testConfig(t, outDir)

	sk, err := sink.New(cfg, "geopotential_height", "in")
	require.NoError(t, err)
	defer sk.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	timer := NewTimer()
	err = Run(ctx, cfg, f, sk, timer)
	assert.ErrorIs(t, err, context.Canceled)
}

func findFile(t *testing.T, dir, substr string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".csv" && strings.Contains(e.Name(), substr) {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no file matching %q in %s", substr, dir)
	return ""
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}
