// Package sink implements the CSV output sink: the four per-run files
// named in spec §6 (selected, formations, speed, log), each guarded by its
// own mutex so appends from concurrent time steps serialize per file
// without blocking each other (spec §5 Suspension/blocking).
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/field"
	"github.com/weathercore/blockwatch/model"
	"github.com/weathercore/blockwatch/xerr"
)

const timestampLayout = "02-01-2006_15-04"

// file wraps one underlying CSV file with the mutex that serializes writers
// to it and the csv.Writer flushed after every row, grounded on
// banshee-data-velocity.report's CSVWriter (internal/lidar/sweep/output.go).
type file struct {
	mu     sync.Mutex
	f      *os.File
	w      *csv.Writer
	header []string
}

func newFile(path string, header []string) (*file, error) {
	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, xerr.ErrIO)
	}

	sf := &file{f: f, w: csv.NewWriter(f), header: header}
	if !existed {
		if err := sf.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header %s: %w", path, xerr.ErrIO)
		}
		sf.w.Flush()
		if err := sf.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush header %s: %w", path, xerr.ErrIO)
		}
	}

	return sf, nil
}

func (f *file) writeRow(row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", xerr.ErrIO)
	}
	f.w.Flush()
	if err := f.w.Error(); err != nil {
		return fmt.Errorf("flush row: %w", xerr.ErrIO)
	}
	return nil
}

func (f *file) Close() error {
	return f.f.Close()
}

// Sink is the run's four-file CSV output target (spec §6).
type Sink struct {
	selected   *file
	formations *file
	speed      *file
	log        *file
}

// New creates (or reopens) the four output files under cfg.OutDir, creating
// the directory if it does not already exist, and writing a header row to
// each file freshly created (spec §6, §9 Supplemented Features).
func New(cfg config.Config, longName, inputBasename string) (*Sink, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create out-dir %s: %w", cfg.OutDir, xerr.ErrIO)
	}

	stamp := cfg.Now.Format(timestampLayout) + "UTC"

	selectedPath := filepath.Join(cfg.OutDir, fmt.Sprintf("%s_selected_%s_%s.csv", longName, inputBasename, stamp))
	formationsPath := filepath.Join(cfg.OutDir, fmt.Sprintf("%s_formations_%s_%s.csv", longName, inputBasename, stamp))
	speedPath := filepath.Join(cfg.OutDir, fmt.Sprintf("speed_%s_%s.csv", inputBasename, stamp))
	logPath := filepath.Join(cfg.OutDir, fmt.Sprintf("log_%s_%s.csv", inputBasename, stamp))

	selected, err := newFile(selectedPath, []string{"time", "latitude", "longitude", "z", "type", "cluster", "centroid_lat", "centroid_lon"})
	if err != nil {
		return nil, err
	}
	formations, err := newFile(formationsPath, []string{"time", "max_id", "min1_id", "min2_id", "type"})
	if err != nil {
		return nil, err
	}
	speed, err := newFile(speedPath, []string{"part", "instant", "time_elapsed"})
	if err != nil {
		return nil, err
	}
	logF, err := newFile(logPath, []string{"message"})
	if err != nil {
		return nil, err
	}

	return &Sink{selected: selected, formations: formations, speed: speed, log: logF}, nil
}

// WriteSelected appends one row per selected MAX/MIN point in clusters to
// the selected CSV, with the cluster's centroid repeated on every member
// row (spec §6 schema). The "z" column is the physical value
// (spec §4.F `to_physical`), converted to geopotential height for a
// geopotential field (spec §4.F `to_height`), not the raw stored integer.
func (s *Sink) WriteSelected(timeIndex int, clusters []model.Cluster, f *field.Field) error {
	for _, c := range clusters {
		for _, p := range c.Points {
			z := f.ToPhysical(p.RawValue)
			if f.IsGeopotential {
				z = f.ToHeight(p.RawValue)
			}

			row := []string{
				fmt.Sprintf("%d", timeIndex),
				fmt.Sprintf("%.6f", p.Point.Lat),
				fmt.Sprintf("%.6f", p.Point.Lon),
				fmt.Sprintf("%.6f", z),
				p.Type.String(),
				fmt.Sprintf("%d", p.ClusterID),
				fmt.Sprintf("%.6f", c.Centroid.Lat),
				fmt.Sprintf("%.6f", c.Centroid.Lon),
			}
			if err := s.selected.writeRow(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFormations appends one row per detected formation (spec §6 schema).
func (s *Sink) WriteFormations(formations []model.Formation) error {
	for _, f := range formations {
		row := []string{
			fmt.Sprintf("%d", f.TimeIndex),
			fmt.Sprintf("%d", f.HighID),
			fmt.Sprintf("%d", f.Low1ID),
			fmt.Sprintf("%d", f.Low2ID),
			f.Kind.String(),
		}
		if err := s.formations.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSpeed appends one timing row (spec §6 schema, §9 Supplemented
// Features). part is one of "init", "1", "2", "total"; instant is the time
// step index the measurement belongs to, or -1 for the run-wide "init" and
// "total" rows, matching the original's speed_...csv convention.
func (s *Sink) WriteSpeed(part string, instant int, elapsed time.Duration) error {
	row := []string{part, fmt.Sprintf("%d", instant), fmt.Sprintf("%.6f", elapsed.Seconds())}
	return s.speed.writeRow(row)
}

// Log appends a free-text message row to the log CSV (spec §6 schema).
func (s *Sink) Log(message string) error {
	return s.log.writeRow([]string{message})
}

// Close closes all four underlying files.
func (s *Sink) Close() error {
	var firstErr error
	for _, f := range []*file{s.selected, s.formations, s.speed, s.log} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
