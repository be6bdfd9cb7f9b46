// Package pipeline orchestrates one full run: load timing, the
// per-time-step detect/cluster/summarize/formation chain, and the ordered
// commit of results to the CSV sink (spec §5 Concurrency & Resource Model,
// §7 Error Handling Design).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/alitto/pond"

	"github.com/weathercore/blockwatch/cluster"
	"github.com/weathercore/blockwatch/config"
	"github.com/weathercore/blockwatch/detect"
	"github.com/weathercore/blockwatch/field"
	"github.com/weathercore/blockwatch/formation"
	"github.com/weathercore/blockwatch/model"
	"github.com/weathercore/blockwatch/sink"
	"github.com/weathercore/blockwatch/summarize"
	"github.com/weathercore/blockwatch/xerr"
)

// stepResult is one time step's buffered output, held until every earlier
// time step has committed (spec §5 Ordering guarantees: "rows must be
// buffered per step and committed in time order").
type stepResult struct {
	clusters     []model.Cluster
	formations   []model.Formation
	selectLap    time.Duration
	formationLap time.Duration
	err          error
}

// Run drives the full pipeline across every time step in f. Outer
// parallelism (across time steps) and inner parallelism (component B's
// data-parallel map) share cfg.NThreads roughly in half, so the two levels
// the concurrency model describes do not oversubscribe (spec §5).
//
// Every step's result is committed to sk as soon as it arrives AND every
// earlier step has already committed (spec §5 Ordering guarantees: "rows
// must be buffered per step and committed in time order"), rather than
// waiting for the whole run to finish — so a crash mid-run leaves the sink
// holding a valid, flushed prefix through the last committed step (spec §7
// "each completed time step is flushed before the next begins").
//
// Cancellation is cooperative: ctx is checked before submitting each new
// time step; once cancelled, no further steps are submitted, already
// in-flight steps are allowed to finish and commit, and Run returns
// ctx.Err() once they have (spec §5 Cancellation).
func Run(ctx context.Context, cfg config.Config, f *field.Field, sk *sink.Sink, timer *Timer) error {
	n := len(f.Times)

	outerWorkers := cfg.NThreads / 2
	if outerWorkers < 1 {
		outerWorkers = 1
	}
	innerWorkers := cfg.NThreads - outerWorkers
	if innerWorkers < 1 {
		innerWorkers = 1
	}

	outerPool := pond.New(outerWorkers, 0, pond.MinWorkers(outerWorkers))
	defer outerPool.StopAndWait()
	innerPool := pond.New(innerWorkers, 0, pond.MinWorkers(innerWorkers))
	defer innerPool.StopAndWait()

	requireSameType := f.IsGeopotential
	res := f.Resolution()

	results := make([]*stepResult, n)
	nextToCommit := 0
	var fatalErr error
	var mu sync.Mutex
	var wg sync.WaitGroup

	// drain commits every contiguous run of completed steps starting at
	// nextToCommit; it is called after every step finishes, so whichever
	// goroutine happens to complete the longest ready prefix performs the
	// commit. mu serializes both the results slice and the commit itself,
	// so rows are never written out of time order.
	drain := func() {
		mu.Lock()
		defer mu.Unlock()
		for fatalErr == nil && nextToCommit < n && results[nextToCommit] != nil {
			if err := commitOne(sk, f, nextToCommit, results[nextToCommit], timer); err != nil {
				fatalErr = err
				break
			}
			nextToCommit++
		}
	}

	cancelled := false
	for t := 0; t < n; t++ {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		mu.Lock()
		stop := cancelled || fatalErr != nil
		mu.Unlock()
		if stop {
			log.Printf("pipeline: stopping submission at time step %d", t)
			break
		}

		t := t
		wg.Add(1)
		outerPool.Submit(func() {
			defer wg.Done()
			r := runStep(f, t, cfg, innerPool, requireSameType, res)
			mu.Lock()
			results[t] = r
			mu.Unlock()
			drain()
		})
	}
	wg.Wait()
	drain()

	if fatalErr != nil {
		return fatalErr
	}
	if cancelled {
		return ctx.Err()
	}
	return nil
}

// runStep runs one time step's detect/cluster/summarize/formation chain.
// A panic from any stage is treated as an unreachable invariant violation
// (spec §7 InternalError) rather than propagated as a raw panic, so the
// committer can return it, carrying the offending time index, and abort
// cleanly.
func runStep(f *field.Field, t int, cfg config.Config, innerPool *pond.WorkerPool, requireSameType bool, res float64) (result *stepResult) {
	result = &stepResult{}
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("time step %d: invariant violated: %v: %w", t, r, xerr.ErrInternal)
		}
	}()

	selectStart := time.Now()
	grid := detect.Run(f, t, cfg, innerPool)
	nClustersBefore := cluster.Run(&grid, res, cfg.Detection.Step, requireSameType)
	clusters := summarize.Build(&grid, cfg.LatBand, nClustersBefore)
	result.selectLap = time.Since(selectStart)

	formationStart := time.Now()
	formations := formation.Find(clusters, cfg.Formation, t)
	result.formationLap = time.Since(formationStart)

	result.clusters = clusters
	result.formations = formations
	return result
}

// commitOne writes one completed step's rows to sk (spec §5 Ordering
// guarantees: "rows must be buffered per step and committed in time
// order"), applying the per-kind error propagation rules from spec §7:
// InternalError aborts the run, everything else observed here (IoError from
// the sink) aborts too since CSV writes are the process's only output. A
// step whose own runStep failed with a non-internal error is logged and
// skipped rather than treated as a run failure.
func commitOne(sk *sink.Sink, f *field.Field, t int, r *stepResult, timer *Timer) error {
	if r.err != nil {
		if errors.Is(r.err, xerr.ErrInternal) {
			return r.err
		}
		log.Printf("pipeline: time step %d skipped: %v", t, r.err)
		return nil
	}

	if err := sk.WriteSelected(t, r.clusters, f); err != nil {
		return err
	}
	if err := sk.WriteFormations(r.formations); err != nil {
		return err
	}
	if err := sk.WriteSpeed("1", t, r.selectLap); err != nil {
		return err
	}
	if err := sk.WriteSpeed("2", t, r.formationLap); err != nil {
		return err
	}
	timer.Add(r.selectLap + r.formationLap)
	return nil
}
