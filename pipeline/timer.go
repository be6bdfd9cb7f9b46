package pipeline

import "time"

// Timer is a restartable stopwatch mirroring the C original's
// t_ini = omp_get_wtime() / t_fin = omp_get_wtime() pairing around each
// phase, used to populate the speed CSV's four rows: "init", "1"
// (selection, per time step), "2" (formation search, per time step), and
// "total" (spec §9 Supplemented Features — the distilled spec defines the
// speed schema but never says who writes to it).
type Timer struct {
	start time.Time
	total time.Duration
}

// NewTimer returns a Timer with its clock started.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Lap returns the duration since the last Reset (or since NewTimer if Reset
// was never called) and accumulates it into the running total.
func (t *Timer) Lap() time.Duration {
	d := time.Since(t.start)
	t.total += d
	return d
}

// Reset restarts the clock for the next phase, without touching the
// accumulated total.
func (t *Timer) Reset() {
	t.start = time.Now()
}

// Add accumulates an externally-measured duration into the running total,
// for phases (like per-time-step selection and formation search) that are
// timed individually rather than via Lap.
func (t *Timer) Add(d time.Duration) {
	t.total += d
}

// Total returns the sum of every duration returned by Lap or passed to Add
// so far.
func (t *Timer) Total() time.Duration {
	return t.total
}
