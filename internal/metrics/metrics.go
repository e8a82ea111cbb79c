// Package metrics records operational metrics for warehouse loads behind a
// pluggable Backend. The default backend is a no-op, so every Record* call is
// safe without configuration. Concrete systems live in subpackages
// (prompush, datadog) and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by this package.
const (
	StepTotal        = "starload_step_total"
	StepDuration     = "starload_step_duration_seconds"
	RowsTotal        = "starload_rows_total"
	BatchesTotal     = "starload_batches_total"
	RunsTotal        = "starload_runs_total"
	RunDuration      = "starload_run_duration_seconds"
	statusSuccess    = "success"
	statusFailure    = "failure"
	statusPartialRun = "partial"
)

// Row kinds passed to RecordRow.
const (
	RowsExtracted         = "extracted"
	RowsTransformed       = "transformed"
	RowsDroppedNegative   = "dropped_negative"
	RowsDroppedDuplicates = "dropped_duplicates"
	RowsCoerced           = "coerced_to_default"
	RowsAttempted         = "attempted"
	RowsWritten           = "written"
	RowsRejected          = "rejected"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b and returns the previous backend. Passing nil keeps
// the existing backend.
func SetBackend(b Backend) Backend {
	mu.Lock()
	defer mu.Unlock()
	prev := backend
	if b != nil {
		backend = b
	}
	return prev
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return statusFailure
	}
	return statusSuccess
}

// RecordStep counts one pipeline step (extract, transform, load, verify) for
// a table and records its latency.
func RecordStep(table, step string, err error, d time.Duration) {
	lbls := Labels{"table": table, "step": step, "status": status(err)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of the given kind for table. Non-positive deltas
// are ignored.
func RecordRow(table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"table": table, "kind": kind})
}

// RecordBatches counts write batches flushed for table.
func RecordBatches(table string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"table": table})
}

// RecordRun counts one chain run. failed jobs out of total decide the status:
// none is success, all is failure, anything else partial.
func RecordRun(total, failed int, d time.Duration) {
	st := statusSuccess
	switch {
	case failed == 0:
	case failed >= total:
		st = statusFailure
	default:
		st = statusPartialRun
	}
	lbls := Labels{"status": st}
	b := current()
	b.IncCounter(RunsTotal, 1, lbls)
	b.ObserveHistogram(RunDuration, d.Seconds(), lbls)
}
