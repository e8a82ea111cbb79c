package etl

import (
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"starload/internal/storage"
	"starload/internal/transformer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the outcome of one job.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// JobResult is the outcome of one job.
type JobResult struct {
	Name      string             `json:"name"`
	File      string             `json:"file"`
	Table     string             `json:"table"`
	Status    Status             `json:"status"`
	Extracted int                `json:"extracted"`
	Transform transformer.Stats  `json:"transform"`
	Load      storage.LoadResult `json:"load"`
	RowCount  int64              `json:"row_count,omitempty"`
	Duration  time.Duration      `json:"duration_ns"`
	Error     string             `json:"error,omitempty"`

	Err error `json:"-"`
}

// Failed reports whether the job ended in error. Skipped jobs are not
// failures.
func (j JobResult) Failed() bool {
	return j.Status == StatusFailed || j.Status == StatusPartial
}

// Report summarizes one run.
type Report struct {
	RunID    uuid.UUID   `json:"run_id"`
	Catalog  string      `json:"catalog"`
	Started  time.Time   `json:"started"`
	Finished time.Time   `json:"finished"`
	Jobs     []JobResult `json:"jobs"`

	// Error is set when the run could not start, e.g. the warehouse was
	// unreachable. Jobs is then empty.
	Error  string `json:"error,omitempty"`
	RunErr error  `json:"-"`
}

// Summary is the per-status tally of a report.
type Summary struct {
	OK, Skipped, Failed int
	Written, Rejected   int64
}

func (r Report) Summary() Summary {
	var s Summary
	for _, j := range r.Jobs {
		switch {
		case j.Failed():
			s.Failed++
		case j.Status == StatusSkipped:
			s.Skipped++
		default:
			s.OK++
		}
		s.Written += j.Load.Written
		s.Rejected += j.Load.Rejected
	}
	return s
}

// Duration is Finished minus Started.
func (r Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Failed reports whether the run could not start, or any job failed or
// only partly loaded.
func (r Report) Failed() bool {
	if r.RunErr != nil || r.Error != "" {
		return true
	}
	for _, j := range r.Jobs {
		if j.Failed() {
			return true
		}
	}
	return false
}

// Err joins the run error and the errors of the failed jobs; nil when
// nothing failed.
func (r Report) Err() error {
	var errs []error
	if r.RunErr != nil {
		errs = append(errs, r.RunErr)
	}
	for _, j := range r.Jobs {
		if j.Failed() && j.Err != nil {
			errs = append(errs, j.Err)
		}
	}
	return errors.Join(errs...)
}

// MarshalIndent renders the report as indented JSON.
func (r Report) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
