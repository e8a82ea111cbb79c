// Package etl runs the extract, transform and load chain for a warehouse
// catalog: each job reads one CSV, applies the destination table's rule set
// and appends the result.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"starload/internal/datasource"
	"starload/internal/metrics"
	"starload/internal/parser/csv"
	"starload/internal/schema"
	"starload/internal/storage"
	"starload/internal/transformer"
)

// Job binds one input file to a destination table.
type Job struct {
	Name      string            `json:"name,omitempty"`
	File      string            `json:"file"`
	Table     string            `json:"table"`
	HeaderMap map[string]string `json:"header_map,omitempty"`

	// Dedup, when set, replaces the table's duplicate-key policy.
	Dedup schema.DedupPolicy `json:"dedup,omitempty"`
}

func (j Job) label() string {
	if j.Name != "" {
		return j.Name
	}
	return j.Table
}

// JobsFromCatalog returns the catalog's default chain.
func JobsFromCatalog(c schema.Catalog) []Job {
	out := make([]Job, len(c.Jobs))
	for i, j := range c.Jobs {
		out[i] = Job{File: j.File, Table: j.Table}
	}
	return out
}

// OpenFunc opens the warehouse for one run.
type OpenFunc func(ctx context.Context) (storage.Repository, error)

// OpenConfig returns an OpenFunc backed by the storage registry.
func OpenConfig(cfg storage.Config) OpenFunc {
	return func(ctx context.Context) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}
}

// Runner executes job chains against one catalog.
type Runner struct {
	Catalog schema.Catalog
	Open    OpenFunc

	// DataDir is prepended to relative job files. It may be a URL prefix.
	DataDir string
	CSV     csv.Options

	BatchSize         int
	ReferentialChecks bool
	AutoCreate        bool
	Verify            bool

	Extractor Extractor
	Logger    logrus.FieldLogger
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

// RunDefault runs the catalog's default chain.
func (r *Runner) RunDefault(ctx context.Context) (Report, error) {
	return r.Run(ctx, JobsFromCatalog(r.Catalog))
}

// Run executes jobs in order over a single repository connection.
//
// Job failures are logged, recorded on the report and do not stop the
// chain; Report.Failed and Report.Err expose them. The returned error is
// reserved for failures that prevent the run itself, such as ErrConnection.
// A canceled ctx marks the remaining jobs failed.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Report, error) {
	rep := Report{
		RunID:   uuid.New(),
		Catalog: r.Catalog.Name,
		Started: time.Now(),
	}
	log := r.logger().WithFields(logrus.Fields{
		"run_id":  rep.RunID.String(),
		"catalog": rep.Catalog,
	})
	if r.Open == nil {
		return rep.abort(errors.Wrap(ErrConnection, "no repository configured"))
	}

	repo, err := r.Open(ctx)
	if err != nil {
		log.WithError(err).Error("run: cannot open warehouse")
		metrics.RecordRun(len(jobs), len(jobs), time.Since(rep.Started))
		return rep.abort(errors.Wrapf(ErrConnection, "%v", err))
	}
	defer repo.Close()

	log.WithField("jobs", len(jobs)).Info("run: starting")
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			rep.Jobs = append(rep.Jobs, JobResult{
				Name: j.label(), File: j.File, Table: j.Table,
				Status: StatusFailed, Err: err, Error: err.Error(),
			})
			continue
		}
		rep.Jobs = append(rep.Jobs, r.runJob(ctx, repo, j, log))
	}

	rep.Finished = time.Now()
	s := rep.Summary()
	metrics.RecordRun(len(jobs), s.Failed, rep.Duration())
	log.WithFields(logrus.Fields{
		"ok":      s.OK,
		"skipped": s.Skipped,
		"failed":  s.Failed,
		"written": s.Written,
	}).Info("run: finished")
	return rep, nil
}

// abort records a run-level failure on rep and returns both.
func (rep Report) abort(err error) (Report, error) {
	rep.Finished = time.Now()
	rep.RunErr = err
	rep.Error = err.Error()
	return rep, err
}

func (r *Runner) runJob(ctx context.Context, repo storage.Repository, j Job, runLog logrus.FieldLogger) (res JobResult) {
	start := time.Now()
	res = JobResult{Name: j.label(), File: j.File, Table: j.Table, Status: StatusOK}
	log := runLog.WithFields(logrus.Fields{"job": res.Name, "table": j.Table})

	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
	}()

	fail := func(step string, err error) JobResult {
		res.Status = StatusFailed
		res.Err = errors.Wrapf(err, "%s: %s", res.Name, step)
		log.WithError(err).WithField("step", step).Error("job: failed, continuing with next job")
		return res
	}

	tbl, ok := r.Catalog.Table(j.Table)
	if !ok {
		return fail("resolve", fmt.Errorf("catalog %s has no table %s", r.Catalog.Name, j.Table))
	}
	if j.Dedup != "" {
		if !j.Dedup.Valid() {
			return fail("resolve", fmt.Errorf("unknown dedup policy %q", j.Dedup))
		}
		tbl.Dedup = j.Dedup
	}

	// extract
	loc := datasource.Join(r.DataDir, j.File)
	opt := r.CSV
	if len(j.HeaderMap) > 0 {
		opt.HeaderMap = j.HeaderMap
	}
	ex := r.Extractor
	if ex.Logger == nil {
		ex.Logger = log
	}
	t0 := time.Now()
	data, err := ex.Extract(ctx, loc, opt)
	metrics.RecordStep(tbl.Name, "extract", err, time.Since(t0))
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			res.Status = StatusSkipped
			res.Err = err
			log.WithField("file", loc).Warn("job: input not found, skipping")
			return res
		}
		return fail("extract", err)
	}
	res.Extracted = data.Len()
	metrics.RecordRow(tbl.Name, metrics.RowsExtracted, int64(data.Len()))

	// transform
	t0 = time.Now()
	out, st := transformer.ForTable(tbl).Transform(data)
	metrics.RecordStep(tbl.Name, "transform", nil, time.Since(t0))
	res.Transform = st
	metrics.RecordRow(tbl.Name, metrics.RowsTransformed, int64(st.Output))
	metrics.RecordRow(tbl.Name, metrics.RowsCoerced, int64(st.Coerced))
	metrics.RecordRow(tbl.Name, metrics.RowsDroppedNegative, int64(st.DroppedNegative))
	metrics.RecordRow(tbl.Name, metrics.RowsDroppedDuplicates, int64(st.DroppedDuplicates))
	log.WithFields(logrus.Fields{
		"input":              st.Input,
		"output":             st.Output,
		"dropped_negative":   st.DroppedNegative,
		"dropped_duplicates": st.DroppedDuplicates,
	}).Info("transform: done")

	if r.AutoCreate {
		if err := storage.EnsureTable(ctx, repo, tbl); err != nil {
			return fail("ensure table", err)
		}
	}

	// load
	req := storage.LoadRequest{
		Table:     tbl.Name,
		Columns:   tbl.ColumnNames(),
		Data:      out,
		BatchSize: r.BatchSize,
		Logger:    log,
	}
	if r.ReferentialChecks {
		req.References = tbl.References
	}
	t0 = time.Now()
	lr, err := storage.Load(ctx, repo, req)
	metrics.RecordStep(tbl.Name, "load", err, time.Since(t0))
	res.Load = lr
	metrics.RecordRow(tbl.Name, metrics.RowsAttempted, lr.Attempted)
	metrics.RecordRow(tbl.Name, metrics.RowsWritten, lr.Written)
	metrics.RecordRow(tbl.Name, metrics.RowsRejected, lr.Rejected)
	if err != nil {
		res = fail("load", err)
		if lr.Partial() {
			res.Status = StatusPartial
		}
		return res
	}

	// verify
	if r.Verify {
		t0 = time.Now()
		n, err := storage.CountRows(ctx, repo, tbl.Name)
		metrics.RecordStep(tbl.Name, "verify", err, time.Since(t0))
		if err != nil {
			return fail("verify", err)
		}
		res.RowCount = n
		log.WithField("row_count", n).Info("verify: table row count")
	}
	return res
}
