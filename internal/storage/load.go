package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"starload/internal/metrics"
	"starload/internal/schema"
	"starload/pkg/records"
)

// DefaultBatchSize is used when LoadRequest.BatchSize is not set.
const DefaultBatchSize = 1000

var (
	// ErrWrite marks a failure while appending rows. LoadResult.Written holds
	// the rows committed before the failure.
	ErrWrite = errors.New("storage: write failed")

	// ErrReferenceLookup marks a failure reading a referenced key column.
	// Nothing is written.
	ErrReferenceLookup = errors.New("storage: reference lookup failed")
)

// MissingColumnsError reports destination columns absent from the input.
// Nothing is written when it is returned.
type MissingColumnsError struct {
	Table   string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("storage: %s: missing columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// LoadRequest describes one append.
type LoadRequest struct {
	// Table is the destination table name.
	Table string

	// Columns are the destination columns, in write order. Empty means the
	// columns of Data.
	Columns []string

	Data records.Table

	// References are checked in-process before the append; rows failing any
	// of them are dropped and counted in LoadResult.Rejected.
	References []schema.Reference

	BatchSize int
	Logger    logrus.FieldLogger
}

// LoadResult reports the outcome of Load. Attempted always equals
// Written + Rejected + rows lost to a write failure.
type LoadResult struct {
	Table      string           `json:"table"`
	Attempted  int64            `json:"attempted"`
	Written    int64            `json:"written"`
	Rejected   int64            `json:"rejected"`
	RejectedBy map[string]int64 `json:"rejected_by,omitempty"`
	Missing    []string         `json:"missing_columns,omitempty"`
}

// Lost counts rows that passed the reference checks but were not written.
// Referential rejections are not losses.
func (r LoadResult) Lost() int64 { return r.Attempted - r.Rejected - r.Written }

// Partial reports whether some rows were written before others were lost.
func (r LoadResult) Partial() bool { return r.Lost() > 0 && r.Written > 0 }

// Load appends req.Data to req.Table. It never updates or deletes: loading
// the same data twice stores it twice.
//
// Order of checks:
//  1. every destination column must be present in the input, otherwise
//     *MissingColumnsError and zero writes;
//  2. references are resolved against the dimension tables, otherwise
//     ErrReferenceLookup and zero writes;
//  3. surviving rows are written in batches via repo.CopyFrom.
func Load(ctx context.Context, repo Repository, req LoadRequest) (LoadResult, error) {
	log := req.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("table", req.Table)

	res := LoadResult{Table: req.Table, Attempted: int64(req.Data.Len())}

	cols := req.Columns
	if len(cols) == 0 {
		cols = req.Data.Columns
	}
	if len(cols) == 0 {
		if res.Attempted == 0 {
			return res, nil
		}
		return res, fmt.Errorf("%w: %s: no columns to write", ErrWrite, req.Table)
	}
	if missing := req.Data.MissingColumns(cols); len(missing) > 0 {
		res.Missing = missing
		log.WithField("missing", missing).Error("load: input lacks destination columns, nothing written")
		return res, &MissingColumnsError{Table: req.Table, Missing: missing}
	}
	if res.Attempted == 0 {
		return res, nil
	}

	rows := req.Data.Rows
	if len(req.References) > 0 {
		kept, rejectedBy, err := FilterReferences(ctx, repo, rows, req.References)
		if err != nil {
			log.WithError(err).Error("load: reference lookup failed, nothing written")
			return res, err
		}
		rows = kept
		res.RejectedBy = rejectedBy
		res.Rejected = res.Attempted - int64(len(rows))
		if res.Rejected > 0 {
			log.WithFields(logrus.Fields{
				"rejected":    res.Rejected,
				"rejected_by": rejectedBy,
			}).Warn("load: dropped rows with unknown references")
		}
	}
	if len(rows) == 0 {
		return res, nil
	}

	batch := req.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	values := records.Table{Columns: cols, Rows: rows}.Values(cols)
	in := make(chan []any, batch)
	go func() {
		defer close(in)
		for _, v := range values {
			select {
			case in <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	var batches int64
	n, err := LoadBatches(ctx, log, cols, in, batch, func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		batches++
		return repo.CopyFrom(ctx, req.Table, columns, rows)
	})
	metrics.RecordBatches(req.Table, batches)
	res.Written = n
	if err != nil {
		return res, fmt.Errorf("%w: %s after %d rows: %w", ErrWrite, req.Table, n, err)
	}

	log.WithFields(logrus.Fields{
		"attempted": res.Attempted,
		"written":   res.Written,
		"rejected":  res.Rejected,
	}).Info("load: appended")
	return res, nil
}
