package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows (aligned to columns) and return the number of rows committed.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains positional rows from in, groups them into batches of
// batchSize and calls copyFn for each non-empty batch. It returns the number
// of rows copyFn reported, including the rows reported by a failing call, and
// the first error encountered.
//
// Cancellation returns (total, ctx.Err()). Progress is logged at debug level
// on each successful flush.
func LoadBatches(
	ctx context.Context,
	log logrus.FieldLogger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]

		if err != nil {
			log.WithFields(logrus.Fields{"inserted": n, "total": total}).
				WithError(err).Error("loader: copy failed")
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":          batches,
			"rps":            int64(rps),
			"inserted":       n,
			"total_inserted": total,
			"elapsed":        now.Sub(start).Truncate(time.Millisecond),
		}).Debug("loader: batch committed")
		lastFlushTS = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
