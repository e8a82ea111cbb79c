package storage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"starload/internal/schema"
	"starload/internal/transformer/builtin"
	"starload/pkg/records"
)

// KeySet holds the distinct values of a dimension key column, normalized so
// that the transformed int64 42 and a driver's "42" or int32 42 compare equal.
type KeySet map[string]struct{}

// Has reports whether v is one of the keys. A nil value is never a key.
func (k KeySet) Has(v any) bool {
	if v == nil {
		return false
	}
	_, ok := k[builtin.KeyString(v)]
	return ok
}

// FetchKeys reads the distinct non-null values of table.column.
func FetchKeys(ctx context.Context, repo Repository, table, column string) (KeySet, error) {
	d := repo.Dialect()
	col := d.QuoteIdent(column)
	q, args, err := d.Builder().
		Select(col).
		Distinct().
		From(d.QuoteFQN(table)).
		Where(col + " IS NOT NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build key query: %w", err)
	}

	rows, err := repo.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := make(KeySet, len(rows))
	for _, r := range rows {
		if len(r) == 0 || r[0] == nil {
			continue
		}
		out[builtin.KeyString(r[0])] = struct{}{}
	}
	return out, nil
}

// FilterReferences keeps the rows whose every reference column is present in
// the referenced table. Key sets are fetched concurrently. A rejected row is
// counted once, against the first reference it fails.
//
// The check is a snapshot: a concurrent writer deleting dimension rows between
// the lookup and the append is not detected.
func FilterReferences(
	ctx context.Context,
	repo Repository,
	rows []records.Record,
	refs []schema.Reference,
) (kept []records.Record, rejectedBy map[string]int64, err error) {
	if len(refs) == 0 {
		return rows, nil, nil
	}

	sets := make([]KeySet, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			ks, err := FetchKeys(gctx, repo, ref.Table, ref.RefColumn)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrReferenceLookup, ref, err)
			}
			sets[i] = ks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	rejectedBy = make(map[string]int64, len(refs))
	kept = make([]records.Record, 0, len(rows))
rows:
	for _, r := range rows {
		for i, ref := range refs {
			if !sets[i].Has(r[ref.Column]) {
				rejectedBy[ref.String()]++
				continue rows
			}
		}
		kept = append(kept, r)
	}
	return kept, rejectedBy, nil
}

// CountRows returns SELECT COUNT(*) of table.
func CountRows(ctx context.Context, repo Repository, table string) (int64, error) {
	d := repo.Dialect()
	q, args, err := d.Builder().Select("COUNT(*)").From(d.QuoteFQN(table)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	rows, err := repo.Query(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("count %s: unexpected result shape", table)
	}
	return toInt64(rows[0][0])
}

func toInt64(v any) (int64, error) {
	if u, ok := v.(uint64); ok {
		return int64(u), nil
	}
	n, ok := builtin.ToInt64(v)
	if !ok {
		return 0, fmt.Errorf("not an integer: %v (%T)", v, v)
	}
	return n, nil
}
