package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemRepo(tb testing.TB) *Repository {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:"})
	require.NoError(tb, err)
	tb.Cleanup(closeFn)
	return r
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN must not be empty")
}

func TestCopyFromAndQuery(t *testing.T) {
	t.Parallel()

	r := newMemRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Exec(ctx, `CREATE TABLE "FACT_SALES" ("SaleID" INTEGER, "TotalAmount" NUMERIC, "SoldOn" TEXT)`))

	day := time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC)
	n, err := r.CopyFrom(ctx, "FACT_SALES", []string{"SaleID", "TotalAmount", "SoldOn"}, [][]any{
		{int64(1), decimal.RequireFromString("46135"), day},
		{int64(2), decimal.RequireFromString("12.50"), nil},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := r.Query(ctx, `SELECT "SaleID" FROM "FACT_SALES" WHERE "TotalAmount" > ? ORDER BY "SaleID"`, 100)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, rows)
}

func TestCopyFrom_RowLengthMismatchRollsBack(t *testing.T) {
	t.Parallel()

	r := newMemRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Exec(ctx, `CREATE TABLE t (a INTEGER, b INTEGER)`))

	n, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{1, 2}, {3}})
	require.Error(t, err)
	assert.Zero(t, n)

	rows, err := r.Query(ctx, `SELECT COUNT(*) FROM t`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows[0][0])
}

func TestCopyFrom_Empty(t *testing.T) {
	t.Parallel()

	r := newMemRepo(t)
	n, err := r.CopyFrom(context.Background(), "t", []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.CopyFrom(context.Background(), "t", nil, [][]any{{1}})
	assert.Error(t, err)
}

func TestExec_BlankIsNoop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, newMemRepo(t).Exec(context.Background(), "  "))
}
