package mysql

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starload/internal/storage"
)

// Not parallel: it swaps a package-level hook.
func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() {}, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "etl:secret@tcp(localhost:3306)/warehouse"})
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, "etl:secret@tcp(localhost:3306)/warehouse", gotCfg.DSN)
	assert.Equal(t, storage.MySQL, repo.Dialect())
}

func TestInsertStatements(t *testing.T) {
	t.Parallel()

	stmts, err := insertStatements("shop.DIM_STORE", []string{"store_id", "state"}, [][]any{
		{int64(1), "TX"},
		{int64(2), "CA"},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "INSERT INTO `shop`.`DIM_STORE` (`store_id`,`state`) VALUES (?,?),(?,?)", stmts[0].sql)
	assert.Equal(t, []any{int64(1), "TX", int64(2), "CA"}, stmts[0].args)
}

func TestInsertStatements_SplitsAtPlaceholderLimit(t *testing.T) {
	t.Parallel()

	cols := make([]string, 1000)
	for i := range cols {
		cols[i] = "c" + strings.Repeat("x", i%3)
	}
	rows := make([][]any, 70)
	for i := range rows {
		rows[i] = make([]any, len(cols))
	}

	stmts, err := insertStatements("t", cols, rows)
	require.NoError(t, err)
	// 65535/1000 = 65 rows per statement.
	assert.Len(t, stmts, 2)
	assert.Len(t, stmts[1].args, 5*len(cols))
}

func TestInsertStatements_RowLengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := insertStatements("t", []string{"a", "b"}, [][]any{{1}})
	assert.Error(t, err)
}
