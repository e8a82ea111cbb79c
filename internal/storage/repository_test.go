package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo is the smallest Repository the registry tests need.
type stubRepo struct{ cfg Config }

func (s *stubRepo) CopyFrom(context.Context, string, []string, [][]any) (int64, error) {
	return 0, nil
}
func (s *stubRepo) Exec(context.Context, string, ...any) error             { return nil }
func (s *stubRepo) Query(context.Context, string, ...any) ([][]any, error) { return nil, nil }
func (s *stubRepo) Dialect() Dialect                                       { return SQLite }
func (s *stubRepo) Close()                                                 {}

func TestRegistry(t *testing.T) {
	t.Parallel()

	Register("registry-test", func(_ context.Context, cfg Config) (Repository, error) {
		return &stubRepo{cfg: cfg}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "registry-test", DSN: "warehouse.db", MaxConns: 2})
	require.NoError(t, err)
	assert.Equal(t, Config{Kind: "registry-test", DSN: "warehouse.db", MaxConns: 2}, repo.(*stubRepo).cfg,
		"the factory receives the config unchanged")
	assert.Contains(t, ListKinds(), "registry-test")

	kinds := ListKinds()
	kinds[0] = "mutated"
	assert.NotContains(t, ListKinds(), "mutated", "ListKinds returns a copy")
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	t.Parallel()

	first := errors.New("first")
	second := errors.New("second")
	Register("override-test", func(context.Context, Config) (Repository, error) { return nil, first })
	Register("override-test", func(context.Context, Config) (Repository, error) { return nil, second })

	_, err := New(context.Background(), Config{Kind: "override-test"})
	assert.ErrorIs(t, err, second)
}

func TestNew_UnknownKindNamesRegistered(t *testing.T) {
	t.Parallel()

	Register("known-test", func(context.Context, Config) (Repository, error) { return &stubRepo{}, nil })

	_, err := New(context.Background(), Config{Kind: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported kind "oracle"`)
	assert.Contains(t, err.Error(), "known-test")
}

func TestDialects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		d       Dialect
		fqn     string
		selectQ string
	}{
		{Postgres, `"dw"."FACT_SALES"`, `SELECT "VehicleKey" FROM t WHERE x = $1`},
		{SQLite, `"dw"."FACT_SALES"`, `SELECT "VehicleKey" FROM t WHERE x = ?`},
		{MSSQL, `[dw].[FACT_SALES]`, `SELECT [VehicleKey] FROM t WHERE x = @p1`},
		{MySQL, "`dw`.`FACT_SALES`", "SELECT `VehicleKey` FROM t WHERE x = ?"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.d.Kind, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.fqn, tc.d.QuoteFQN("dw.FACT_SALES"))

			q, args, err := tc.d.Builder().Select(tc.d.QuoteIdent("VehicleKey")).From("t").Where("x = ?", 1).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tc.selectQ, q)
			assert.Equal(t, []any{1}, args)
		})
	}
}
