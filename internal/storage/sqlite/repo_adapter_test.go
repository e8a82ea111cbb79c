package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starload/internal/schema"
	"starload/internal/storage"
)

// The "sqlite" factory registered in init must go through the newRepository
// hook and forward DSN and timeout.
//
// Not parallel: it swaps a package-level hook.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:           "sqlite",
		DSN:            "warehouse.db",
		ConnectTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, Config{DSN: "warehouse.db", ConnectTimeout: 3 * time.Second}, gotCfg)
	assert.Equal(t, storage.SQLite, repo.Dialect())

	repo.Close()
	assert.True(t, closed)
}

func TestEnsureTableRegistered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()

	tbl, ok := schema.Retail().Table("DIM_PRODUCT")
	require.True(t, ok)

	require.NoError(t, storage.EnsureTable(ctx, repo, tbl))
	require.NoError(t, storage.EnsureTable(ctx, repo, tbl), "second call is a no-op")

	n, err := storage.CountRows(ctx, repo, "DIM_PRODUCT")
	require.NoError(t, err)
	assert.Zero(t, n)
}
