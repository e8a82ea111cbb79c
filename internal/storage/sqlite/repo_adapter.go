package sqlite

import (
	"context"
	"fmt"

	"starload/internal/schema"
	"starload/internal/storage"
	sqliteddl "starload/internal/storage/sqlite/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adapts *Repository to storage.Repository, adding Close and
// Dialect.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect implements storage.Repository.Dialect.
func (w *wrappedRepo) Dialect() storage.Dialect { return storage.SQLite }

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:            cfg.DSN,
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("sqlite", func(ctx context.Context, repo storage.Repository, t schema.Table) error {
		td, err := sqliteddl.FromTable(t)
		if err != nil {
			return fmt.Errorf("infer table definition: %w", err)
		}
		return sqliteddl.EnsureTable(ctx, repo, td)
	})
}
