package mysql

import (
	"context"
	"fmt"

	"starload/internal/schema"
	"starload/internal/storage"
	myddl "starload/internal/storage/mysql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:            cfg.DSN,
			MaxConns:       cfg.MaxConns,
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("mysql", func(ctx context.Context, repo storage.Repository, t schema.Table) error {
		td, err := myddl.FromTable(t)
		if err != nil {
			return fmt.Errorf("infer table definition: %w", err)
		}
		return myddl.EnsureTable(ctx, repo, td)
	})
}

// wrappedRepo adapts *Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func (w *wrappedRepo) Dialect() storage.Dialect { return storage.MySQL }
