package mssql

import (
	"context"
	"fmt"

	"starload/internal/schema"
	"starload/internal/storage"
	msddl "starload/internal/storage/mssql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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

	storage.RegisterDDL("mssql", func(ctx context.Context, repo storage.Repository, t schema.Table) error {
		td, err := msddl.FromTable(t)
		if err != nil {
			return fmt.Errorf("infer table definition: %w", err)
		}
		return msddl.EnsureTable(ctx, repo, td)
	})
}

// wrappedRepo adapts *Repository to storage.Repository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func (w *wrappedRepo) Dialect() storage.Dialect { return storage.MSSQL }
