// This adapter wires the Postgres backend into the storage factory by
// registering a constructor and a DDL bootstrapper at init time. Callers
// obtain a Repository via storage.New without importing this package.
package postgres

import (
	"context"
	"fmt"

	"starload/internal/schema"
	"starload/internal/storage"
	pgddl "starload/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository and
// calling the close function returned by NewRepository.
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
func (w *wrappedRepo) Dialect() storage.Dialect { return storage.Postgres }

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:            cfg.DSN,
			MaxConns:       int32(cfg.MaxConns),
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository, t schema.Table) error {
		td, err := pgddl.FromTable(t)
		if err != nil {
			return fmt.Errorf("infer table definition: %w", err)
		}
		if err := pgddl.EnsureTable(ctx, repo, td); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
		return nil
	})
}
