// Package storage contains the storage-agnostic contracts of the loader: the
// Repository interface every backend implements, a factory registry keyed by
// storage kind, and the Load routine that appends a transformed table to its
// destination after the missing-column and referential checks.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks starload/internal/storage Repository

// Repository is the minimal surface a backend exposes to the loader.
//
// CopyFrom appends rows (aligned to columns) to table and reports how many
// rows were committed. Backends use their bulk primitive where one exists.
// Query returns every row of the result set with driver-native values.
type Repository interface {
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) ([][]any, error)
	Dialect() Dialect
	Close()
}

// Config carries what a backend factory needs to open a connection.
type Config struct {
	Kind           string
	DSN            string
	MaxConns       int
	ConnectTimeout time.Duration
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call it from
// init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
