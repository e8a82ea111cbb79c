package storage

import (
	"context"
	"fmt"
	"sync"

	"starload/internal/schema"
)

// DDLBootstrapper creates the destination table for a rule set if it does
// not exist yet. Backends register one per storage kind at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository, t schema.Table) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the bootstrapper registered for repo's dialect.
func EnsureTable(ctx context.Context, repo Repository, t schema.Table) error {
	kind := repo.Dialect().Kind
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, t)
}
