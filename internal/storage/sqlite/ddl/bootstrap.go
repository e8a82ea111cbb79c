package ddl

import (
	"context"

	gddl "starload/internal/ddl"
	"starload/internal/storage"
)

// EnsureTable creates def if it does not exist yet.
func EnsureTable(ctx context.Context, repo storage.Repository, def gddl.TableDef) error {
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
