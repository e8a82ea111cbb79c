// Package ddl turns a schema.Table rule set into the generic ddl.TableDef
// consumed by the backend CREATE TABLE builders. It is pure and deterministic.
package ddl

import (
	"fmt"

	gddl "starload/internal/ddl"
	"starload/internal/schema"
)

// TypeMapper maps a logical column type to a backend SQL type.
type TypeMapper func(kind string) string

// InferTableDef derives a TableDef from a rule set:
//
//   - the table name is t.Name, emitted as the FQN;
//   - columns keep their declaration order;
//   - SQL types come from mapType applied to the logical type;
//   - only columns marked Nullable accept NULL.
//
// No primary key is declared. Loads are append-only and the same key may
// legitimately be written by consecutive runs.
func InferTableDef(t schema.Table, mapType TypeMapper) (gddl.TableDef, error) {
	if t.Name == "" {
		return gddl.TableDef{}, fmt.Errorf("ddl: missing table name")
	}
	if len(t.Columns) == 0 {
		return gddl.TableDef{}, fmt.Errorf("ddl: %s has no columns", t.Name)
	}
	if mapType == nil {
		return gddl.TableDef{}, fmt.Errorf("ddl: nil type mapper")
	}

	defs := make([]gddl.ColumnDef, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, gddl.ColumnDef{
			Name:     c.Name,
			SQLType:  mapType(string(c.Type)),
			Nullable: c.Nullable,
		})
	}
	return gddl.TableDef{FQN: t.Name, Columns: defs}, nil
}
