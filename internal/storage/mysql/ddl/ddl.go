// Package ddl contains MySQL-specific helpers for generating DDL.
package ddl

import (
	"context"
	"strings"

	gddl "starload/internal/ddl"
	"starload/internal/schema"
	sddl "starload/internal/schema/ddl"
	"starload/internal/storage"
)

var style = gddl.Style{Name: "mysql ddl", Quote: gddl.Backtick, IfNotExists: true}

// MapType maps a logical type into a MySQL column type.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "TINYINT(1)"
	case "float", "double":
		return "DOUBLE"
	case "money", "numeric", "decimal":
		return "DECIMAL(18,2)"
	case "date":
		return "DATE"
	case "timestamp", "datetime":
		return "DATETIME(6)"
	case "string":
		return "VARCHAR(255)"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement with
// backtick-quoted identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, style)
}

// FromTable derives a MySQL TableDef from a rule set.
func FromTable(t schema.Table) (gddl.TableDef, error) {
	return sddl.InferTableDef(t, MapType)
}

// EnsureTable creates def if it does not exist yet.
func EnsureTable(ctx context.Context, repo storage.Repository, def gddl.TableDef) error {
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
