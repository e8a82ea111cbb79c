package ddl

import (
	gddl "starload/internal/ddl"
)

var style = gddl.Style{Name: "sqlite ddl", Quote: gddl.DoubleQuote, IfNotExists: true}

// BuildCreateTableSQL returns a SQLite statement of the form:
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col1" TYPE [NOT NULL] [DEFAULT expr],
//	  ...
//	);
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, style)
}
