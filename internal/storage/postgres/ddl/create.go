package ddl

import (
	gddl "starload/internal/ddl"
)

// Identifiers are quoted so mixed-case names such as "VehicleKey" survive
// Postgres case folding and match the COPY column list.
var style = gddl.Style{Name: "postgres ddl", Quote: gddl.DoubleQuote, IfNotExists: true}

// BuildCreateTableSQL returns a Postgres CREATE TABLE IF NOT EXISTS statement.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(t, style)
}
