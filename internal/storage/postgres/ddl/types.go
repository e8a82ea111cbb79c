// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import "strings"

// MapType normalizes a logical type into a Postgres SQL type.
//
//	"int"/"integer"/"bigint" -> BIGINT
//	"float"/"double"         -> DOUBLE PRECISION
//	"money"/"numeric"        -> NUMERIC(18,2)
//	"date"                   -> DATE
//	"timestamp"              -> TIMESTAMPTZ
//	everything else          -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "float", "double":
		return "DOUBLE PRECISION"
	case "money", "numeric", "decimal":
		return "NUMERIC(18,2)"
	case "bool", "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
