// Package ddl contains SQLite-specific helpers for generating DDL.
package ddl

import "strings"

// MapType maps a logical column type into a SQLite column type. SQLite is
// dynamically typed, so the mapping targets type affinities:
//
//	int         -> INTEGER
//	float       -> REAL
//	money       -> NUMERIC
//	date        -> TEXT (ISO-8601)
//	string, ... -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint", "bool", "boolean":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "money", "numeric", "decimal":
		return "NUMERIC"
	default:
		return "TEXT"
	}
}
