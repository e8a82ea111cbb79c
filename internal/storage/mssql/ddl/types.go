package ddl

import "strings"

// MapType maps a logical type into a SQL Server column type. Unknown or empty
// kinds fall back to NVARCHAR(MAX).
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BIT"
	case "float", "double":
		return "FLOAT"
	case "money", "numeric", "decimal":
		return "DECIMAL(18, 2)"
	case "date":
		return "DATE"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME2"
	case "string":
		return "NVARCHAR(255)"
	default:
		return "NVARCHAR(MAX)"
	}
}
