package ddl

// ColumnDef is one column of a CREATE TABLE statement. Name is unquoted and
// SQLType is already mapped to the target backend. Default is raw SQL.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef is a table name, optionally schema-qualified as "schema.table",
// and its columns in declaration order.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
