package ddl

import (
	gddl "starload/internal/ddl"
	"starload/internal/schema"
	sddl "starload/internal/schema/ddl"
)

// FromTable derives a SQLite TableDef from a rule set.
func FromTable(t schema.Table) (gddl.TableDef, error) {
	return sddl.InferTableDef(t, MapType)
}
