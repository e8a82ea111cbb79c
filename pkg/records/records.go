// Package records defines the in-memory row and table types that flow
// between the extract, transform and load stages.
package records

// Record is a single row keyed by column name. Values coming out of the CSV
// reader are strings or nil (empty cell); transforms replace them with typed
// values (int64, float64, decimal.Decimal, time.Time).
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered column list plus its rows. A zero Table is a valid,
// empty table.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// HasColumn reports whether name is one of the table's columns.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the entries of required that the table does not
// carry, in the order they were requested.
func (t Table) MissingColumns(required []string) []string {
	have := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// AddColumn appends name to the column list and sets def on every row that
// lacks it. It is a no-op for the column list when name already exists.
func (t *Table) AddColumn(name string, def any) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
	for _, r := range t.Rows {
		if _, ok := r[name]; !ok {
			r[name] = def
		}
	}
}

// Values projects the rows onto columns, producing positional rows suitable
// for bulk-copy APIs. Absent keys become nil.
func (t Table) Values(columns []string) [][]any {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = r[c]
		}
		out[i] = row
	}
	return out
}
