package builtin

import (
	"strings"

	"starload/pkg/records"
)

// FillDefaults replaces nil and blank values with the column default. A
// column whose default is nil is skipped so NULL stays NULL.
type FillDefaults struct {
	Defaults map[string]any

	// Filled, when set, is incremented once per replaced cell.
	Filled *int
}

func (f FillDefaults) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for col, def := range f.Defaults {
			if def == nil {
				continue
			}
			if !isBlank(r[col]) {
				continue
			}
			r[col] = def
			if f.Filled != nil {
				*f.Filled++
			}
		}
	}
	return in
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
