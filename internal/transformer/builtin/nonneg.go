package builtin

import (
	"github.com/shopspring/decimal"

	"starload/pkg/records"
)

// NonNegative drops records in which any of Fields holds a negative number.
// Non-numeric and missing values pass. It filters in place.
type NonNegative struct {
	Fields []string
}

func (n NonNegative) Apply(in []records.Record) []records.Record {
	if len(n.Fields) == 0 {
		return in
	}
	out := in[:0]
	for _, r := range in {
		if n.keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (n NonNegative) keep(r records.Record) bool {
	for _, f := range n.Fields {
		switch t := r[f].(type) {
		case int64:
			if t < 0 {
				return false
			}
		case int:
			if t < 0 {
				return false
			}
		case float64:
			if t < 0 {
				return false
			}
		case decimal.Decimal:
			if t.IsNegative() {
				return false
			}
		}
	}
	return true
}
