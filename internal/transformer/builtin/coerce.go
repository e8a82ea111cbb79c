package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"starload/internal/schema"
	"starload/pkg/records"
)

// fallbackLayouts are tried after the column layout fails.
var fallbackLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Coerce converts values to the Go type of each column:
//
//	int    -> int64
//	float  -> float64
//	money  -> decimal.Decimal
//	date   -> time.Time
//	string -> string
//
// A value that cannot be converted is replaced by the column default, itself
// converted; a nil default means zero for numeric columns and NULL for dates.
// Missing columns are left alone.
type Coerce struct {
	Columns []schema.Column

	// Failed, when set, is incremented once per value replaced by its default.
	Failed *int
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(c.Columns) == 0 {
		return in
	}
	defaults := make([]any, len(c.Columns))
	for i, col := range c.Columns {
		defaults[i] = zeroOrDefault(col)
	}
	for _, r := range in {
		for i, col := range c.Columns {
			v, ok := r[col.Name]
			if !ok {
				continue
			}
			if v == nil && (col.Type == schema.TypeDate || col.Type == schema.TypeString) {
				continue
			}
			out, ok := convert(v, col)
			if !ok {
				out = defaults[i]
				if c.Failed != nil {
					*c.Failed++
				}
			}
			r[col.Name] = out
		}
	}
	return in
}

// convert returns v as the column's Go type.
func convert(v any, col schema.Column) (any, bool) {
	switch col.Type {
	case schema.TypeInt:
		n, ok := ToInt64(v)
		return n, ok
	case schema.TypeFloat:
		f, ok := ToFloat64(v)
		return f, ok
	case schema.TypeMoney:
		d, ok := ToDecimal(v)
		return d, ok
	case schema.TypeDate:
		t, ok := ToDate(v, col.DateLayout())
		return t, ok
	default:
		switch t := v.(type) {
		case string:
			return t, true
		case nil:
			return nil, true
		default:
			return fmt.Sprint(t), true
		}
	}
}

func zeroOrDefault(col schema.Column) any {
	if col.Default != nil {
		if v, ok := convert(col.Default, col); ok {
			return v
		}
	}
	switch col.Type {
	case schema.TypeInt:
		return int64(0)
	case schema.TypeFloat:
		return float64(0)
	case schema.TypeMoney:
		return decimal.Zero
	default:
		return nil
	}
}

// ToInt64 accepts integers, whole floats and their string forms.
func ToInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		// int64(t) is implementation-defined outside [-2^63, 2^63).
		if t < -(1<<63) || t >= 1<<63 {
			return 0, false
		}
		return int64(t), true
	case decimal.Decimal:
		if !t.IsInteger() {
			return 0, false
		}
		return t.IntPart(), true
	case []byte:
		return ToInt64(string(t))
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return ToInt64(f)
	default:
		return 0, false
	}
}

// ToFloat64 accepts numbers and numeric strings; NaN and Inf are rejected.
func ToFloat64(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case decimal.Decimal:
		f = t.InexactFloat64()
	case []byte:
		return ToFloat64(string(t))
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToDecimal accepts numbers and numeric strings.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case int64:
		return decimal.NewFromInt(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(t), true
	case []byte:
		return ToDecimal(string(t))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// ToDate parses strings with layout, then with a few ISO fallbacks.
func ToDate(v any, layout string) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
		for _, l := range fallbackLayouts {
			if ts, err := time.Parse(l, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
