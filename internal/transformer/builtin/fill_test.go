package builtin

import (
	"reflect"
	"testing"

	"starload/pkg/records"
)

func TestFillDefaults(t *testing.T) {
	in := []records.Record{
		{"product_name": nil, "category": "  ", "unit_price": "1.00", "full_date": nil},
		{"product_name": "Widget", "category": "Tools"},
	}
	filled := 0
	out := FillDefaults{
		Defaults: map[string]any{
			"product_name": "Unknown",
			"category":     "Miscellaneous",
			"unit_price":   0.00,
			"full_date":    nil,
		},
		Filled: &filled,
	}.Apply(in)

	want := []records.Record{
		{"product_name": "Unknown", "category": "Miscellaneous", "unit_price": "1.00", "full_date": nil},
		{"product_name": "Widget", "category": "Tools", "unit_price": 0.00},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %#v\nwant %#v", out, want)
	}
	if filled != 3 {
		t.Fatalf("filled=%d want 3", filled)
	}
}
