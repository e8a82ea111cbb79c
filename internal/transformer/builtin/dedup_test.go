package builtin

import (
	"reflect"
	"testing"

	"starload/pkg/records"
)

func product(id int64, name string, fields map[string]any) records.Record {
	r := records.Record{
		"product_id":   id,
		"product_name": name,
	}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

func TestDeDupKeepFirst(t *testing.T) {
	in := []records.Record{
		product(1, "Widget", map[string]any{"category": "A"}),
		product(1, "Widget", map[string]any{"category": "B"}),
		product(2, "Gadget", map[string]any{"category": "C"}),
	}
	d := DeDup{Keys: []string{"product_id"}, Policy: "keep-first"}
	got := d.Apply(in)
	want := []records.Record{
		product(1, "Widget", map[string]any{"category": "A"}),
		product(2, "Gadget", map[string]any{"category": "C"}),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-first: got %#v want %#v", got, want)
	}
}

func TestDeDupKeepLast(t *testing.T) {
	in := []records.Record{
		product(1, "Widget", map[string]any{"category": "A"}),
		product(2, "Gadget", map[string]any{"category": "C"}),
		product(1, "Widget v2", map[string]any{"category": "B"}),
	}
	d := DeDup{Keys: []string{"product_id"}}
	got := d.Apply(in)
	want := []records.Record{
		product(2, "Gadget", map[string]any{"category": "C"}),
		product(1, "Widget v2", map[string]any{"category": "B"}),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-last: got %#v want %#v", got, want)
	}
}

// Every key appears exactly once and carries the field values of its last
// occurrence in the input.
func TestDeDupKeepLast_OneRowPerKeyMatchingLastOccurrence(t *testing.T) {
	t.Parallel()

	var in []records.Record
	for round := 0; round < 4; round++ {
		for id := int64(0); id < 25; id++ {
			in = append(in, records.Record{"product_id": id, "round": round})
		}
	}

	got := DeDup{Keys: []string{"product_id"}, Policy: "keep-last"}.Apply(in)
	if len(got) != 25 {
		t.Fatalf("len=%d want 25", len(got))
	}
	seen := map[int64]bool{}
	for _, r := range got {
		id := r["product_id"].(int64)
		if seen[id] {
			t.Fatalf("key %d emitted twice", id)
		}
		seen[id] = true
		if r["round"] != 3 {
			t.Fatalf("key %d kept round %v, want 3", id, r["round"])
		}
	}
}

func TestDeDupMostComplete(t *testing.T) {
	in := []records.Record{
		product(1, "Widget", map[string]any{"category": ""}),
		product(1, "Widget", map[string]any{"category": "B", "supplier_id": int64(4)}),
		product(1, "", map[string]any{"category": nil}),
		product(2, "Gadget", map[string]any{"category": "C"}),
	}
	d := DeDup{Keys: []string{"product_id"}, Policy: "most-complete"}
	got := d.Apply(in)
	want := []records.Record{
		product(1, "Widget", map[string]any{"category": "B", "supplier_id": int64(4)}),
		product(2, "Gadget", map[string]any{"category": "C"}),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("most-complete: got %#v want %#v", got, want)
	}
}

func TestDeDupCompositeKeyAndPassthrough(t *testing.T) {
	in := []records.Record{
		{"DateKey": int64(20230101), "VehicleKey": int64(1), "StockLevel": int64(3)},
		{"DateKey": int64(20230101), "VehicleKey": int64(2), "StockLevel": int64(4)},
		{"VehicleKey": int64(9)},
		{"DateKey": int64(20230101), "VehicleKey": int64(1), "StockLevel": int64(5)},
	}
	got := DeDup{Keys: []string{"DateKey", "VehicleKey"}}.Apply(in)
	want := []records.Record{
		{"DateKey": int64(20230101), "VehicleKey": int64(2), "StockLevel": int64(4)},
		{"DateKey": int64(20230101), "VehicleKey": int64(1), "StockLevel": int64(5)},
		{"VehicleKey": int64(9)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("composite: got %#v want %#v", got, want)
	}
}

func TestDeDupNoKeysIsIdentity(t *testing.T) {
	in := []records.Record{{"a": 1}, {"a": 1}}
	if got := (DeDup{}).Apply(in); len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want string
	}{
		{nil, "\x00"},
		{"7", "7"},
		{int64(7), "7"},
		{[]byte("7"), "7"},
		{float64(7), "7"},
		{float64(7.5), "7.5"},
	}
	for _, c := range cases {
		if got := KeyString(c.in); got != c.want {
			t.Fatalf("KeyString(%#v)=%q want %q", c.in, got, c.want)
		}
	}
}
