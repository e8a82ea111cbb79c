package builtin

import (
	"reflect"
	"testing"

	"starload/internal/schema"
	"starload/pkg/records"
)

/*
TestNormalizeApply_TableDriven verifies:

  - U+00A0 NO-BREAK SPACE becomes an ASCII space everywhere.
  - Trim applies only to columns whose rule asks for it.
  - Casing follows the column rule.
  - Non-string values are left unchanged.
*/
func TestNormalizeApply_TableDriven(t *testing.T) {
	rules := map[string]StringRule{
		"name":  {Trim: true},
		"email": {Trim: true, Case: schema.CaseLower},
		"state": {Trim: true, Case: schema.CaseUpper},
		"day":   {Trim: true, Case: schema.CaseTitle},
	}

	tests := []struct {
		name string
		in   []records.Record
		want []records.Record
	}{
		{
			name: "no_strings_no_change",
			in:   []records.Record{{"a": 1, "b": true, "c": nil}},
			want: []records.Record{{"a": 1, "b": true, "c": nil}},
		},
		{
			name: "trim_only_ruled_columns",
			in:   []records.Record{{"name": " Widget\t", "free": " x "}},
			want: []records.Record{{"name": "Widget", "free": " x "}},
		},
		{
			name: "nbsp_replaced_and_trimmed",
			in:   []records.Record{{"name": nbspace + "Widget" + nbspace + "Pro" + nbspace}},
			want: []records.Record{{"name": "Widget Pro"}},
		},
		{
			name: "casing",
			in: []records.Record{{
				"email": "  Jane.Doe@Example.COM ",
				"state": "ny",
				"day":   "monday",
			}},
			want: []records.Record{{
				"email": "jane.doe@example.com",
				"state": "NY",
				"day":   "Monday",
			}},
		},
		{
			name: "nfc_folding",
			in:   []records.Record{{"name": "Cafe\u0301"}},
			want: []records.Record{{"name": "Caf\u00e9"}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var firstOrigElem *records.Record
			if len(tc.in) > 0 {
				firstOrigElem = &tc.in[0]
			}

			out := Normalize{Rules: rules}.Apply(tc.in)

			if !reflect.DeepEqual(out, tc.want) {
				t.Fatalf("Normalize.Apply() mismatch:\n got: %#v\nwant: %#v", out, tc.want)
			}
			if len(out) > 0 && &out[0] != firstOrigElem {
				t.Fatalf("Normalize.Apply did not operate on the original slice")
			}
		})
	}
}

func TestNormalizeApply_EmptyInputs(t *testing.T) {
	var nilSlice []records.Record
	if got := (Normalize{}).Apply(nilSlice); got != nil {
		t.Fatalf("Normalize.Apply(nil) = %#v; want nil", got)
	}
}
