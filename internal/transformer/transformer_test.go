package transformer

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starload/internal/schema"
	"starload/pkg/records"
)

type addFieldTransformer struct {
	key string
	val any
}

func (t addFieldTransformer) Apply(in []records.Record) []records.Record {
	for i := range in {
		in[i][t.key] = t.val
	}
	return in
}

type dropOddTransformer struct{}

func (dropOddTransformer) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, r := range in {
		if r["id"].(int)%2 == 0 {
			out = append(out, r)
		}
	}
	return out
}

/*
TestChainApply_Composition_Order verifies that each transformer receives the
output of the previous one, in declared order.
*/
func TestChainApply_Composition_Order(t *testing.T) {
	in := []records.Record{{"id": 0}, {"id": 1}, {"id": 2}}
	c := Chain{
		dropOddTransformer{},
		addFieldTransformer{key: "a", val: "first"},
		addFieldTransformer{key: "a", val: "second"},
	}
	out := c.Apply(in)

	want := []records.Record{{"id": 0, "a": "second"}, {"id": 2, "a": "second"}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("composition mismatch:\n got: %#v\nwant: %#v", out, want)
	}
}

func TestChainApply_NilChainIsIdentity(t *testing.T) {
	in := []records.Record{{"id": 1}}
	var c Chain
	out := c.Apply(in)
	if len(out) != 1 || &out[0] != &in[0] {
		t.Fatalf("nil chain should return the same slice")
	}
}

func productTable(t *testing.T) schema.Table {
	t.Helper()
	tbl, ok := schema.Retail().Table("DIM_PRODUCT")
	require.True(t, ok)
	return tbl
}

func TestPipelineTransform_RetailProduct(t *testing.T) {
	t.Parallel()

	in := records.Table{
		Columns: []string{"product_id", "product_name", "category", "unit_price"},
		Rows: []records.Record{
			{"product_id": "1", "product_name": " Widget ", "category": nil, "unit_price": "9.99"},
			{"product_id": "2", "product_name": nil, "category": "Tools", "unit_price": "-1.00"},
			{"product_id": "3", "product_name": "Gizmo", "category": "Toys", "unit_price": "abc"},
			{"product_id": "1", "product_name": "Widget II", "category": "Tools", "unit_price": "12.50"},
		},
	}

	out, st := ForTable(productTable(t)).Transform(in)

	assert.Equal(t, []string{"product_id", "product_name", "category", "unit_price", "supplier_id"}, out.Columns)
	require.Len(t, out.Rows, 2)

	gizmo := out.Rows[0]
	assert.Equal(t, int64(3), gizmo["product_id"])
	assert.True(t, gizmo["unit_price"].(decimal.Decimal).IsZero(), "non-numeric price falls back to 0.00")
	assert.Equal(t, int64(0), gizmo["supplier_id"])

	widget := out.Rows[1]
	assert.Equal(t, int64(1), widget["product_id"])
	assert.Equal(t, "Widget II", widget["product_name"], "keep-last")
	assert.True(t, widget["unit_price"].(decimal.Decimal).Equal(decimal.RequireFromString("12.50")))

	assert.Equal(t, Stats{
		Input:             4,
		Ensured:           1,
		Filled:            2,
		Coerced:           1,
		DroppedNegative:   1,
		DroppedDuplicates: 1,
		Output:            2,
	}, st)
}

func TestPipelineTransform_DedupPolicy(t *testing.T) {
	t.Parallel()

	rows := func() records.Table {
		return records.Table{
			Columns: []string{"product_id", "product_name", "category", "unit_price"},
			Rows: []records.Record{
				{"product_id": "1", "product_name": "Widget", "category": "Tools", "unit_price": "9.99"},
				{"product_id": "1", "product_name": "Widget II", "category": nil, "unit_price": "12.50"},
			},
		}
	}
	tests := []struct {
		policy schema.DedupPolicy
		want   string
	}{
		{"", "Widget II"},
		{schema.DedupKeepLast, "Widget II"},
		{schema.DedupKeepFirst, "Widget"},
	}
	for _, tc := range tests {
		tbl := productTable(t)
		tbl.Dedup = tc.policy
		out, st := ForTable(tbl).Transform(rows())
		require.Len(t, out.Rows, 1, "policy %q", tc.policy)
		assert.Equal(t, tc.want, out.Rows[0]["product_name"], "policy %q", tc.policy)
		assert.Equal(t, 1, st.DroppedDuplicates)
	}
}

// An empty date has no default and stays NULL, so the row carrying a date is
// the more complete one.
func TestPipelineTransform_DedupMostComplete(t *testing.T) {
	t.Parallel()

	tbl, ok := schema.Retail().Table("DIM_DATE")
	require.True(t, ok)

	in := func() records.Table {
		return records.Table{
			Columns: []string{"date_id", "full_date", "day_of_week"},
			Rows: []records.Record{
				{"date_id": "20230101", "full_date": "2023-01-01", "day_of_week": "sunday"},
				{"date_id": "20230101", "full_date": nil, "day_of_week": "sunday"},
			},
		}
	}

	out, _ := ForTable(tbl).Transform(in())
	require.Len(t, out.Rows, 1)
	assert.Nil(t, out.Rows[0]["full_date"], "keep-last by default")

	tbl.Dedup = schema.DedupMostComplete
	tbl.PreferFields = []string{"full_date"}
	out, _ = ForTable(tbl).Transform(in())
	require.Len(t, out.Rows, 1)
	assert.NotNil(t, out.Rows[0]["full_date"])
}

func TestPipelineTransform_EmptyTable(t *testing.T) {
	t.Parallel()

	out, st := ForTable(productTable(t)).Transform(records.Table{})
	assert.True(t, out.Empty())
	assert.Equal(t, 0, st.Output)
}

// Without the key column there is nothing to de-duplicate on; rows pass.
func TestPipelineTransform_MissingKeySkipsDeDup(t *testing.T) {
	t.Parallel()

	in := records.Table{
		Columns: []string{"product_name"},
		Rows:    []records.Record{{"product_name": "a"}, {"product_name": "a"}},
	}
	out, st := ForTable(productTable(t)).Transform(in)
	assert.Len(t, out.Rows, 2)
	assert.Zero(t, st.DroppedDuplicates)
	assert.NotContains(t, out.Columns, "product_id")
}

func TestPipelineTransform_VehicleCasing(t *testing.T) {
	t.Parallel()

	tbl, ok := schema.Vehicle().Table("DIM_VEHICLE")
	require.True(t, ok)

	in := records.Table{
		Columns: tbl.ColumnNames(),
		Rows: []records.Record{{
			"VehicleKey": "1", "VehicleID": "BMW_1 Series M_2011", "Make": "BMW", "Model": "1 Series M",
			"Year": "2011", "FuelType": "Premium Unleaded (Required)", "Transmission": "manual",
			"Engine": "6.0-cylinder", "NumberOfDoors": "2.0", "Drivetrain": "Rear Wheel Drive",
			"MaxPower": "335.0", "Price": "46135",
		}},
	}
	out, _ := ForTable(tbl).Transform(in)
	r := out.Rows[0]

	assert.Equal(t, "premium unleaded (required)", r["FuelType"])
	assert.Equal(t, "MANUAL", r["Transmission"])
	assert.Equal(t, "rear wheel drive", r["Drivetrain"])
	assert.Equal(t, int64(2), r["NumberOfDoors"])
	assert.Equal(t, 335.0, r["MaxPower"])
}

// Quantities too large for int64 fall back to the default instead of being
// dropped as negative.
func TestPipelineTransform_QuantityOverflowCoercedToDefault(t *testing.T) {
	t.Parallel()

	tbl, ok := schema.Retail().Table("FACT_SALES")
	require.True(t, ok)

	in := records.Table{
		Columns: tbl.ColumnNames(),
		Rows: []records.Record{
			{"sale_id": "1", "date_id": "20230101", "product_id": "1", "store_id": "10", "customer_id": "100", "quantity": "1e19", "total_amount": "5.00"},
			{"sale_id": "2", "date_id": "20230101", "product_id": "1", "store_id": "10", "customer_id": "100", "quantity": "99999999999999999999", "total_amount": "5.00"},
		},
	}
	out, st := ForTable(tbl).Transform(in)

	require.Len(t, out.Rows, 2)
	assert.Equal(t, int64(0), out.Rows[0]["quantity"])
	assert.Equal(t, int64(0), out.Rows[1]["quantity"])
	assert.Equal(t, 2, st.Coerced)
	assert.Zero(t, st.DroppedNegative)
}
