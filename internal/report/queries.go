package report

import (
	"sort"

	"github.com/Masterminds/squirrel"

	"starload/internal/storage"
)

// Params are the knobs a query may use.
type Params struct {
	// Limit caps the number of rows; 0 means no limit.
	Limit int
	// Threshold is the stock level at or below which a vehicle is low.
	Threshold int
}

// Query is one named analytic query over a catalog's star schema.
type Query struct {
	Name        string
	Catalog     string
	Description string
	Columns     []string
	build       func(b builder, p Params) squirrel.SelectBuilder
}

// builder carries the dialect helpers the query definitions need.
type builder struct {
	d storage.Dialect
}

func (b builder) q(id string) string { return b.d.QuoteIdent(id) }

// col returns alias.column with the column quoted.
func (b builder) col(alias, column string) string { return alias + "." + b.q(column) }

// from returns a quoted table with an alias.
func (b builder) from(table, alias string) string { return b.d.QuoteFQN(table) + " " + alias }

func (b builder) join(table, alias, left, right string) string {
	return b.from(table, alias) + " ON " + left + " = " + right
}

func (b builder) sel(cols ...string) squirrel.SelectBuilder {
	return b.d.Builder().Select(cols...)
}

var queries = map[string]Query{}

func register(q Query) { queries[q.Name] = q }

// Lookup returns the query registered under name.
func Lookup(name string) (Query, bool) {
	q, ok := queries[name]
	return q, ok
}

// Queries lists the registered queries sorted by catalog then name.
func Queries() []Query {
	out := make([]Query, 0, len(queries))
	for _, q := range queries {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Catalog != out[j].Catalog {
			return out[i].Catalog < out[j].Catalog
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func init() {
	register(Query{
		Name: "revenue_by_product", Catalog: "retail",
		Description: "total sales revenue per product, highest first",
		Columns:     []string{"product_name", "revenue"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("p", "product_name"), "SUM("+b.col("f", "total_amount")+") AS revenue").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_PRODUCT", "p", b.col("p", "product_id"), b.col("f", "product_id"))).
				GroupBy(b.col("p", "product_name")).
				OrderBy("revenue DESC")
		},
	})
	register(Query{
		Name: "daily_sales", Catalog: "retail",
		Description: "revenue and units per calendar day",
		Columns:     []string{"full_date", "units", "revenue"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("d", "full_date"),
				"SUM("+b.col("f", "quantity")+") AS units",
				"SUM("+b.col("f", "total_amount")+") AS revenue").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_DATE", "d", b.col("d", "date_id"), b.col("f", "date_id"))).
				GroupBy(b.col("d", "full_date")).
				OrderBy(b.col("d", "full_date"))
		},
	})
	register(Query{
		Name: "products_per_supplier", Catalog: "retail",
		Description: "number of products per supplier",
		Columns:     []string{"supplier_id", "products"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("p", "supplier_id"), "COUNT(*) AS products").
				From(b.from("DIM_PRODUCT", "p")).
				GroupBy(b.col("p", "supplier_id")).
				OrderBy("products DESC", b.col("p", "supplier_id"))
		},
	})
	register(Query{
		Name: "top_products_by_volume", Catalog: "retail",
		Description: "units sold per product, highest first",
		Columns:     []string{"product_name", "units"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("p", "product_name"), "SUM("+b.col("f", "quantity")+") AS units").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_PRODUCT", "p", b.col("p", "product_id"), b.col("f", "product_id"))).
				GroupBy(b.col("p", "product_name")).
				OrderBy("units DESC")
		},
	})
	register(Query{
		Name: "avg_sale_by_product", Catalog: "retail",
		Description: "average sale amount per product",
		Columns:     []string{"product_name", "avg_sale"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("p", "product_name"), "AVG("+b.col("f", "total_amount")+") AS avg_sale").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_PRODUCT", "p", b.col("p", "product_id"), b.col("f", "product_id"))).
				GroupBy(b.col("p", "product_name")).
				OrderBy("avg_sale DESC")
		},
	})
	register(Query{
		Name: "never_sold", Catalog: "retail",
		Description: "products without a single sale",
		Columns:     []string{"product_id", "product_name"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("p", "product_id"), b.col("p", "product_name")).
				From(b.from("DIM_PRODUCT", "p")).
				LeftJoin(b.join("FACT_SALES", "f", b.col("f", "product_id"), b.col("p", "product_id"))).
				Where(b.col("f", "sale_id") + " IS NULL").
				OrderBy(b.col("p", "product_id"))
		},
	})
	register(Query{
		Name: "revenue_by_category", Catalog: "retail",
		Description: "sales revenue per product category",
		Columns:     []string{"category", "revenue"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("p", "category"), "SUM("+b.col("f", "total_amount")+") AS revenue").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_PRODUCT", "p", b.col("p", "product_id"), b.col("f", "product_id"))).
				GroupBy(b.col("p", "category")).
				OrderBy("revenue DESC")
		},
	})
	register(Query{
		Name: "sales_by_store", Catalog: "retail",
		Description: "revenue per store",
		Columns:     []string{"store_name", "state", "revenue"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("s", "store_name"), b.col("s", "state"), "SUM("+b.col("f", "total_amount")+") AS revenue").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_STORE", "s", b.col("s", "store_id"), b.col("f", "store_id"))).
				GroupBy(b.col("s", "store_name"), b.col("s", "state")).
				OrderBy("revenue DESC")
		},
	})
	register(Query{
		Name: "revenue_by_make", Catalog: "vehicle",
		Description: "units and revenue per vehicle make",
		Columns:     []string{"Make", "units", "revenue"},
		build: func(b builder, _ Params) squirrel.SelectBuilder {
			return b.sel(b.col("v", "Make"),
				"SUM("+b.col("f", "QuantitySold")+") AS units",
				"SUM("+b.col("f", "TotalAmount")+") AS revenue").
				From(b.from("FACT_SALES", "f")).
				Join(b.join("DIM_VEHICLE", "v", b.col("v", "VehicleKey"), b.col("f", "VehicleKey"))).
				GroupBy(b.col("v", "Make")).
				OrderBy("revenue DESC")
		},
	})
	register(Query{
		Name: "low_stock_vehicles", Catalog: "vehicle",
		Description: "vehicles whose lowest monthly stock level is at or below the threshold",
		Columns:     []string{"VehicleID", "min_stock"},
		build: func(b builder, p Params) squirrel.SelectBuilder {
			minStock := "MIN(" + b.col("i", "StockLevel") + ")"
			return b.sel(b.col("v", "VehicleID"), minStock+" AS min_stock").
				From(b.from("FACT_INVENTORY", "i")).
				Join(b.join("DIM_VEHICLE", "v", b.col("v", "VehicleKey"), b.col("i", "VehicleKey"))).
				GroupBy(b.col("v", "VehicleID")).
				Having(minStock+" <= ?", p.Threshold).
				OrderBy("min_stock", b.col("v", "VehicleID"))
		},
	})
}
