package schema

import (
	"fmt"
	"sort"
)

// Job binds an input file to its destination table.
type Job struct {
	File  string `json:"file"`
	Table string `json:"table"`
}

// Catalog is a named warehouse: its tables and the default load chain.
// Dimensions come before the facts that reference them.
type Catalog struct {
	Name   string
	Tables []Table
	Jobs   []Job
}

// Table returns the rule set for name.
func (c Catalog) Table(name string) (Table, bool) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Validate checks every table plus the load chain and reference targets.
func (c Catalog) Validate() error {
	for _, t := range c.Tables {
		if err := t.Validate(); err != nil {
			return err
		}
		for _, r := range t.References {
			ref, ok := c.Table(r.Table)
			if !ok {
				return fmt.Errorf("schema: %s: %s references unknown table", t.Name, r)
			}
			if _, ok := ref.Column(r.RefColumn); !ok {
				return fmt.Errorf("schema: %s: %s references unknown column", t.Name, r)
			}
		}
	}
	for _, j := range c.Jobs {
		if _, ok := c.Table(j.Table); !ok {
			return fmt.Errorf("schema: job %s targets unknown table %s", j.File, j.Table)
		}
	}
	return nil
}

var catalogs = map[string]Catalog{}

func register(c Catalog) { catalogs[c.Name] = c }

// Lookup returns the built-in catalog registered under name.
func Lookup(name string) (Catalog, bool) {
	c, ok := catalogs[name]
	return c, ok
}

// Names lists the built-in catalogs, sorted.
func Names() []string {
	out := make([]string, 0, len(catalogs))
	for n := range catalogs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func init() {
	register(Retail())
	register(Vehicle())
}

func str(name string, def any) Column {
	return Column{Name: name, Type: TypeString, Default: def, Trim: true}
}

func integer(name string) Column {
	return Column{Name: name, Type: TypeInt, Default: 0}
}

func money(name string) Column {
	return Column{Name: name, Type: TypeMoney, Default: 0.00, NonNegative: true}
}

// Retail is the product/store/customer sales warehouse.
func Retail() Catalog {
	return Catalog{
		Name: "retail",
		Tables: []Table{
			{
				Name: "DIM_PRODUCT",
				Kind: KindDimension,
				Columns: []Column{
					integer("product_id"),
					str("product_name", "Unknown"),
					str("category", "Miscellaneous"),
					money("unit_price"),
					{Name: "supplier_id", Type: TypeInt, Default: 0, Ensure: true},
				},
				Key: []string{"product_id"},
			},
			{
				Name: "DIM_STORE",
				Kind: KindDimension,
				Columns: []Column{
					integer("store_id"),
					str("store_name", "Unknown"),
					str("city", "Unknown"),
					{Name: "state", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseUpper},
					str("country", "Unknown"),
				},
				Key: []string{"store_id"},
			},
			{
				Name: "DIM_DATE",
				Kind: KindDimension,
				Columns: []Column{
					integer("date_id"),
					{Name: "full_date", Type: TypeDate, Nullable: true},
					integer("year"),
					integer("quarter"),
					integer("month"),
					integer("day"),
					{Name: "day_of_week", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseTitle},
				},
				Key: []string{"date_id"},
			},
			{
				Name: "DIM_CUSTOMER",
				Kind: KindDimension,
				Columns: []Column{
					integer("customer_id"),
					str("customer_name", "Unknown"),
					{Name: "email", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseLower},
				},
				Key: []string{"customer_id"},
			},
			{
				Name: "FACT_SALES",
				Kind: KindFact,
				Columns: []Column{
					integer("sale_id"),
					integer("date_id"),
					integer("product_id"),
					integer("store_id"),
					integer("customer_id"),
					{Name: "quantity", Type: TypeInt, Default: 0, NonNegative: true},
					money("total_amount"),
				},
				Key: []string{"sale_id"},
				References: []Reference{
					{Column: "date_id", Table: "DIM_DATE", RefColumn: "date_id"},
					{Column: "product_id", Table: "DIM_PRODUCT", RefColumn: "product_id"},
					{Column: "store_id", Table: "DIM_STORE", RefColumn: "store_id"},
					{Column: "customer_id", Table: "DIM_CUSTOMER", RefColumn: "customer_id"},
				},
			},
		},
		Jobs: []Job{
			{File: "dim-product-csv.csv", Table: "DIM_PRODUCT"},
			{File: "dim-store-csv.csv", Table: "DIM_STORE"},
			{File: "dim-date-csv.csv", Table: "DIM_DATE"},
			{File: "dim-customer-csv.csv", Table: "DIM_CUSTOMER"},
			{File: "fact-sales-csv.csv", Table: "FACT_SALES"},
		},
	}
}

// Vehicle is the dealership sales and inventory warehouse produced by
// internal/csvgen.
func Vehicle() Catalog {
	return Catalog{
		Name: "vehicle",
		Tables: []Table{
			{
				Name: "DIM_VEHICLE",
				Kind: KindDimension,
				Columns: []Column{
					integer("VehicleKey"),
					str("VehicleID", "Unknown"),
					str("Make", "Unknown"),
					str("Model", "Unknown"),
					integer("Year"),
					{Name: "FuelType", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseLower},
					{Name: "Transmission", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseUpper},
					str("Engine", "Unknown"),
					integer("NumberOfDoors"),
					{Name: "Drivetrain", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseLower},
					{Name: "MaxPower", Type: TypeFloat, Default: 0.0, NonNegative: true},
					money("Price"),
				},
				Key: []string{"VehicleKey"},
			},
			{
				Name: "DIM_DEALERSHIP",
				Kind: KindDimension,
				Columns: []Column{
					integer("DealershipKey"),
					{Name: "DealershipID", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseUpper},
					str("Location", "Unknown"),
					str("OwnerType", "Unknown"),
					str("SellerType", "Unknown"),
				},
				Key: []string{"DealershipKey"},
			},
			{
				Name: "DIM_DATE",
				Kind: KindDimension,
				Columns: []Column{
					integer("DateKey"),
					{Name: "Date", Type: TypeDate, Nullable: true},
					integer("Year"),
					integer("Month"),
					{Name: "MonthName", Type: TypeString, Default: "Unknown", Trim: true, Case: CaseTitle},
					integer("Quarter"),
				},
				Key: []string{"DateKey"},
			},
			{
				Name: "FACT_SALES",
				Kind: KindFact,
				Columns: []Column{
					integer("SaleID"),
					integer("DateKey"),
					integer("VehicleKey"),
					integer("DealershipKey"),
					{Name: "QuantitySold", Type: TypeInt, Default: 0, NonNegative: true},
					money("TotalAmount"),
				},
				Key: []string{"SaleID"},
				References: []Reference{
					{Column: "DateKey", Table: "DIM_DATE", RefColumn: "DateKey"},
					{Column: "VehicleKey", Table: "DIM_VEHICLE", RefColumn: "VehicleKey"},
					{Column: "DealershipKey", Table: "DIM_DEALERSHIP", RefColumn: "DealershipKey"},
				},
			},
			{
				Name: "FACT_INVENTORY",
				Kind: KindFact,
				Columns: []Column{
					integer("InventoryID"),
					integer("DateKey"),
					integer("VehicleKey"),
					{Name: "StockLevel", Type: TypeInt, Default: 0, NonNegative: true},
				},
				Key: []string{"InventoryID"},
				References: []Reference{
					{Column: "DateKey", Table: "DIM_DATE", RefColumn: "DateKey"},
					{Column: "VehicleKey", Table: "DIM_VEHICLE", RefColumn: "VehicleKey"},
				},
			},
		},
		Jobs: []Job{
			{File: "dim_vehicle.csv", Table: "DIM_VEHICLE"},
			{File: "dim_dealership.csv", Table: "DIM_DEALERSHIP"},
			{File: "dim_date.csv", Table: "DIM_DATE"},
			{File: "fact_sales.csv", Table: "FACT_SALES"},
			{File: "fact_inventory.csv", Table: "FACT_INVENTORY"},
		},
	}
}
