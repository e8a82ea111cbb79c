// Package csvgen derives the vehicle star schema (dimension and fact CSVs)
// from a flat vehicle dataset.
package csvgen

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"starload/internal/datasource"
	"starload/internal/datasource/httpds"
	csvparser "starload/internal/parser/csv"
	"starload/pkg/records"
)

// Input columns of the vehicle dataset.
const (
	colMake         = "Make"
	colModel        = "Model"
	colYear         = "Year"
	colFuelType     = "Engine Fuel Type"
	colTransmission = "Transmission Type"
	colCylinders    = "Engine Cylinders"
	colDoors        = "Number of Doors"
	colDrivenWheels = "Driven_Wheels"
	colHP           = "Engine HP"
	colMSRP         = "MSRP"
)

// RequiredColumns are the dataset columns Generate reads.
var RequiredColumns = []string{
	colMake, colModel, colYear, colFuelType, colTransmission,
	colCylinders, colDoors, colDrivenWheels, colHP, colMSRP,
}

// Options configures Generate.
type Options struct {
	// Year is the calendar year covered by dim_date, sales and inventory.
	Year int
	// Seed makes the random sale dates, dealerships and stock levels
	// reproducible.
	Seed int64
	// MaxStock is the inclusive upper bound of a stock snapshot.
	MaxStock int
}

// File is one generated CSV.
type File struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Dataset is the generated star schema, in load order.
type Dataset struct {
	Files []File
}

// File returns the generated file called name.
func (d Dataset) File(name string) (File, bool) {
	for _, f := range d.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Dealerships is the fixed dealership dimension.
var Dealerships = [][]string{
	{"1", "D001", "New York, NY", "Franchise", "New Cars"},
	{"2", "D002", "Los Angeles, CA", "Independent", "Used Cars"},
	{"3", "D003", "Chicago, IL", "Franchise", "New and Used Cars"},
	{"4", "D004", "Houston, TX", "Franchise", "New Cars"},
	{"5", "D005", "Phoenix, AZ", "Independent", "Used Cars"},
	{"6", "D006", "Philadelphia, PA", "Franchise", "New and Used Cars"},
	{"7", "D007", "San Antonio, TX", "Independent", "Used Cars"},
	{"8", "D008", "San Diego, CA", "Franchise", "New Cars"},
	{"9", "D009", "Dallas, TX", "Franchise", "New and Used Cars"},
	{"10", "D010", "San Jose, CA", "Independent", "Used Cars"},
	{"11", "D011", "Austin, TX", "Franchise", "New Cars"},
	{"12", "D012", "Jacksonville, FL", "Independent", "Used Cars"},
	{"13", "D013", "San Francisco, CA", "Franchise", "New and Used Cars"},
	{"14", "D014", "Columbus, OH", "Independent", "Used Cars"},
	{"15", "D015", "Fort Worth, TX", "Franchise", "New Cars"},
}

func cell(r records.Record, col string) string {
	if s, ok := r[col].(string); ok {
		return s
	}
	return ""
}

// Generate builds the five vehicle CSVs from in.
//
// A vehicle is identified by Make_Model_Year; its VehicleKey is the 1-based
// position of its first occurrence. Every input row is one sale of one unit
// at MSRP on a random day of the year at a random dealership. Inventory has
// one snapshot per vehicle on the first of every month.
func Generate(in records.Table, opt Options) (Dataset, error) {
	if missing := in.MissingColumns(RequiredColumns); len(missing) > 0 {
		return Dataset{}, fmt.Errorf("csvgen: input lacks columns %v", missing)
	}
	if opt.Year == 0 {
		opt.Year = 2023
	}
	if opt.MaxStock <= 0 {
		opt.MaxStock = 20
	}
	rng := rand.New(rand.NewSource(opt.Seed))

	days := calendar(opt.Year)

	vehicles := File{
		Name:   "dim_vehicle.csv",
		Header: []string{"VehicleKey", "VehicleID", "Make", "Model", "Year", "FuelType", "Transmission", "Engine", "NumberOfDoors", "Drivetrain", "MaxPower", "Price"},
	}
	sales := File{
		Name:   "fact_sales.csv",
		Header: []string{"SaleID", "DateKey", "VehicleKey", "DealershipKey", "QuantitySold", "TotalAmount"},
	}
	keys := map[string]int{}
	var order []int
	for i, r := range in.Rows {
		idx := i + 1
		id := fmt.Sprintf("%s_%s_%s", cell(r, colMake), cell(r, colModel), cell(r, colYear))
		key, seen := keys[id]
		if !seen {
			key = idx
			keys[id] = key
			order = append(order, key)
			vehicles.Rows = append(vehicles.Rows, []string{
				strconv.Itoa(idx), id,
				cell(r, colMake), cell(r, colModel), cell(r, colYear),
				cell(r, colFuelType), cell(r, colTransmission),
				cell(r, colCylinders) + "-cylinder",
				cell(r, colDoors), cell(r, colDrivenWheels),
				cell(r, colHP), cell(r, colMSRP),
			})
		}

		day := days[rng.Intn(len(days))]
		sales.Rows = append(sales.Rows, []string{
			strconv.Itoa(idx),
			dateKey(day),
			strconv.Itoa(key),
			strconv.Itoa(rng.Intn(len(Dealerships)) + 1),
			"1",
			cell(r, colMSRP),
		})
	}

	dates := File{
		Name:   "dim_date.csv",
		Header: []string{"DateKey", "Date", "Year", "Month", "MonthName", "Quarter"},
	}
	for _, d := range days {
		dates.Rows = append(dates.Rows, []string{
			dateKey(d),
			d.Format("2006-01-02"),
			strconv.Itoa(d.Year()),
			strconv.Itoa(int(d.Month())),
			d.Month().String(),
			strconv.Itoa((int(d.Month())-1)/3 + 1),
		})
	}

	inventory := File{
		Name:   "fact_inventory.csv",
		Header: []string{"InventoryID", "DateKey", "VehicleKey", "StockLevel"},
	}
	id := 0
	for _, key := range order {
		for m := time.January; m <= time.December; m++ {
			id++
			inventory.Rows = append(inventory.Rows, []string{
				strconv.Itoa(id),
				dateKey(time.Date(opt.Year, m, 1, 0, 0, 0, 0, time.UTC)),
				strconv.Itoa(key),
				strconv.Itoa(rng.Intn(opt.MaxStock + 1)),
			})
		}
	}

	dealers := File{
		Name:   "dim_dealership.csv",
		Header: []string{"DealershipKey", "DealershipID", "Location", "OwnerType", "SellerType"},
		Rows:   Dealerships,
	}

	return Dataset{Files: []File{vehicles, dealers, dates, sales, inventory}}, nil
}

func calendar(year int) []time.Time {
	var out []time.Time
	for d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func dateKey(d time.Time) string { return d.Format("20060102") }

// Write stores every file of ds under dir, creating dir when needed.
func Write(dir string, ds Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csvgen: %w", err)
	}
	for _, f := range ds.Files {
		if err := writeFile(filepath.Join(dir, f.Name), f); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, f File) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvgen: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("csvgen: close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(out)
	if err := w.Write(f.Header); err != nil {
		return fmt.Errorf("csvgen: write %s: %w", path, err)
	}
	if err := w.WriteAll(f.Rows); err != nil {
		return fmt.Errorf("csvgen: write %s: %w", path, err)
	}
	return nil
}

// Run reads the dataset at in (a path or URL), generates the star schema
// and writes it to outDir.
func Run(ctx context.Context, in, outDir string, opt Options, client *httpds.Client, log logrus.FieldLogger) (Dataset, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rc, err := datasource.Resolve(in, client).Open(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("csvgen: %w", err)
	}
	defer rc.Close()

	src, err := csvparser.ReadTable(ctx, rc, csvparser.Options{TrimSpace: true})
	if err != nil {
		return Dataset{}, fmt.Errorf("csvgen: read %s: %w", in, err)
	}
	ds, err := Generate(src, opt)
	if err != nil {
		return Dataset{}, err
	}
	if err := Write(outDir, ds); err != nil {
		return Dataset{}, err
	}
	for _, f := range ds.Files {
		log.WithFields(logrus.Fields{"file": filepath.Join(outDir, f.Name), "rows": len(f.Rows)}).Info("csvgen: wrote file")
	}
	return ds, nil
}
