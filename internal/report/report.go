// Package report runs analytic queries over a loaded star schema and renders
// the results as text tables.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"starload/internal/storage"
)

// DefaultThreshold is the low-stock threshold when Params.Threshold is 0.
const DefaultThreshold = 5

// Result is a query's column names and rows.
type Result struct {
	Query   string
	Columns []string
	Rows    [][]any
}

// Reporter runs queries against one repository.
type Reporter struct {
	Repo storage.Repository
}

// SQL builds the statement for query name in the repository's dialect.
func (r Reporter) SQL(name string, p Params) (string, []any, error) {
	q, ok := Lookup(name)
	if !ok {
		return "", nil, fmt.Errorf("report: unknown query %q", name)
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	d := r.Repo.Dialect()
	sb := limit(q.build(builder{d: d}, p), d, p.Limit)
	return sb.ToSql()
}

// Run executes query name.
func (r Reporter) Run(ctx context.Context, name string, p Params) (Result, error) {
	sqlStr, args, err := r.SQL(name, p)
	if err != nil {
		return Result{}, err
	}
	rows, err := r.Repo.Query(ctx, sqlStr, args...)
	if err != nil {
		return Result{}, fmt.Errorf("report: %s: %w", name, err)
	}
	q, _ := Lookup(name)
	return Result{Query: name, Columns: q.Columns, Rows: rows}, nil
}

// limit caps rows in the dialect's syntax. SQL Server has no LIMIT; it
// pages an ordered result with OFFSET ... FETCH.
func limit(sb squirrel.SelectBuilder, d storage.Dialect, n int) squirrel.SelectBuilder {
	if n <= 0 {
		return sb
	}
	if d.Kind == storage.MSSQL.Kind {
		return sb.Suffix(fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n))
	}
	return sb.Limit(uint64(n))
}

// Render writes res as an aligned text table.
func Render(w io.Writer, res Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	rule := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		rule[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// FormatValue renders a driver value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
