// Command report runs a named analytic query against the configured
// warehouse and prints the result as a text table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"starload/internal/config"
	"starload/internal/logging"
	"starload/internal/report"
	"starload/internal/storage"

	_ "starload/internal/storage/all"
)

type options struct {
	envFile   string
	query     string
	list      bool
	limit     int
	threshold int
}

// openFn is a test seam over the storage registry.
var openFn = storage.New

func main() {
	var o options
	flag.StringVar(&o.envFile, "env", "", "path to a .env file")
	flag.StringVar(&o.query, "query", "", "query to run (see -list)")
	flag.BoolVar(&o.list, "list", false, "list the available queries and exit")
	flag.IntVar(&o.limit, "limit", 0, "maximum number of rows (0 = all)")
	flag.IntVar(&o.threshold, "threshold", report.DefaultThreshold, "stock level threshold for low_stock_vehicles")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, w io.Writer) error {
	if o.list || o.query == "" {
		return listQueries(w)
	}
	if _, ok := report.Lookup(o.query); !ok {
		return fmt.Errorf("unknown query %q; use -list", o.query)
	}

	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	sc, err := cfg.Database.StorageConfig()
	if err != nil {
		return err
	}
	repo, err := openFn(ctx, sc)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Database.Redacted(), err)
	}
	defer repo.Close()

	log.WithField("query", o.query).Debug("running report")
	res, err := report.Reporter{Repo: repo}.Run(ctx, o.query, report.Params{Limit: o.limit, Threshold: o.threshold})
	if err != nil {
		return err
	}
	return report.Render(w, res)
}

func listQueries(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tCATALOG\tDESCRIPTION")
	for _, q := range report.Queries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.Name, q.Catalog, q.Description)
	}
	return tw.Flush()
}
