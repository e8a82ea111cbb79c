package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"starload/internal/etl"
	"starload/internal/scheduler"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "starload/internal/storage/all"
)

// main is the entry point for the starload binary. It runs the job chain
// once, or daily with -schedule, and exits 1 when any job failed.
func main() {
	var o options
	flag.StringVar(&o.envFile, "env", "", "path to a .env file (default: ./.env, then ../.env)")
	flag.StringVar(&o.catalog, "catalog", "", "warehouse catalog to load (overrides ETL_CATALOG)")
	flag.StringVar(&o.manifest, "manifest", "", "JSON job manifest path or URL (overrides ETL_MANIFEST)")
	flag.StringVar(&o.dataDir, "data-dir", "", "directory or URL prefix of the input CSVs (overrides ETL_DATA_DIR)")
	flag.BoolVar(&o.schedule, "schedule", false, "run daily at SCHEDULE_AT instead of once")
	flag.BoolVar(&o.validate, "validate", false, "validate the configuration and manifest and exit")
	flag.StringVar(&o.reportJSON, "report-json", "", "write the run report as JSON to this path (- for stdout)")
	flag.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: none, prometheus or datadog (overrides METRICS_BACKEND)")
	flag.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides METRICS_PUSHGATEWAY_URL)")
	flag.BoolVar(&o.verbose, "v", false, "enable debug logs")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, o, os.Stdout)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, o options, stdout io.Writer) int {
	c, err := newContainer(ctx, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starload: %v\n", err)
		return 1
	}

	if o.validate {
		c.log.WithField("jobs", len(c.jobs)).Info("configuration is valid")
		return 0
	}

	c.installMetrics()
	defer c.closeMetrics()
	c.openNotifier()
	defer c.closeNotifier()

	if c.cfg.Schedule.Enabled {
		if err := runScheduled(ctx, c); err != nil {
			c.log.WithError(err).Error("scheduler stopped")
			return 1
		}
		return 0
	}

	rep, err := c.runner.Run(ctx, c.jobs)
	logReport(c.log, rep)
	c.publishReport(ctx, rep)
	if werr := writeReport(o.reportJSON, rep, stdout); werr != nil {
		c.log.WithError(werr).Error("write report")
	}
	if err != nil {
		c.log.WithError(err).Error("run failed")
		return 1
	}
	if rep.Failed() {
		return 1
	}
	return 0
}

// runScheduled blocks until ctx is canceled, running the chain daily.
func runScheduled(ctx context.Context, c *container) error {
	loc, err := c.cfg.Schedule.Location()
	if err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}
	svc := scheduler.NewService(c.runner, scheduler.Config{
		At:       c.cfg.Schedule.At,
		Location: loc,
		Jobs:     c.jobs,
		OnReport: func(rep etl.Report, _ error) {
			logReport(c.log, rep)
			c.publishReport(ctx, rep)
			c.flushMetrics()
		},
	}, c.log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
