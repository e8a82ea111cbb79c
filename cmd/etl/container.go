// Package main wires configuration, storage, metrics and the job chain into
// the starload binary. It depends on storage-agnostic interfaces only; the
// backends register themselves through storage/all.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"starload/internal/config"
	"starload/internal/datasource/httpds"
	"starload/internal/etl"
	"starload/internal/logging"
	"starload/internal/metrics"
	"starload/internal/metrics/datadog"
	"starload/internal/metrics/prompush"
	"starload/internal/notify/amqpnotify"
	"starload/internal/schema"
)

// options are the command-line overrides; empty values keep the
// environment configuration.
type options struct {
	envFile        string
	catalog        string
	manifest       string
	dataDir        string
	schedule       bool
	validate       bool
	reportJSON     string
	verbose        bool
	metricsBackend string
	pushgatewayURL string
}

// container holds everything one invocation needs.
type container struct {
	cfg     *config.Config
	log     *logrus.Logger
	runner  *etl.Runner
	jobs    []etl.Job
	backend metrics.Backend
	notify  reportPublisher
}

// reportPublisher is satisfied by *amqpnotify.Publisher.
type reportPublisher interface {
	PublishReport(ctx context.Context, rep etl.Report) error
	Close() error
}

// setupLogFn is a test seam; tests route logs away from stderr.
var setupLogFn = logging.Setup

// dialNotifyFn is a test seam for the broker connection.
var dialNotifyFn = func(cfg amqpnotify.Config) (reportPublisher, error) {
	return amqpnotify.Dial(cfg)
}

func (o options) envFiles() []string {
	if o.envFile == "" {
		return nil
	}
	return []string{o.envFile}
}

// newContainer loads the configuration, applies flag and manifest
// overrides, and builds the runner.
func newContainer(ctx context.Context, o options) (*container, error) {
	cfg, err := config.Load(o.envFiles()...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, o)

	log := setupLogFn(cfg.App.LogLevel, cfg.App.LogFormat)

	client := httpds.NewClient(httpds.Config{
		Timeout:    cfg.ETL.HTTPTimeout,
		MaxRetries: cfg.ETL.HTTPRetries,
	})

	c := &container{cfg: cfg, log: log}
	csvOpt := config.CSVOptions{}.ReaderOptions()

	var manifestJobs []config.ManifestJob
	if cfg.ETL.Manifest != "" {
		m, err := config.LoadManifest(ctx, cfg.ETL.Manifest, client)
		if err != nil {
			return nil, err
		}
		issues := config.ValidateManifest(m)
		for _, iss := range issues {
			entry := log.WithFields(logrus.Fields{"path": iss.Path, "manifest": cfg.ETL.Manifest})
			if iss.Severity == config.SeverityError {
				entry.Error(iss.Message)
			} else {
				entry.Warn(iss.Message)
			}
		}
		if config.HasErrors(issues) {
			return nil, fmt.Errorf("manifest %s is invalid", cfg.ETL.Manifest)
		}
		if m.Catalog != "" && o.catalog == "" {
			cfg.ETL.Catalog = m.Catalog
		}
		if m.DataDir != "" && o.dataDir == "" {
			cfg.ETL.DataDir = m.DataDir
		}
		m.Runtime.Apply(&cfg.ETL)
		csvOpt = m.CSV.ReaderOptions()
		manifestJobs = m.Jobs
	}

	cat, ok := schema.Lookup(cfg.ETL.Catalog)
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q (known: %s)", cfg.ETL.Catalog, strings.Join(schema.Names(), ", "))
	}
	c.jobs = jobsFor(cat, manifestJobs)

	sc, err := cfg.Database.StorageConfig()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	c.runner = &etl.Runner{
		Catalog:           cat,
		Open:              etl.OpenConfig(sc),
		DataDir:           cfg.ETL.DataDir,
		CSV:               csvOpt,
		BatchSize:         cfg.ETL.BatchSize,
		ReferentialChecks: cfg.ETL.ReferentialChecks,
		AutoCreate:        cfg.ETL.AutoCreate,
		Verify:            cfg.ETL.Verify,
		Extractor:         etl.Extractor{Client: client, Logger: log},
		Logger:            log,
	}

	log.WithFields(logrus.Fields{
		"catalog":  cat.Name,
		"driver":   sc.Kind,
		"database": cfg.Database.Redacted(),
		"data_dir": cfg.ETL.DataDir,
		"jobs":     len(c.jobs),
	}).Debug("configuration loaded")
	return c, nil
}

func applyFlags(cfg *config.Config, o options) {
	if o.catalog != "" {
		cfg.ETL.Catalog = o.catalog
	}
	if o.manifest != "" {
		cfg.ETL.Manifest = o.manifest
	}
	if o.dataDir != "" {
		cfg.ETL.DataDir = o.dataDir
	}
	if o.schedule {
		cfg.Schedule.Enabled = true
	}
	if o.verbose {
		cfg.App.LogLevel = "debug"
	}
	if o.metricsBackend != "" {
		cfg.Metrics.Backend = o.metricsBackend
	}
	if o.pushgatewayURL != "" {
		cfg.Metrics.PushgatewayURL = o.pushgatewayURL
	}
}

// jobsFor returns the manifest jobs, or the catalog's default chain when
// the manifest lists none.
func jobsFor(cat schema.Catalog, mj []config.ManifestJob) []etl.Job {
	if len(mj) == 0 {
		return etl.JobsFromCatalog(cat)
	}
	out := make([]etl.Job, len(mj))
	for i, j := range mj {
		out[i] = etl.Job{
			Name:      j.Name,
			File:      j.File,
			Table:     j.Table,
			HeaderMap: j.HeaderMap,
			Dedup:     schema.DedupPolicy(j.Dedup),
		}
	}
	return out
}

// newMetricsBackend builds the configured backend; nil means metrics are
// disabled.
func newMetricsBackend(m config.Metrics) (metrics.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
		return nil, nil
	case "prometheus", "pushgateway":
		return prompush.NewBackend("starload", m.PushgatewayURL)
	case "datadog":
		return datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: m.Tags,
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
}

// installMetrics activates the configured backend. A backend that cannot
// be built leaves metrics disabled.
func (c *container) installMetrics() {
	b, err := newMetricsBackend(c.cfg.Metrics)
	if err != nil {
		c.log.WithError(err).Warn("metrics: disabled")
		return
	}
	if b == nil {
		c.log.Debug("metrics: disabled")
		return
	}
	metrics.SetBackend(b)
	c.backend = b
	c.log.WithField("backend", c.cfg.Metrics.Backend).Info("metrics: enabled")
}

func (c *container) flushMetrics() {
	if c.backend == nil {
		return
	}
	if err := metrics.Flush(); err != nil {
		c.log.WithError(err).Warn("metrics: flush failed")
	}
}

// closeMetrics flushes once more and releases backends that hold a
// connection. It runs at exit only; flushMetrics runs after every run.
func (c *container) closeMetrics() {
	if c.backend == nil {
		return
	}
	c.flushMetrics()
	if cl, ok := c.backend.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			c.log.WithError(err).Warn("metrics: close failed")
		}
	}
	c.backend = nil
}

// openNotifier connects the report publisher when NOTIFY_AMQP_URL is set.
// A broker that cannot be reached leaves publishing disabled.
func (c *container) openNotifier() {
	n := c.cfg.Notify
	if n.AMQPURL == "" {
		return
	}
	p, err := dialNotifyFn(amqpnotify.Config{
		URL:        n.AMQPURL,
		Exchange:   n.AMQPExchange,
		RoutingKey: n.AMQPRoutingKey,
	})
	if err != nil {
		c.log.WithError(err).Warn("notify: disabled")
		return
	}
	c.notify = p
	c.log.WithField("exchange", n.AMQPExchange).Info("notify: publishing run reports")
}

func (c *container) publishReport(ctx context.Context, rep etl.Report) {
	if c.notify == nil {
		return
	}
	if err := c.notify.PublishReport(ctx, rep); err != nil {
		c.log.WithError(err).WithField("run_id", rep.RunID.String()).Warn("notify: publish failed")
	}
}

func (c *container) closeNotifier() {
	if c.notify == nil {
		return
	}
	if err := c.notify.Close(); err != nil {
		c.log.WithError(err).Warn("notify: close")
	}
	c.notify = nil
}

// writeReport writes rep as JSON to path; "-" means w.
func writeReport(path string, rep etl.Report, w io.Writer) error {
	if path == "" {
		return nil
	}
	b, err := rep.MarshalIndent()
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = w.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// logReport prints one line per job and the run summary.
func logReport(log logrus.FieldLogger, rep etl.Report) {
	for _, j := range rep.Jobs {
		entry := log.WithFields(logrus.Fields{
			"job":       j.Name,
			"table":     j.Table,
			"status":    j.Status,
			"extracted": j.Extracted,
			"written":   j.Load.Written,
			"rejected":  j.Load.Rejected,
			"duration":  j.Duration,
		})
		if j.Failed() {
			entry.Error(j.Error)
			continue
		}
		entry.Info("job finished")
	}
	s := rep.Summary()
	log.WithFields(logrus.Fields{
		"run_id":   rep.RunID.String(),
		"ok":       s.OK,
		"skipped":  s.Skipped,
		"failed":   s.Failed,
		"written":  s.Written,
		"rejected": s.Rejected,
		"duration": rep.Duration(),
	}).Info("run summary")
}
