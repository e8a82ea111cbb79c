// Command csvgen derives the vehicle star-schema CSVs from a flat vehicle
// dataset. The output directory is the data directory of the "vehicle"
// catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"starload/internal/config"
	"starload/internal/csvgen"
	"starload/internal/datasource/httpds"
	"starload/internal/logging"
)

var (
	flagIn    = flag.String("in", "data.csv", "vehicle dataset path or URL")
	flagOut   = flag.String("out", "out", "output directory")
	flagYear  = flag.Int("year", 2023, "calendar year of the date dimension, sales and inventory")
	flagSeed  = flag.Int64("seed", 1, "random seed for sale dates, dealerships and stock levels")
	flagStock = flag.Int("max-stock", 20, "largest generated stock level")
	flagEnv   = flag.String("env", "", "path to a .env file")
)

func main() {
	flag.Parse()

	var envFiles []string
	if *flagEnv != "" {
		envFiles = append(envFiles, *flagEnv)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvgen: load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := httpds.NewClient(httpds.Config{
		Timeout:    cfg.ETL.HTTPTimeout,
		MaxRetries: cfg.ETL.HTTPRetries,
	})
	_, err = csvgen.Run(ctx, *flagIn, *flagOut, csvgen.Options{
		Year:     *flagYear,
		Seed:     *flagSeed,
		MaxStock: *flagStock,
	}, client, log)
	if err != nil {
		log.WithError(err).Error("csvgen failed")
		stop()
		os.Exit(1)
	}
}
