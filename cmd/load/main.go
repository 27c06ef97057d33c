// Command load inserts a canonical CSV or Parquet file into the reading
// store, skipping readings whose (city, timestamp) is already stored.
//
// Usage:
//
//	go run ./cmd/load data/clean_data.csv
//	go run ./cmd/load -database-url postgres://... data/clean_data.parquet
//	go run ./cmd/load -no-skip-existing data/clean_data.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/weather-data-etl/internal/adapter/storage"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
	"github.com/couchcryptid/weather-data-etl/internal/pipeline"
	"github.com/couchcryptid/weather-data-etl/internal/tabular"
)

func main() {
	databaseURL := flag.String("database-url", sharedcfg.EnvOrDefault("DATABASE_URL", "sqlite:///weather.db"), "store URL (sqlite:///path or postgres://...)")
	noSkip := flag.Bool("no-skip-existing", false, "insert even if (city, timestamp_unix) already exists")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <path.csv|path.parquet>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0), *databaseURL, *noSkip))
}

func run(path, databaseURL string, noSkip bool) int {
	logger := observability.NewLoggerFromEnv()

	codec, err := tabular.ForPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[load] ERROR: %v\n", err)
		return 1
	}
	table, err := codec.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[load] ERROR: File not found: %s\n", path)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[load] ERROR: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[load] ERROR: %v\n", err)
		return 1
	}
	store, err := storage.Open(ctx, databaseURL, batchSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[load] ERROR: %v\n", err)
		return 1
	}
	defer store.Close()

	mode := pipeline.SkipExisting
	if noSkip {
		mode = pipeline.Force
	}
	res, err := pipeline.NewLoader(store, logger).Load(ctx, table, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[load] ERROR: %v\n", err)
		return 1
	}

	pipeline.PrintLoad(os.Stdout, path, res)
	return 0
}
