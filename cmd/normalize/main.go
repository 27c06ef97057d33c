// Command normalize parses a raw observation file and writes the canonical
// table as CSV and, optionally, Parquet.
//
// Usage:
//
//	go run ./cmd/normalize -in data/raw_data.json -out data/clean_data.csv \
//	  -parquet data/clean_data.parquet
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
	"github.com/couchcryptid/weather-data-etl/internal/pipeline"
	"github.com/couchcryptid/weather-data-etl/internal/tabular"
)

func main() {
	in := flag.String("in", "data/raw_data.json", "raw input: JSON object, array, or NDJSON")
	out := flag.String("out", "data/clean_data.csv", "canonical CSV output path")
	parquetOut := flag.String("parquet", "", "optional canonical Parquet output path")
	flag.Parse()

	logger := observability.NewLoggerFromEnv()
	if err := run(*in, *out, *parquetOut, logger); err != nil {
		logger.Error("normalize failed", "error", err)
		os.Exit(1)
	}
}

func run(in, out, parquetOut string, logger *slog.Logger) error {
	records, err := pipeline.ReadRaw(in)
	if err != nil {
		return err
	}
	table := domain.ObservationTable(domain.Normalize(records))

	if err := (tabular.CSV{}).Write(out, table); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("wrote canonical table", "path", out, "records", len(records), "rows", table.Len())

	if parquetOut != "" {
		if err := (tabular.Parquet{}).Write(parquetOut, table); err != nil {
			return fmt.Errorf("write %s: %w", parquetOut, err)
		}
		logger.Info("wrote canonical table", "path", parquetOut, "rows", table.Len())
	}
	return nil
}
