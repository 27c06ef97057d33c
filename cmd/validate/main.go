// Command validate checks the canonical CSV and Parquet outputs against the
// observation schema, writes a JSON report, and exits 1 when any problem
// was found.
//
// Usage:
//
//	go run ./cmd/validate -csv data/clean_data.csv -parquet data/clean_data.parquet \
//	  -report data/validation_report.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
	"github.com/couchcryptid/weather-data-etl/internal/pipeline"
)

func main() {
	csvPath := flag.String("csv", "data/clean_data.csv", "canonical CSV path")
	parquetPath := flag.String("parquet", "data/clean_data.parquet", "canonical Parquet path")
	reportPath := flag.String("report", "data/validation_report.json", "report output path")
	writeNormalized := flag.Bool("write-normalized", true, "re-save each coerced source as <name>.normalized.<ext>")
	flag.Parse()

	os.Exit(run(*csvPath, *parquetPath, *reportPath, *writeNormalized))
}

func run(csvPath, parquetPath, reportPath string, writeNormalized bool) int {
	logger := observability.NewLoggerFromEnv()
	v := pipeline.NewValidator(domain.DefaultSchema(), writeNormalized, logger)

	report, _ := v.Validate(pipeline.DefaultSources(csvPath, parquetPath))
	if err := pipeline.WriteReport(reportPath, report); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	pipeline.PrintReport(os.Stdout, report, reportPath)
	if !report.Passed() {
		return 1
	}
	return 0
}
