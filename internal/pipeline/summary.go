package pipeline

import (
	"fmt"
	"io"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// PrintReport writes the human-readable validation outcome: a PASSED or
// FAILED line naming the report path, then one line per problem.
func PrintReport(w io.Writer, report *domain.ValidationReport, path string) {
	if report.Passed() {
		fmt.Fprintf(w, "VALIDATION PASSED. See %s\n", path)
		return
	}
	fmt.Fprintf(w, "VALIDATION FAILED. See %s\n", path)
	for _, p := range report.Problems {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

// PrintLoad writes the insertion summary of one load.
func PrintLoad(w io.Writer, path string, res LoadResult) {
	fmt.Fprintf(w, "[load] File: %s\n", path)
	fmt.Fprintf(w, "[load] Total valid rows: %d\n", res.Total)
	fmt.Fprintf(w, "[load] Skipped (already in DB): %d\n", res.Skipped)
	fmt.Fprintf(w, "[load] Inserted: %d\n", res.Inserted)
}
