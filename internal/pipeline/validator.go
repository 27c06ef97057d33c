package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/tabular"
)

// Source is one canonical file to validate, identified in problems by Label.
type Source struct {
	Label string
	Path  string
}

// DefaultSources returns the CSV and Parquet canonical outputs.
func DefaultSources(csvPath, parquetPath string) []Source {
	return []Source{
		{Label: "CSV", Path: csvPath},
		{Label: "PARQUET", Path: parquetPath},
	}
}

// Validator checks canonical files against a schema.
type Validator struct {
	schema          domain.Schema
	writeNormalized bool
	logger          *slog.Logger
}

// NewValidator creates a Validator. When writeNormalized is set, each
// successfully coerced source is re-saved next to its input.
func NewValidator(schema domain.Schema, writeNormalized bool, logger *slog.Logger) *Validator {
	return &Validator{schema: schema, writeNormalized: writeNormalized, logger: logger}
}

// Validate checks every source in order and returns the report together with
// the coerced table of each source that could be processed, keyed by label.
// A source that is missing or fails structurally contributes one problem and
// does not stop the others.
func (v *Validator) Validate(sources []Source) (*domain.ValidationReport, map[string]*domain.Table) {
	report := domain.NewValidationReport()
	tables := make(map[string]*domain.Table, len(sources))

	for _, src := range sources {
		coerced, problems, err := v.validateSource(src)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			report.AddProblems(fmt.Sprintf("[%s] Missing file: %s", src.Label, src.Path))
			continue
		case err != nil:
			report.AddProblems(fmt.Sprintf("[%s] Exception: %v", src.Label, err))
			continue
		}

		report.AddProblems(problems...)
		report.Summaries[src.Label] = domain.Summarize(coerced, v.schema)
		tables[src.Label] = coerced
		v.logger.Debug("source validated", "source", src.Label, "rows", coerced.Len(), "problems", len(problems))

		if v.writeNormalized {
			path := tabular.NormalizedPath(src.Path)
			if err := v.writeCopy(path, coerced); err != nil {
				report.AddProblems(fmt.Sprintf("[%s] Exception: %v", src.Label, err))
			}
		}
	}

	if report.Passed() {
		v.logger.Info("validation passed", "sources", len(sources))
	} else {
		v.logger.Warn("validation failed", "problems", len(report.Problems))
	}
	return report, tables
}

func (v *Validator) validateSource(src Source) (*domain.Table, []string, error) {
	if _, err := os.Stat(src.Path); err != nil {
		return nil, nil, err
	}
	codec, err := tabular.ForPath(src.Path)
	if err != nil {
		return nil, nil, err
	}
	raw, err := codec.Read(src.Path)
	if err != nil {
		return nil, nil, err
	}
	coerced, err := domain.CoerceTable(raw, v.schema)
	if err != nil {
		return nil, nil, err
	}
	return coerced, domain.CheckTable(coerced, v.schema, src.Label), nil
}

func (v *Validator) writeCopy(path string, t *domain.Table) error {
	codec, err := tabular.ForPath(path)
	if err != nil {
		return err
	}
	return codec.Write(path, t)
}
