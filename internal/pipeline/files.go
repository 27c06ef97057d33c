package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// ReadRaw reads and parses a raw observation file.
func ReadRaw(path string) ([]domain.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw input: %w", err)
	}
	records, err := domain.ParseRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// WriteRaw writes records as an indented JSON array, replacing any existing file.
func WriteRaw(path string, records []domain.RawRecord) error {
	if records == nil {
		records = []domain.RawRecord{}
	}
	return writeJSON(path, records)
}

// WriteReport writes the validation report, replacing any earlier report at path.
func WriteReport(path string, report *domain.ValidationReport) error {
	return writeJSON(path, report)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
