// Package tabular reads and writes domain tables as CSV and Parquet files.
package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// Codec persists a table at a path.
type Codec interface {
	Read(path string) (*domain.Table, error)
	Write(path string, t *domain.Table) error
}

// ForPath picks a codec from the file extension.
func ForPath(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV{}, nil
	case ".parquet", ".pq":
		return Parquet{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q (use .csv or .parquet)", filepath.Ext(path))
	}
}

// NormalizedPath returns the sibling path used for a re-saved, type-coerced
// copy: data/clean_data.csv -> data/clean_data.normalized.csv.
func NormalizedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".normalized" + ext
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return nil
}
