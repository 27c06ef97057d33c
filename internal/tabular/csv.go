package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// CSV stores tables as comma-separated text with a header row. Every cell is
// read back as text; an empty cell is a null.
type CSV struct{}

// Read loads the file at path.
func (CSV) Read(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read csv %s: no header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}

	t := domain.NewTable(header...)
	if len(t.Columns()) != len(header) {
		return nil, fmt.Errorf("read csv %s: duplicate column in header", path)
	}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			if cell != "" {
				row[i] = cell
			}
		}
		if err := t.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
	}
	return t, nil
}

// Write replaces the file at path.
func (CSV) Write(path string, t *domain.Table) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := writeCSV(w, t); err != nil {
		f.Close()
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(w *csv.Writer, t *domain.Table) error {
	if err := w.Write(t.Columns()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns()))
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = formatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
