package tabular

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// Parquet stores canonical tables in a typed columnar file. Columns outside
// the canonical set are not written. Date-time columns are stored as RFC 3339
// text and read back as UTC times.
type Parquet struct{}

type parquetRow struct {
	City            *string  `parquet:"city,optional"`
	Temperature     *float64 `parquet:"temperature,optional"`
	HumidityPercent *float64 `parquet:"humidity_percent,optional"`
	Timestamp       *int64   `parquet:"timestamp,optional"`
	TimestampISO    *string  `parquet:"timestamp_iso,optional"`
	FetchedAt       *int64   `parquet:"fetched_at,optional"`
	FetchedAtISO    *string  `parquet:"fetched_at_iso,optional"`
}

// Read loads the file at path. Only the columns present in the file's schema
// appear in the table.
func (Parquet) Read(path string) (*domain.Table, error) {
	present, err := parquetColumns(path)
	if err != nil {
		return nil, err
	}

	rows, err := parquet.ReadFile[parquetRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}

	t := domain.NewTable(present...)
	for _, r := range rows {
		cells := r.cells()
		values := make([]any, len(present))
		for i, name := range present {
			values[i] = cells[name]
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
	return t, nil
}

// Write replaces the file at path.
func (Parquet) Write(path string, t *domain.Table) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	rows := make([]parquetRow, t.Len())
	for i := range rows {
		rows[i] = rowFromTable(t, i)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

// parquetColumns lists the canonical columns declared in the file schema, in
// canonical order.
func parquetColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	inFile := make(map[string]bool)
	for _, field := range pf.Schema().Fields() {
		inFile[field.Name()] = true
	}
	var present []string
	for _, name := range domain.CanonicalColumns {
		if inFile[name] {
			present = append(present, name)
		}
	}
	return present, nil
}

func rowFromTable(t *domain.Table, i int) parquetRow {
	cell := func(name string) any {
		if !t.Has(name) {
			return nil
		}
		return t.Column(name)[i]
	}

	var r parquetRow
	if s, ok := domain.ToText(cell(domain.ColCity)); ok {
		r.City = &s
	}
	if f, ok := domain.ToFloat(cell(domain.ColTemperature)); ok {
		r.Temperature = &f
	}
	if f, ok := domain.ToFloat(cell(domain.ColHumidity)); ok {
		r.HumidityPercent = &f
	}
	if n, ok := domain.ToInt64(cell(domain.ColTimestamp)); ok {
		r.Timestamp = &n
	}
	if n, ok := domain.ToInt64(cell(domain.ColFetchedAt)); ok {
		r.FetchedAt = &n
	}
	r.TimestampISO = isoText(cell(domain.ColTimestampISO))
	r.FetchedAtISO = isoText(cell(domain.ColFetchedAtISO))
	return r
}

func (r parquetRow) cells() map[string]any {
	cells := map[string]any{
		domain.ColCity:         nil,
		domain.ColTemperature:  nil,
		domain.ColHumidity:     nil,
		domain.ColTimestamp:    nil,
		domain.ColTimestampISO: parseISO(r.TimestampISO),
		domain.ColFetchedAt:    nil,
		domain.ColFetchedAtISO: parseISO(r.FetchedAtISO),
	}
	if r.City != nil {
		cells[domain.ColCity] = *r.City
	}
	if r.Temperature != nil {
		cells[domain.ColTemperature] = *r.Temperature
	}
	if r.HumidityPercent != nil {
		cells[domain.ColHumidity] = *r.HumidityPercent
	}
	if r.Timestamp != nil {
		cells[domain.ColTimestamp] = *r.Timestamp
	}
	if r.FetchedAt != nil {
		cells[domain.ColFetchedAt] = *r.FetchedAt
	}
	return cells
}

func isoText(v any) *string {
	switch x := v.(type) {
	case time.Time:
		s := x.UTC().Format(time.RFC3339)
		return &s
	case string:
		if x == "" {
			return nil
		}
		return &x
	default:
		return nil
	}
}

func parseISO(s *string) any {
	if s == nil {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return ts.UTC()
}
