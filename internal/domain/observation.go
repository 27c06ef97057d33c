package domain

import "time"

// Canonical column names.
const (
	ColCity         = "city"
	ColTemperature  = "temperature"
	ColHumidity     = "humidity_percent"
	ColTimestamp    = "timestamp"
	ColTimestampISO = "timestamp_iso"
	ColFetchedAt    = "fetched_at"
	ColFetchedAtISO = "fetched_at_iso"
)

// CanonicalColumns is the column order of every canonical table.
var CanonicalColumns = []string{
	ColCity,
	ColTemperature,
	ColHumidity,
	ColTimestamp,
	ColTimestampISO,
	ColFetchedAt,
	ColFetchedAtISO,
}

// Observation is one canonical weather reading. A nil field is a null:
// either the source omitted it or its value could not be interpreted.
type Observation struct {
	City            *string
	Temperature     *float64 // °C, rounded to 2 decimals
	HumidityPercent *float64 // clipped into [0, 100]
	Timestamp       *int64   // unix seconds, observation time
	TimestampISO    *time.Time
	FetchedAt       *int64 // unix seconds, ingestion time
	FetchedAtISO    *time.Time
}

// Values returns the observation's cells in CanonicalColumns order.
func (o Observation) Values() []any {
	return []any{
		deref(o.City),
		deref(o.Temperature),
		deref(o.HumidityPercent),
		deref(o.Timestamp),
		deref(o.TimestampISO),
		deref(o.FetchedAt),
		deref(o.FetchedAtISO),
	}
}

// ObservationTable lays observations out as a canonical table.
func ObservationTable(obs []Observation) *Table {
	t := NewTable(CanonicalColumns...)
	for _, o := range obs {
		// Values always matches CanonicalColumns.
		_ = t.AppendRow(o.Values()...)
	}
	return t
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}
