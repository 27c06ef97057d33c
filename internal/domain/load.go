package domain

import "strings"

// Storage field names of a persisted reading.
const (
	FieldCity            = "city"
	FieldTemperatureC    = "temperature_c"
	FieldHumidityPercent = "humidity_percent"
	FieldTimestampUnix   = "timestamp_unix"
)

// StorageFields lists the fields every persisted reading requires.
var StorageFields = []string{FieldCity, FieldTemperatureC, FieldHumidityPercent, FieldTimestampUnix}

// FieldMapping maps one canonical column onto a storage field.
type FieldMapping struct {
	Source string
	Target string
}

// DefaultFieldMapping returns the canonical-to-storage mapping.
func DefaultFieldMapping() []FieldMapping {
	return []FieldMapping{
		{Source: ColCity, Target: FieldCity},
		{Source: ColTemperature, Target: FieldTemperatureC},
		{Source: ColHumidity, Target: FieldHumidityPercent},
		{Source: ColTimestamp, Target: FieldTimestampUnix},
	}
}

// Reading is a persisted weather observation. ID is assigned by the store.
type Reading struct {
	ID              int64   `json:"id,omitempty"`
	City            string  `json:"city"`
	TemperatureC    float64 `json:"temperature_c"`
	HumidityPercent int64   `json:"humidity_percent"`
	TimestampUnix   int64   `json:"timestamp_unix"`
}

// ReadingKey is the business key of a reading.
type ReadingKey struct {
	City          string
	TimestampUnix int64
}

// Key returns the reading's business key.
func (r Reading) Key() ReadingKey {
	return ReadingKey{City: r.City, TimestampUnix: r.TimestampUnix}
}

// PreparedBatch is a table reduced to insertable readings.
type PreparedBatch struct {
	Readings   []Reading
	Dropped    int // rows with a null or unconvertible required field
	Duplicates int // rows repeating an earlier business key
}

// PrepareReadings maps t onto storage fields and reduces it to valid,
// key-unique readings in table order.
//
// Source columns are renamed where present; columns already carrying the
// storage name are used as-is. A storage field that resolves to no column
// yields a *LoadIntegrityError.
func PrepareReadings(t *Table, mapping []FieldMapping) (PreparedBatch, error) {
	names := make(map[string]string, len(mapping))
	for _, m := range mapping {
		names[m.Source] = m.Target
	}
	mapped := t.Clone()
	mapped.Rename(names)
	for _, field := range StorageFields {
		if !mapped.Has(field) {
			return PreparedBatch{}, &LoadIntegrityError{Field: field, Available: mapped.Columns()}
		}
	}

	var batch PreparedBatch
	seen := make(map[ReadingKey]struct{}, t.Len())
	for i := 0; i < t.Len(); i++ {
		r, ok := readingAt(mapped, i)
		if !ok {
			batch.Dropped++
			continue
		}
		if _, dup := seen[r.Key()]; dup {
			batch.Duplicates++
			continue
		}
		seen[r.Key()] = struct{}{}
		batch.Readings = append(batch.Readings, r)
	}
	return batch, nil
}

func readingAt(t *Table, i int) (Reading, bool) {
	city, ok := ToText(t.Column(FieldCity)[i])
	if !ok {
		return Reading{}, false
	}
	temp, ok := ToFloat(t.Column(FieldTemperatureC)[i])
	if !ok {
		return Reading{}, false
	}
	humidity, ok := ToInt64(t.Column(FieldHumidityPercent)[i])
	if !ok {
		return Reading{}, false
	}
	ts, ok := ToInt64(t.Column(FieldTimestampUnix)[i])
	if !ok {
		return Reading{}, false
	}
	return Reading{
		City:            strings.TrimSpace(city),
		TemperatureC:    temp,
		HumidityPercent: humidity,
		TimestampUnix:   ts,
	}, true
}

// NewReadings returns the readings whose key is not in existing, preserving order.
func NewReadings(batch []Reading, existing map[ReadingKey]struct{}) []Reading {
	out := make([]Reading, 0, len(batch))
	for _, r := range batch {
		if _, ok := existing[r.Key()]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}
