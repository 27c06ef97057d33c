package pipeline_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ReadingStore.
type memStore struct {
	rows        []domain.Reading
	keysErr     error
	insertErr   error
	keyQueries  int
	insertCalls int
}

func (m *memStore) ExistingKeys(_ context.Context) (map[domain.ReadingKey]struct{}, error) {
	m.keyQueries++
	if m.keysErr != nil {
		return nil, m.keysErr
	}
	keys := make(map[domain.ReadingKey]struct{}, len(m.rows))
	for _, r := range m.rows {
		keys[r.Key()] = struct{}{}
	}
	return keys, nil
}

func (m *memStore) InsertReadings(_ context.Context, readings []domain.Reading) (int64, error) {
	m.insertCalls++
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.rows = append(m.rows, readings...)
	return int64(len(readings)), nil
}

// canonical builds a canonical table from raw records the way a run does.
func canonical(records ...domain.RawRecord) *domain.Table {
	return domain.ObservationTable(domain.Normalize(records))
}

func rec(city string, temp, humidity, ts float64) domain.RawRecord {
	return domain.RawRecord{"city": city, "temp": temp, "humidity": humidity, "timestamp": ts, "fetched_at": ts + 60}
}
