// Package storage opens the reading store named by a database URL.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/weather-data-etl/internal/adapter/postgres"
	"github.com/couchcryptid/weather-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// Store is the persistence capability the loader and commands need.
type Store interface {
	EnsureSchema(ctx context.Context) error
	ExistingKeys(ctx context.Context) (map[domain.ReadingKey]struct{}, error)
	InsertReadings(ctx context.Context, readings []domain.Reading) (int64, error)
	Readings(ctx context.Context) ([]domain.Reading, error)
	Close() error
}

// Open connects to the store named by databaseURL and ensures its schema.
//
// Accepted forms:
//
//	sqlite:///weather.db          relative path weather.db
//	sqlite:////var/lib/weather.db absolute path
//	sqlite:///:memory:            in-memory database
//	file:weather.db?...           passed to the SQLite driver unchanged
//	postgres://... postgresql://...
func Open(ctx context.Context, databaseURL string, batchSize int) (Store, error) {
	var (
		s   Store
		err error
	)
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err = postgres.Open(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "file:"):
		dsn, derr := SQLiteDSN(databaseURL)
		if derr != nil {
			return nil, derr
		}
		s, err = sqlite.Open(ctx, dsn, batchSize)
	default:
		return nil, fmt.Errorf("unsupported database URL %q (use sqlite:///path or postgres://...)", databaseURL)
	}
	if err != nil {
		return nil, err
	}

	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteDSN converts a sqlite:// URL into a driver DSN. file: DSNs pass through.
func SQLiteDSN(databaseURL string) (string, error) {
	if strings.HasPrefix(databaseURL, "file:") {
		return databaseURL, nil
	}
	path, ok := strings.CutPrefix(databaseURL, "sqlite:///")
	if !ok || path == "" {
		return "", fmt.Errorf("invalid sqlite URL %q: expected sqlite:///<path>", databaseURL)
	}
	return path, nil
}
