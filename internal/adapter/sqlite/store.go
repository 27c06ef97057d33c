// Package sqlite stores weather readings in a SQLite database through
// database/sql. Inserts run as multi-row statements inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS weather_readings (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		city             VARCHAR(80) NOT NULL,
		temperature_c    REAL        NOT NULL,
		humidity_percent INTEGER     NOT NULL,
		timestamp_unix   BIGINT      NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_weather_readings_city ON weather_readings (city)`,
}

// Store is a SQLite-backed reading store.
type Store struct {
	db        *sql.DB
	batchSize int
}

// Open connects to the database at dsn, e.g. "weather.db" or
// "file:weather.db?_pragma=busy_timeout(5000)". batchSize bounds the rows per
// INSERT statement.
func Open(ctx context.Context, dsn string, batchSize int) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("sqlite: batch size must be positive, got %d", batchSize)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Store{db: db, batchSize: batchSize}, nil
}

// EnsureSchema creates the readings table and its city index if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

// ExistingKeys returns the business key of every stored reading.
func (s *Store) ExistingKeys(ctx context.Context) (map[domain.ReadingKey]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT city, timestamp_unix FROM weather_readings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[domain.ReadingKey]struct{})
	for rows.Next() {
		var k domain.ReadingKey
		if err := rows.Scan(&k.City, &k.TimestampUnix); err != nil {
			return nil, fmt.Errorf("sqlite: scan key: %w", err)
		}
		keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate keys: %w", err)
	}
	return keys, nil
}

// InsertReadings appends readings in a single transaction. Either every
// reading is stored or none is.
func (s *Store) InsertReadings(ctx context.Context, readings []domain.Reading) (int64, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for start := 0; start < len(readings); start += s.batchSize {
		end := min(start+s.batchSize, len(readings))
		query, args := insertStatement(readings[start:end])
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Readings returns every stored reading ordered by id.
func (s *Store) Readings(ctx context.Context) ([]domain.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, city, temperature_c, humidity_percent, timestamp_unix FROM weather_readings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query readings: %w", err)
	}
	defer rows.Close()

	var out []domain.Reading
	for rows.Next() {
		var r domain.Reading
		if err := rows.Scan(&r.ID, &r.City, &r.TemperatureC, &r.HumidityPercent, &r.TimestampUnix); err != nil {
			return nil, fmt.Errorf("sqlite: scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func insertStatement(batch []domain.Reading) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO weather_readings (city, temperature_c, humidity_percent, timestamp_unix) VALUES ")
	args := make([]any, 0, len(batch)*4)
	for i, r := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, r.City, r.TemperatureC, r.HumidityPercent, r.TimestampUnix)
	}
	return b.String(), args
}
