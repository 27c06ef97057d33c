// Package postgres stores weather readings in PostgreSQL using pgx. Inserts
// stream through COPY inside a transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

const table = "weather_readings"

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS weather_readings (
		id               BIGSERIAL PRIMARY KEY,
		city             VARCHAR(80)      NOT NULL,
		temperature_c    DOUBLE PRECISION NOT NULL,
		humidity_percent INTEGER          NOT NULL,
		timestamp_unix   BIGINT           NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_weather_readings_city ON weather_readings (city)`,
}

// Store is a PostgreSQL-backed reading store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects a pool to dsn and verifies it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the readings table and its city index if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// ExistingKeys returns the business key of every stored reading.
func (s *Store) ExistingKeys(ctx context.Context) (map[domain.ReadingKey]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT city, timestamp_unix FROM weather_readings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query keys: %w", err)
	}
	keys := make(map[domain.ReadingKey]struct{})
	var k domain.ReadingKey
	_, err = pgx.ForEachRow(rows, []any{&k.City, &k.TimestampUnix}, func() error {
		keys[k] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan keys: %w", err)
	}
	return keys, nil
}

// InsertReadings copies readings into the table in one transaction.
func (s *Store) InsertReadings(ctx context.Context, readings []domain.Reading) (int64, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{table},
		domain.StorageFields,
		pgx.CopyFromSlice(len(readings), func(i int) ([]any, error) {
			r := readings[i]
			return []any{r.City, r.TemperatureC, int32(r.HumidityPercent), r.TimestampUnix}, nil
		}),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return 0, fmt.Errorf("postgres: copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return 0, fmt.Errorf("postgres: copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// Readings returns every stored reading ordered by id.
func (s *Store) Readings(ctx context.Context) ([]domain.Reading, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, city, temperature_c, humidity_percent::bigint, timestamp_unix FROM weather_readings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query readings: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Reading])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan readings: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
