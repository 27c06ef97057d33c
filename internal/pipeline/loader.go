package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// ReadingStore is the persistence capability the Loader needs.
type ReadingStore interface {
	ExistingKeys(ctx context.Context) (map[domain.ReadingKey]struct{}, error)
	InsertReadings(ctx context.Context, readings []domain.Reading) (int64, error)
}

// LoadMode selects how the Loader treats already-stored keys.
type LoadMode int

const (
	// SkipExisting inserts only readings whose key is not yet stored.
	SkipExisting LoadMode = iota
	// Force inserts the whole deduplicated batch without a lookup.
	Force
)

func (m LoadMode) String() string {
	if m == Force {
		return "force"
	}
	return "skip-existing"
}

// LoadResult summarizes one load invocation.
type LoadResult struct {
	Total       int // valid, key-unique rows in the input
	Dropped     int
	Duplicates  int
	Skipped     int // already stored
	Inserted    int
	NewReadings []domain.Reading
}

// Loader incrementally persists validated tables.
type Loader struct {
	store   ReadingStore
	mapping []domain.FieldMapping
	logger  *slog.Logger
}

// NewLoader creates a Loader using the default canonical-to-storage mapping.
func NewLoader(store ReadingStore, logger *slog.Logger) *Loader {
	return &Loader{
		store:   store,
		mapping: domain.DefaultFieldMapping(),
		logger:  logger,
	}
}

// Load maps t onto storage fields, filters invalid and duplicate rows, and
// inserts the remainder in one transaction. In SkipExisting mode readings
// whose key is already stored are skipped, which makes repeated loads of
// overlapping data idempotent.
func (l *Loader) Load(ctx context.Context, t *domain.Table, mode LoadMode) (LoadResult, error) {
	batch, err := domain.PrepareReadings(t, l.mapping)
	if err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{
		Total:      len(batch.Readings),
		Dropped:    batch.Dropped,
		Duplicates: batch.Duplicates,
	}

	toInsert := batch.Readings
	if mode == SkipExisting {
		existing, err := l.store.ExistingKeys(ctx)
		if err != nil {
			return LoadResult{}, fmt.Errorf("query existing keys: %w", err)
		}
		toInsert = domain.NewReadings(batch.Readings, existing)
		res.Skipped = res.Total - len(toInsert)
	}

	if len(toInsert) > 0 {
		n, err := l.store.InsertReadings(ctx, toInsert)
		if err != nil {
			return LoadResult{}, fmt.Errorf("insert readings: %w", err)
		}
		res.Inserted = int(n)
		res.NewReadings = toInsert
	}

	l.logger.Info("load complete",
		"mode", mode.String(),
		"total", res.Total,
		"dropped", res.Dropped,
		"duplicates", res.Duplicates,
		"skipped", res.Skipped,
		"inserted", res.Inserted,
	)
	return res, nil
}
