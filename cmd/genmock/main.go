// Command genmock writes a deterministic NDJSON raw observation fixture. With
// -messy it adds the irregularities real provider dumps contain: aliased
// field names, duplicate keys, out-of-range humidity, and unparseable values.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw_data.json -cities "Dallas,US;Austin,US" -hours 24 -messy
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// fetchDelay is how long after each observation the mock provider is polled.
const fetchDelay = 90 * time.Second

func main() {
	logger := observability.NewLoggerFromEnv()
	if err := run(logger); err != nil {
		logger.Error("genmock failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	out := flag.String("out", "data/raw_data.json", "output path for the NDJSON fixture")
	cities := flag.String("cities", "Dallas,US;Austin,US;Houston,US", "semicolon-separated city list")
	hours := flag.Int("hours", 24, "hourly observations per city")
	messy := flag.Bool("messy", false, "add aliased, duplicate, out-of-range, and unparseable records")
	flag.Parse()

	if *hours <= 0 {
		return fmt.Errorf("-hours must be positive, got %d", *hours)
	}
	var names []string
	for _, c := range strings.Split(*cities, ";") {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("-cities must name at least one city")
	}

	records := generate(clockwork.NewFakeClockAt(baseDate), names, *hours, *messy)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := writeNDJSON(f, records); err != nil {
		f.Close()
		return fmt.Errorf("writing fixture: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	// Run the real normalizer so the log shows what a pipeline run will keep.
	normalized := domain.Normalize(records)
	logger.Info("wrote fixture", "path", *out, "records", len(records), "normalized", len(normalized))
	return nil
}

// generate produces hourly observations for each city, advancing clock one
// hour per step. Values follow a smooth daily cycle offset per city.
func generate(clock *clockwork.FakeClock, cities []string, hours int, messy bool) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, len(cities)*hours)
	for h := 0; h < hours; h++ {
		observed := clock.Now().Unix()
		for i, city := range cities {
			name, _, _ := strings.Cut(city, ",")
			phase := 2 * math.Pi * float64(h) / 24
			temp := 18 + 2*float64(i) + 8*math.Sin(phase)
			humidity := 60 - 20*math.Sin(phase) + float64(i)
			records = append(records, domain.RawRecord{
				"city":       name,
				"temp":       math.Round(temp*100) / 100,
				"humidity":   math.Round(humidity),
				"timestamp":  observed,
				"fetched_at": observed + int64(fetchDelay/time.Second),
			})
		}
		clock.Advance(time.Hour)
	}
	if messy && len(records) > 0 {
		records = append(records, messyRecords(records[0])...)
	}
	return records
}

func messyRecords(first domain.RawRecord) []domain.RawRecord {
	city := first["city"]
	ts := first["timestamp"].(int64)
	return []domain.RawRecord{
		// Duplicate key with canonical field names; normalization keeps the original.
		{"city": city, "temperature": 99.9, "humidity_percent": 10, "timestamp": ts, "fetched_at": ts + 10},
		// Humidity outside [0, 100] is clipped.
		{"city": city, "temp": 21.456, "humidity": 150, "timestamp": ts - 3600, "fetched_at": ts - 3500},
		{"city": city, "temp": 19, "humidity": -10, "timestamp": ts - 7200, "fetched_at": ts - 7100},
		// Unparseable values become nulls and surface as validation problems.
		{"city": city, "temp": "n/a", "humidity": "high", "timestamp": ts - 10800, "fetched_at": ts - 10700},
		// Missing fields.
		{"city": "  ", "timestamp": ts - 14400},
	}
}

func writeNDJSON(w io.Writer, records []domain.RawRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
