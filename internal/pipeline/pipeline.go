// Package pipeline orchestrates the fetch, normalize, validate, and load
// stages of a weather observation run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
	"github.com/couchcryptid/weather-data-etl/internal/tabular"
)

// ErrValidationFailed is returned by RunOnce when the report has problems.
// The report has been written by then and nothing was loaded.
var ErrValidationFailed = errors.New("validation failed")

// Fetcher retrieves raw observations for a list of cities.
type Fetcher interface {
	Fetch(ctx context.Context, cities []string) ([]domain.RawRecord, error)
}

// ReadingPublisher forwards newly stored readings downstream.
type ReadingPublisher interface {
	PublishReadings(ctx context.Context, readings []domain.Reading, loadedAt time.Time) error
}

// Options holds the file locations and behavior of a run.
type Options struct {
	RawPath         string
	CSVPath         string
	ParquetPath     string
	ReportPath      string
	Cities          []string
	LoadMode        LoadMode
	WriteNormalized bool
}

// Result describes one completed or failed run.
type Result struct {
	Fetched    int
	Parsed     int
	Normalized int
	Report     *domain.ValidationReport
	ReportPath string
	Load       *LoadResult
	Published  int
}

// Pipeline runs the full ETL sequence. Fetcher and publisher are optional.
type Pipeline struct {
	opts      Options
	fetcher   Fetcher
	validator *Validator
	loader    *Loader
	publisher ReadingPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu     sync.Mutex
	ready  atomic.Bool
	latest atomic.Pointer[domain.ValidationReport]
}

// New creates a Pipeline. Pass a nil fetcher to read RawPath as-is and a
// nil publisher to skip downstream publication.
func New(opts Options, store ReadingStore, fetcher Fetcher, publisher ReadingPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		opts:      opts,
		fetcher:   fetcher,
		validator: NewValidator(domain.DefaultSchema(), opts.WriteNormalized, logger),
		loader:    NewLoader(store, logger),
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a successful run yet")
	}
	return nil
}

// LatestReport returns the report of the most recent run that reached validation.
func (p *Pipeline) LatestReport() (*domain.ValidationReport, bool) {
	r := p.latest.Load()
	return r, r != nil
}

// RunOnce performs one complete run. Runs are serialized.
func (p *Pipeline) RunOnce(ctx context.Context) (res Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() { p.recordOutcome(start, err) }()

	if p.fetcher != nil {
		records, err := p.fetcher.Fetch(ctx, p.opts.Cities)
		if err != nil {
			return res, fmt.Errorf("fetch: %w", err)
		}
		if err := WriteRaw(p.opts.RawPath, records); err != nil {
			return res, err
		}
		res.Fetched = len(records)
		p.logger.Info("raw observations fetched", "cities", len(p.opts.Cities), "records", res.Fetched, "path", p.opts.RawPath)
	}

	records, err := ReadRaw(p.opts.RawPath)
	if err != nil {
		return res, err
	}
	res.Parsed = len(records)
	p.metrics.RecordsParsed.Add(float64(res.Parsed))

	canonical := domain.ObservationTable(domain.Normalize(records))
	res.Normalized = canonical.Len()
	p.metrics.ObservationsNormalized.Add(float64(res.Normalized))
	if err := p.writeCanonical(canonical); err != nil {
		return res, err
	}
	p.logger.Info("observations normalized", "parsed", res.Parsed, "rows", res.Normalized)

	report, tables := p.validator.Validate(DefaultSources(p.opts.CSVPath, p.opts.ParquetPath))
	res.Report = report
	res.ReportPath = p.opts.ReportPath
	if err := WriteReport(p.opts.ReportPath, report); err != nil {
		return res, err
	}
	p.latest.Store(report)
	p.metrics.ValidationProblems.Add(float64(len(report.Problems)))
	if !report.Passed() {
		return res, ErrValidationFailed
	}

	load, err := p.loader.Load(ctx, tables["CSV"], p.opts.LoadMode)
	if err != nil {
		return res, fmt.Errorf("load: %w", err)
	}
	res.Load = &load
	p.metrics.RowsInserted.Add(float64(load.Inserted))
	p.metrics.RowsSkipped.Add(float64(load.Skipped))
	p.metrics.RowsDropped.Add(float64(load.Dropped))

	if p.publisher != nil && len(load.NewReadings) > 0 {
		if err := p.publisher.PublishReadings(ctx, load.NewReadings, time.Now().UTC()); err != nil {
			return res, fmt.Errorf("publish: %w", err)
		}
		res.Published = len(load.NewReadings)
	}

	p.ready.Store(true)
	return res, nil
}

func (p *Pipeline) writeCanonical(t *domain.Table) error {
	if err := (tabular.CSV{}).Write(p.opts.CSVPath, t); err != nil {
		return fmt.Errorf("write canonical csv: %w", err)
	}
	if err := (tabular.Parquet{}).Write(p.opts.ParquetPath, t); err != nil {
		return fmt.Errorf("write canonical parquet: %w", err)
	}
	return nil
}

func (p *Pipeline) recordOutcome(start time.Time, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, ErrValidationFailed):
		outcome = "validation_failed"
	case err != nil:
		outcome = "error"
	}
	p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		p.metrics.LastRunSuccess.Set(1)
	} else {
		p.metrics.LastRunSuccess.Set(0)
	}

	attrs := []any{"outcome", outcome, "duration", time.Since(start)}
	if err != nil && outcome == "error" {
		p.logger.Error("run failed", append(attrs, "error", err)...)
		return
	}
	p.logger.Info("run finished", attrs...)
}
