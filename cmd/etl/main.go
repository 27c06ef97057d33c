// Command etl runs the weather observation pipeline configured from the
// environment: optional fetch, normalize, validate, and incremental load.
//
// With RUN_INTERVAL unset it performs a single run and exits 1 when the run
// fails or validation reports problems. With RUN_INTERVAL set it runs on a
// schedule and serves /healthz, /readyz, /metrics, and /report until
// interrupted.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-data-etl/internal/adapter/openweather"
	"github.com/couchcryptid/weather-data-etl/internal/adapter/storage"
	"github.com/couchcryptid/weather-data-etl/internal/config"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
	"github.com/couchcryptid/weather-data-etl/internal/pipeline"
	"github.com/couchcryptid/weather-data-etl/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DatabaseURL, cfg.BatchSize)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	// Fetching and publication are feature-flagged via OPENWEATHER_API_KEY
	// and KAFKA_BROKERS.
	var fetcher pipeline.Fetcher
	if cfg.FetchEnabled() {
		fetcher = openweather.NewClient(cfg, metrics, logger)
		logger.Info("openweather fetch enabled", "cities", len(cfg.Cities), "units", cfg.OpenWeatherUnits)
	} else {
		logger.Info("openweather fetch disabled, reading raw file", "path", cfg.RawPath)
	}

	var publisher pipeline.ReadingPublisher
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka publication enabled", "topic", cfg.KafkaSinkTopic)
	}

	mode := pipeline.SkipExisting
	if cfg.LoadForce {
		mode = pipeline.Force
	}

	p := pipeline.New(pipeline.Options{
		RawPath:         cfg.RawPath,
		CSVPath:         cfg.CSVPath(),
		ParquetPath:     cfg.ParquetPath(),
		ReportPath:      cfg.ReportPath(),
		Cities:          cfg.Cities,
		LoadMode:        mode,
		WriteNormalized: cfg.WriteNormalized,
	}, store, fetcher, publisher, logger, metrics)

	if cfg.Scheduled() {
		return runScheduled(ctx, cfg, p, logger)
	}
	return runOnce(ctx, cfg, p, metrics, logger)
}

func runOnce(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, metrics *observability.Metrics, logger *slog.Logger) int {
	res, err := p.RunOnce(ctx)

	if cfg.PushgatewayURL != "" {
		if perr := observability.Push(ctx, cfg.PushgatewayURL, observability.PushJob, metrics.Gatherer()); perr != nil {
			logger.Warn("metrics push failed", "error", perr)
		}
	}

	if res.Report != nil {
		pipeline.PrintReport(os.Stdout, res.Report, res.ReportPath)
	}
	if res.Load != nil {
		pipeline.PrintLoad(os.Stdout, cfg.CSVPath(), *res.Load)
	}

	switch {
	case errors.Is(err, pipeline.ErrValidationFailed):
		logger.Warn("load skipped: validation reported problems", "problems", len(res.Report.Problems))
		return 1
	case err != nil:
		logger.Error("pipeline run failed", "error", err)
		return 1
	}
	return 0
}

func runScheduled(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	sched, err := scheduler.New(cfg.RunInterval, func(ctx context.Context) error {
		_, err := p.RunOnce(ctx)
		return err
	}, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return 1
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
