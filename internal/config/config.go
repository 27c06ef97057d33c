package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Output file names inside DataDir.
const (
	CleanCSVFile     = "clean_data.csv"
	CleanParquetFile = "clean_data.parquet"
	ReportFile       = "validation_report.json"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	RawPath     string
	DataDir     string
	DatabaseURL string
	LoadForce   bool
	BatchSize   int

	// WriteNormalized re-saves each validated source as
	// <name>.normalized.<ext> next to it.
	WriteNormalized bool

	// OpenWeatherMap fetch configuration. Fetching runs only when both the
	// API key and at least one city are set.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherUnits   string
	OpenWeatherTimeout time.Duration
	Cities             []string

	// Publication of inserted readings. Empty KafkaBrokers disables it.
	KafkaBrokers   []string
	KafkaSinkTopic string

	PushgatewayURL  string
	RunInterval     time.Duration
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	loadForce, err := parseBool("LOAD_FORCE", false)
	if err != nil {
		return nil, err
	}

	writeNormalized, err := parseBool("WRITE_NORMALIZED", true)
	if err != nil {
		return nil, err
	}

	timeout, err := parseDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid OPENWEATHER_TIMEOUT")
	}

	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil || runInterval < 0 {
		return nil, errors.New("invalid RUN_INTERVAL")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		RawPath:     sharedcfg.EnvOrDefault("RAW_PATH", filepath.Join("data", "raw_data.json")),
		DataDir:     sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		DatabaseURL: sharedcfg.EnvOrDefault("DATABASE_URL", "sqlite:///weather.db"),
		LoadForce:   loadForce,
		BatchSize:   batchSize,

		WriteNormalized: writeNormalized,

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		OpenWeatherUnits:   sharedcfg.EnvOrDefault("OPENWEATHER_UNITS", "metric"),
		OpenWeatherTimeout: timeout,
		Cities:             parseList(os.Getenv("WEATHER_CITIES")),

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "weather-readings"),

		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		RunInterval:     runInterval,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	switch cfg.OpenWeatherUnits {
	case "metric", "imperial", "standard":
	default:
		return nil, fmt.Errorf("invalid OPENWEATHER_UNITS %q: want metric, imperial or standard", cfg.OpenWeatherUnits)
	}
	if cfg.OpenWeatherAPIKey != "" && len(cfg.Cities) == 0 {
		return nil, errors.New("OPENWEATHER_API_KEY is set but WEATHER_CITIES is empty")
	}
	if cfg.KafkaEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// FetchEnabled reports whether raw observations are fetched before each run.
func (c *Config) FetchEnabled() bool {
	return c.OpenWeatherAPIKey != "" && len(c.Cities) > 0
}

// KafkaEnabled reports whether inserted readings are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Scheduled reports whether the pipeline runs on an interval instead of once.
func (c *Config) Scheduled() bool {
	return c.RunInterval > 0
}

// CSVPath is the canonical CSV output.
func (c *Config) CSVPath() string { return filepath.Join(c.DataDir, CleanCSVFile) }

// ParquetPath is the canonical Parquet output.
func (c *Config) ParquetPath() string { return filepath.Join(c.DataDir, CleanParquetFile) }

// ReportPath is the validation report output.
func (c *Config) ReportPath() string { return filepath.Join(c.DataDir, ReportFile) }

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
}

// parseList splits a semicolon-separated list, dropping blanks. Commas stay
// inside items so cities can carry a country code, e.g. "Dallas,US;Austin,US".
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
