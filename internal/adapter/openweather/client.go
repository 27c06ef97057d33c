// Package openweather fetches current conditions from the OpenWeatherMap
// API and shapes them into raw observation records.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/weather-data-etl/internal/config"
	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
)

const weatherPath = "/data/2.5/weather"

var (
	// ErrUnauthorized is returned when the provider rejects the API key.
	ErrUnauthorized = errors.New("openweather: unauthorized, check the API key")
	// ErrCityNotFound is returned when the provider does not know a city.
	ErrCityNotFound = errors.New("openweather: city not found")
	// ErrNoObservations is returned when every requested city failed.
	ErrNoObservations = errors.New("openweather: no city could be fetched")
)

// Client fetches current weather for a list of cities.
type Client struct {
	apiKey     string
	baseURL    string
	units      string
	httpClient *http.Client
	backoff    BackoffConfig
	circuit    *gobreaker.CircuitBreaker
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client from the service configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     cfg.OpenWeatherAPIKey,
		baseURL:    strings.TrimRight(cfg.OpenWeatherBaseURL, "/"),
		units:      cfg.OpenWeatherUnits,
		httpClient: &http.Client{Timeout: cfg.OpenWeatherTimeout},
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: newBreaker(),
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns one raw record per city that could be fetched, in the
// order requested. Failing cities are logged and skipped; an error is
// returned only if none succeeded.
func (c *Client) Fetch(ctx context.Context, cities []string) ([]domain.RawRecord, error) {
	records := make([]domain.RawRecord, 0, len(cities))
	var lastErr error
	for _, city := range cities {
		rec, err := c.FetchCity(ctx, city)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.metrics.FetchRequests.WithLabelValues("error").Inc()
			c.logger.Warn("fetch weather failed, skipping city", "city", city, "error", err)
			lastErr = err
			continue
		}
		c.metrics.FetchRequests.WithLabelValues("success").Inc()
		c.logger.Debug("fetched weather", "city", rec["city"], "temp", rec["temp"], "humidity", rec["humidity"])
		records = append(records, rec)
	}
	if len(records) == 0 && len(cities) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoObservations, lastErr)
	}
	return records, nil
}

// FetchCity returns the current conditions for one city query such as
// "Dallas" or "Dallas,US". Temperatures are converted to Celsius.
func (c *Client) FetchCity(ctx context.Context, city string) (domain.RawRecord, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		params := url.Values{
			"q":     {city},
			"appid": {c.apiKey},
			"units": {c.units},
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+weatherPath+"?"+params.Encode(), nil)
	}

	resp, err := doWithResilience(ctx, c.httpClient, c.backoff, c.circuit, build)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", city, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweather API error for %q: status %d: %s", city, resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response for %q: %w", city, err)
	}
	return c.record(city, payload), nil
}

func (c *Client) record(query string, p response) domain.RawRecord {
	name := p.Name
	if name == "" {
		name = query
	}
	rec := domain.RawRecord{
		"city":       name,
		"temp":       nil,
		"humidity":   nil,
		"timestamp":  nil,
		"fetched_at": c.clock.Now().Unix(),
	}
	if p.Dt != nil {
		rec["timestamp"] = *p.Dt
	}
	if p.Main.Temp != nil {
		rec["temp"] = toCelsius(*p.Main.Temp, c.units)
	}
	if p.Main.Humidity != nil {
		rec["humidity"] = *p.Main.Humidity
	}
	return rec
}

// toCelsius converts a provider temperature in the requested units.
func toCelsius(v float64, units string) float64 {
	switch units {
	case "standard":
		v -= 273.15
	case "imperial":
		v = (v - 32) * 5 / 9
	}
	return math.Round(v*100) / 100
}

type response struct {
	Name string `json:"name"`
	Dt   *int64 `json:"dt"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
}
