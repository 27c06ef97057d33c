package openweather

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-data-etl/internal/config"
	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
)

const (
	testKey           = "owm-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var fetchTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testClient(baseURL, units string) *Client {
	c := NewClient(&config.Config{
		OpenWeatherAPIKey:  testKey,
		OpenWeatherBaseURL: baseURL,
		OpenWeatherUnits:   units,
		OpenWeatherTimeout: 5 * time.Second,
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.clock = clockwork.NewFakeClockAt(fetchTime)
	c.backoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	return c
}

func writeWeather(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	_, err := w.Write([]byte(body))
	require.NoError(t, err)
}

func TestFetchCity_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, weatherPath, r.URL.Path)
		assert.Equal(t, "Dallas,US", r.URL.Query().Get("q"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		writeWeather(t, w, `{"name":"Dallas","dt":1714564800,"main":{"temp":26.85,"humidity":67}}`)
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, "metric").FetchCity(context.Background(), "Dallas,US")
	require.NoError(t, err)
	assert.Equal(t, domain.RawRecord{
		"city":       "Dallas",
		"temp":       26.85,
		"humidity":   67.0,
		"timestamp":  int64(1714564800),
		"fetched_at": fetchTime.Unix(),
	}, rec)
}

func TestFetchCity_ConvertsUnitsToCelsius(t *testing.T) {
	tests := []struct {
		units string
		temp  string
		want  float64
	}{
		{"metric", "21.5", 21.5},
		{"standard", "300", 26.85},
		{"imperial", "212", 100},
		{"imperial", "32", 0},
	}
	for _, tt := range tests {
		t.Run(tt.units+"/"+tt.temp, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.units, r.URL.Query().Get("units"))
				writeWeather(t, w, `{"name":"Austin","dt":1,"main":{"temp":`+tt.temp+`,"humidity":40}}`)
			}))
			defer srv.Close()

			rec, err := testClient(srv.URL, tt.units).FetchCity(context.Background(), "Austin")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, rec["temp"], 1e-9)
		})
	}
}

func TestFetchCity_MissingFieldsAreNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeWeather(t, w, `{"main":{}}`)
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, "metric").FetchCity(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Equal(t, "Nowhere", rec["city"])
	assert.Nil(t, rec["temp"])
	assert.Nil(t, rec["humidity"])
	assert.Nil(t, rec["timestamp"])

	// Records must survive the raw file round trip.
	b, err := json.Marshal([]domain.RawRecord{rec})
	require.NoError(t, err)
	parsed, err := domain.ParseRecords(b)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
}

func TestFetchCity_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantIs  error
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized, "unauthorized"},
		{"not found", http.StatusNotFound, ErrCityNotFound, "city not found"},
		{"bad request", http.StatusBadRequest, nil, "status 400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testClient(srv.URL, "metric").FetchCity(context.Background(), "Dallas")
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
		})
	}
}

func TestFetchCity_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeWeather(t, w, `{"name":"Dallas","dt":1,"main":{"temp":20,"humidity":50}}`)
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, "metric").FetchCity(context.Background(), "Dallas")
	require.NoError(t, err)
	assert.Equal(t, "Dallas", rec["city"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchCity_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "metric").FetchCity(context.Background(), "Dallas")
	require.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_SkipsFailingCities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeWeather(t, w, `{"name":"`+r.URL.Query().Get("q")+`","dt":1,"main":{"temp":20,"humidity":50}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "metric")
	records, err := c.Fetch(context.Background(), []string{"Dallas", "Atlantis", "Austin"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Dallas", records[0]["city"])
	assert.Equal(t, "Austin", records[1]["city"])

	assert.InDelta(t, 2, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("error")), 0)
}

func TestFetch_AllCitiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "metric").Fetch(context.Background(), []string{"Dallas", "Austin"})
	require.ErrorIs(t, err, ErrNoObservations)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetch_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeWeather(t, w, `{}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv.URL, "metric").Fetch(ctx, []string{"Dallas"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchCity_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "metric")
	c.backoff.MaxRetries = 0

	for i := 0; i < 6; i++ {
		_, err := c.FetchCity(context.Background(), "Dallas")
		require.ErrorIs(t, err, errServerError)
	}

	_, err := c.FetchCity(context.Background(), "Dallas")
	require.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(6), calls.Load())
}
