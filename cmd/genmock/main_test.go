package main

import (
	"bytes"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := generate(clockwork.NewFakeClockAt(baseDate), []string{"Dallas,US", "Austin"}, 3, false)
	b := generate(clockwork.NewFakeClockAt(baseDate), []string{"Dallas,US", "Austin"}, 3, false)

	require.Len(t, a, 6)
	assert.Equal(t, a, b)
	assert.Equal(t, "Dallas", a[0]["city"])
	assert.Equal(t, "Austin", a[1]["city"])
	assert.Equal(t, baseDate.Unix(), a[0]["timestamp"])
	assert.Equal(t, baseDate.Unix()+3600, a[2]["timestamp"])
	assert.Equal(t, baseDate.Unix()+90, a[0]["fetched_at"])
}

func TestGenerate_CleanFixtureNormalizesWithoutLoss(t *testing.T) {
	records := generate(clockwork.NewFakeClockAt(baseDate), []string{"Dallas", "Austin"}, 24, false)

	var buf bytes.Buffer
	require.NoError(t, writeNDJSON(&buf, records))
	parsed, err := domain.ParseRecords(buf.Bytes())
	require.NoError(t, err)

	normalized := domain.Normalize(parsed)
	assert.Len(t, normalized, 48)
	for _, o := range normalized {
		require.NotNil(t, o.Temperature)
		assert.True(t, *o.Temperature >= -60 && *o.Temperature <= 60)
	}
}

func TestGenerate_MessyFixture(t *testing.T) {
	records := generate(clockwork.NewFakeClockAt(baseDate), []string{"Dallas"}, 2, true)
	require.Len(t, records, 7)

	normalized := domain.Normalize(records)
	assert.Len(t, normalized, 6, "duplicate key dropped")

	var clipped []float64
	for _, o := range normalized {
		if o.HumidityPercent != nil {
			clipped = append(clipped, *o.HumidityPercent)
		}
	}
	assert.Contains(t, clipped, 100.0)
	assert.Contains(t, clipped, 0.0)
}
