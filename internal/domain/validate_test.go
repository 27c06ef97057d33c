package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// csvRow builds a canonical row the way the CSV reader produces it: text
// cells with nil for empty.
func csvRow(city, temp, humidity, ts, fetched string) []any {
	cell := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	return []any{cell(city), cell(temp), cell(humidity), cell(ts), nil, cell(fetched), nil}
}

func canonicalTable(t *testing.T, rows ...[]any) *Table {
	t.Helper()
	tbl := NewTable(CanonicalColumns...)
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r...))
	}
	return tbl
}

func coerceAndCheck(t *testing.T, tbl *Table) []string {
	t.Helper()
	coerced, err := CoerceTable(tbl, DefaultSchema())
	require.NoError(t, err)
	return CheckTable(coerced, DefaultSchema(), "CSV")
}

func TestCheckTable_CleanBatchHasNoProblems(t *testing.T) {
	tbl := canonicalTable(t,
		csvRow("Austin", "30.1", "40", "1700000000", "1700000100"),
		csvRow("Dallas", "26.85", "67", "1700000000", "1700000100"),
		csvRow("Dallas", "-59.99", "0", "1700003600", "1700003600"),
	)
	assert.Empty(t, coerceAndCheck(t, tbl))
}

func TestCheckTable_Problems(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
		want []string
	}{
		{
			name: "null city",
			rows: [][]any{csvRow("", "20", "50", "1000", "1000")},
			want: []string{"[CSV] Column 'city' has 1 nulls"},
		},
		{
			name: "blank city counted as null",
			rows: [][]any{csvRow("   ", "20", "50", "1000", "1000")},
			want: []string{"[CSV] Column 'city' has 1 nulls"},
		},
		{
			name: "unconvertible temperature counted as null",
			rows: [][]any{
				csvRow("Dallas", "hot", "50", "1000", "1000"),
				csvRow("Austin", "", "50", "1000", "1000"),
			},
			want: []string{"[CSV] Column 'temperature' has 2 nulls"},
		},
		{
			name: "temperature out of range",
			rows: [][]any{csvRow("Dallas", "85.0", "50", "1000", "1000")},
			want: []string{"[CSV] temperature has 1 values outside [-60.0, 60.0]"},
		},
		{
			name: "humidity out of range",
			rows: [][]any{csvRow("Dallas", "20", "101", "1000", "1000")},
			want: []string{"[CSV] humidity_percent has 1 values outside [0, 100]"},
		},
		{
			name: "fractional humidity",
			rows: [][]any{csvRow("Dallas", "20", "55.5", "1000", "1000")},
			want: []string{"[CSV] dtype mismatch for 'humidity_percent': got float64, expected int64"},
		},
		{
			name: "duplicate key",
			rows: [][]any{
				csvRow("Dallas", "20", "50", "1000", "1000"),
				csvRow("Dallas", "21", "51", "1000", "1000"),
				csvRow("Dallas", "22", "52", "1000", "1000"),
			},
			want: []string{"[CSV] 2 duplicate rows on ['city', 'timestamp']"},
		},
		{
			name: "fetched before observed",
			rows: [][]any{csvRow("Dallas", "20", "50", "2000", "1000")},
			want: []string{"[CSV] 1 rows where fetched_at < timestamp"},
		},
		{
			name: "checks accumulate in order",
			rows: [][]any{
				csvRow("Dallas", "85", "50", "2000", "1000"),
				csvRow("Dallas", "", "50", "2000", "3000"),
			},
			want: []string{
				"[CSV] Column 'temperature' has 1 nulls",
				"[CSV] temperature has 1 values outside [-60.0, 60.0]",
				"[CSV] 1 duplicate rows on ['city', 'timestamp']",
				"[CSV] 1 rows where fetched_at < timestamp",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceAndCheck(t, canonicalTable(t, tt.rows...)))
		})
	}
}

func TestCheckTable_TypedInput(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	tbl := canonicalTable(t,
		[]any{"Dallas", 26.85, 67.0, int64(1700000000), ts, int64(1700000100), ts},
		[]any{"Dallas", 85.0, 67.0, int64(1700003600), ts, int64(1700003700), ts},
	)
	assert.Equal(t, []string{"[CSV] temperature has 1 values outside [-60.0, 60.0]"}, coerceAndCheck(t, tbl))
}

func TestCoerceTable_MissingColumn(t *testing.T) {
	tbl := NewTable(ColCity, ColTemperature, ColTimestamp, ColFetchedAt)
	require.NoError(t, tbl.AppendRow("Dallas", "20", "1000", "1000"))

	coerced, err := CoerceTable(tbl, DefaultSchema())
	require.Error(t, err)
	assert.Nil(t, coerced)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{ColHumidity}, schemaErr.Missing)
	assert.Equal(t, []string{ColCity, ColTemperature, ColTimestamp, ColFetchedAt}, schemaErr.Available)
	assert.Equal(t,
		"Missing required columns: ['humidity_percent']. Available columns: ['city', 'temperature', 'timestamp', 'fetched_at']",
		err.Error())
}

func TestCoerceTable_TypesAndPassThrough(t *testing.T) {
	tbl := canonicalTable(t, []any{"Dallas", "26.85", "67", "1700000000", "2023-11-14T22:13:20Z", "1700000100", nil})

	coerced, err := CoerceTable(tbl, DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, CanonicalColumns, coerced.Columns())
	assert.Equal(t, []any{"Dallas", 26.85, int64(67), int64(1700000000), "2023-11-14T22:13:20Z", int64(1700000100), nil}, coerced.Row(0))
	// The input table is left untouched.
	assert.Equal(t, "67", tbl.Column(ColHumidity)[0])
}

func TestSummarize(t *testing.T) {
	tbl := canonicalTable(t, csvRow("Dallas", "26.85", "67", "1700000000", "1700000100"))
	coerced, err := CoerceTable(tbl, DefaultSchema())
	require.NoError(t, err)

	s := Summarize(coerced, DefaultSchema())
	assert.Equal(t, 1, s.Rows)
	assert.Equal(t, CanonicalColumns, s.Columns)
	assert.Equal(t, map[string]DType{
		ColCity:         DTypeString,
		ColTemperature:  DTypeFloat64,
		ColHumidity:     DTypeNullableInt64,
		ColTimestamp:    DTypeNullableInt64,
		ColTimestampISO: DTypeObject,
		ColFetchedAt:    DTypeNullableInt64,
		ColFetchedAtISO: DTypeObject,
	}, s.DTypes)
}

func TestInferDType(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   DType
	}{
		{"strings with nulls", []any{"a", nil, "b"}, DTypeString},
		{"floats", []any{1.5, 2.0}, DTypeFloat64},
		{"ints", []any{int64(1)}, DTypeNullableInt64},
		{"times", []any{time.Unix(0, 0).UTC(), nil}, DTypeDatetime},
		{"bools", []any{true}, DTypeBool},
		{"mixed", []any{"a", 1.0}, DTypeObject},
		{"all null", []any{nil, nil}, DTypeObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDType(tt.values))
		})
	}
}

func TestValidationReport(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CDT", -5*3600)))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	r := NewValidationReport()
	assert.Equal(t, time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC), r.GeneratedAt)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
	assert.True(t, r.Passed())
	assert.NotNil(t, r.Problems)

	r.AddProblems("[CSV] a", "[CSV] b")
	assert.False(t, r.Passed())
	assert.Equal(t, []string{"[CSV] a", "[CSV] b"}, r.Problems)
}
