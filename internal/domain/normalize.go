package domain

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// RawRecord is one decoded input object. Numbers are kept as json.Number.
type RawRecord map[string]any

// fieldAliases lists, per canonical field, the accepted source names in
// priority order. The canonical name always comes first.
var fieldAliases = []struct {
	canonical string
	names     []string
}{
	{ColCity, []string{ColCity}},
	{ColTemperature, []string{ColTemperature, "temp"}},
	{ColHumidity, []string{ColHumidity, "humidity"}},
	{ColTimestamp, []string{ColTimestamp}},
	{ColFetchedAt, []string{ColFetchedAt}},
}

// ParseRecords decodes raw input as a single JSON object, a JSON array of
// objects, or newline-delimited JSON objects.
//
// Input that starts with '{' and spans several lines is first read as one
// object per non-empty line; if any line fails, the whole text is parsed as
// a single document instead.
func ParseRecords(data []byte) ([]RawRecord, error) {
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return nil, &MalformedInputError{Err: errors.New("empty input")}
	}

	if text[0] == '{' && bytes.ContainsRune(text, '\n') {
		if recs, ok := parseLines(text); ok {
			return recs, nil
		}
	}

	doc, err := decodeDocument(text)
	if err != nil {
		return nil, &MalformedInputError{Err: err}
	}

	switch v := doc.(type) {
	case map[string]any:
		return []RawRecord{v}, nil
	case []any:
		recs := make([]RawRecord, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, &MalformedInputError{Err: fmt.Errorf("array element %d is not an object", i)}
			}
			recs = append(recs, obj)
		}
		return recs, nil
	default:
		return nil, &MalformedInputError{Err: fmt.Errorf("unsupported JSON structure %T", doc)}
	}
}

func parseLines(text []byte) ([]RawRecord, bool) {
	var recs []RawRecord
	for _, line := range bytes.Split(text, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		doc, err := decodeDocument(line)
		if err != nil {
			return nil, false
		}
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, false
		}
		recs = append(recs, obj)
	}
	return recs, len(recs) > 0
}

// decodeDocument decodes exactly one JSON value and rejects trailing data.
func decodeDocument(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

// Normalize turns raw records into canonical observations.
//
// Aliased fields are renamed, absent fields become null, numeric fields are
// coerced (unparseable values become null), temperature is rounded to two
// decimals, humidity is clipped into [0, 100] and the unix-second fields get
// UTC date-time mirrors. The result is deduplicated on (city, timestamp),
// keeping the first occurrence, and stably sorted by city then timestamp with
// nulls last.
func Normalize(records []RawRecord) []Observation {
	out := make([]Observation, 0, len(records))
	seen := make(map[observationKey]struct{}, len(records))

	for _, rec := range records {
		obs := normalizeRecord(rec)
		key := obs.key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, obs)
	}

	slices.SortStableFunc(out, func(a, b Observation) int {
		if c := compareNullsLast(a.City, b.City); c != 0 {
			return c
		}
		return compareNullsLast(a.Timestamp, b.Timestamp)
	})
	return out
}

func normalizeRecord(rec RawRecord) Observation {
	var obs Observation

	if s, ok := ToText(lookup(rec, ColCity)); ok {
		obs.City = &s
	}
	if f, ok := ToFloat(lookup(rec, ColTemperature)); ok {
		obs.Temperature = ptr(round2(f))
	}
	if f, ok := ToFloat(lookup(rec, ColHumidity)); ok {
		obs.HumidityPercent = ptr(min(max(f, 0), 100))
	}
	if n, ok := floorInt64(lookup(rec, ColTimestamp)); ok {
		obs.Timestamp = &n
		if ts, ok := unixToUTC(n); ok {
			obs.TimestampISO = &ts
		}
	}
	if n, ok := floorInt64(lookup(rec, ColFetchedAt)); ok {
		obs.FetchedAt = &n
		if ts, ok := unixToUTC(n); ok {
			obs.FetchedAtISO = &ts
		}
	}
	return obs
}

// lookup returns the value of the first present source name for a canonical
// field, or nil.
func lookup(rec RawRecord, canonical string) any {
	for _, fa := range fieldAliases {
		if fa.canonical != canonical {
			continue
		}
		for _, name := range fa.names {
			if v, ok := rec[name]; ok {
				return v
			}
		}
	}
	return nil
}

type observationKey struct {
	city      string
	hasCity   bool
	timestamp int64
	hasTS     bool
}

func (o Observation) key() observationKey {
	var k observationKey
	if o.City != nil {
		k.city, k.hasCity = *o.City, true
	}
	if o.Timestamp != nil {
		k.timestamp, k.hasTS = *o.Timestamp, true
	}
	return k
}

func compareNullsLast[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}
