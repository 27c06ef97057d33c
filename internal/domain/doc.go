// Package domain models weather observations as they move through the
// normalize, validate and load stages.
//
// # Input shapes
//
// Raw input is UTF-8 JSON in one of three shapes:
//
//	{"city": "Dallas", "temp": 26.85, ...}              single object
//	[{"city": "Dallas", ...}, {"city": "Austin", ...}]  array of objects
//	{"city": "Dallas", ...}\n{"city": "Austin", ...}    one object per line
//
// Source field names vary. "temp" is accepted for "temperature" and
// "humidity" for "humidity_percent". When both spellings are present the
// canonical one wins.
//
// # Canonical table
//
// Normalized observations are laid out with the columns
//
//	city, temperature, humidity_percent, timestamp, timestamp_iso,
//	fetched_at, fetched_at_iso
//
// temperature is degrees Celsius rounded to two decimals, humidity_percent
// is clipped into [0, 100] and timestamp/fetched_at are unix seconds. The
// _iso columns mirror them as UTC date-times. Unparseable values are nulls,
// never errors. Rows are unique on (city, timestamp) and sorted by city then
// timestamp with nulls last.
//
// # Validation
//
// [CoerceTable] enforces the [Schema] column types and [CheckTable] reports
// problems as plain strings tagged with the source label:
//
//	[CSV] Column 'city' has 1 nulls
//	[CSV] temperature has 1 values outside [-60.0, 60.0]
//	[CSV] dtype mismatch for 'humidity_percent': got float64, expected int64
//	[CSV] 2 duplicate rows on ['city', 'timestamp']
//	[CSV] 1 rows where fetched_at < timestamp
//
// # Loading
//
// [PrepareReadings] maps canonical columns onto storage fields
// (temperature → temperature_c, timestamp → timestamp_unix), drops rows with
// a null required field and deduplicates on the business key. Readings are
// append-only; a key already in the store is never inserted twice unless the
// caller forces it.
package domain
