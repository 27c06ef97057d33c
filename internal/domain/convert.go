package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToFloat converts a cell to a finite float. Numeric text is parsed; a false
// result means the cell is treated as null.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		p, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToInt64 converts a cell holding an integral number. Fractional values fail.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, true
		}
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) || !fitsInt64(f) {
		return 0, false
	}
	return int64(f), true
}

// floorInt64 accepts any finite number and drops its fractional part
// toward negative infinity.
func floorInt64(v any) (int64, bool) {
	if n, ok := ToInt64(v); ok {
		return n, true
	}
	f, ok := ToFloat(v)
	if !ok {
		return 0, false
	}
	f = math.Floor(f)
	if !fitsInt64(f) {
		return 0, false
	}
	return int64(f), true
}

func fitsInt64(f float64) bool {
	return f >= math.MinInt64 && f < math.MaxInt64
}

// ToText renders a scalar cell as trimmed text. Empty text is a null.
func ToText(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		s = strconv.FormatInt(x, 10)
	case int:
		s = strconv.Itoa(x)
	case bool:
		s = strconv.FormatBool(x)
	case time.Time:
		s = x.UTC().Format(time.RFC3339)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func round2(f float64) float64 {
	// Beyond 1e15 a float64 carries no fractional digits and f*100 may overflow.
	if math.Abs(f) >= 1e15 {
		return f
	}
	return math.RoundToEven(f*100) / 100
}

// unixToUTC mirrors unix seconds as a UTC date-time. Instants outside the
// four-digit year range have no ISO-8601 rendering and are treated as null.
func unixToUTC(sec int64) (time.Time, bool) {
	const minSec, maxSec = -62135596800, 253402300799 // 0001-01-01 .. 9999-12-31T23:59:59Z
	if sec < minSec || sec > maxSec {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}
