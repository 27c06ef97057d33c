package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CoerceTable converts the declared columns of t to their schema types and
// returns a new table with the same column order. Undeclared columns pass
// through unchanged.
//
// Values that cannot be converted become null. Integer columns holding a
// non-integral number keep it as float64 so the dtype check can report the
// column. A *SchemaError is returned when any declared column is absent.
func CoerceTable(t *Table, schema Schema) (*Table, error) {
	var missing []string
	for _, name := range schema.Required() {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Available: t.Columns()}
	}

	out := NewTable()
	for _, name := range t.Columns() {
		values := t.Column(name)
		if spec, ok := schema.Spec(name); ok {
			values = coerceColumn(values, spec.Type)
		}
		if err := out.SetColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func coerceColumn(values []any, typ DType) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = coerceValue(v, typ)
	}
	return out
}

func coerceValue(v any, typ DType) any {
	switch typ.Comparable() {
	case DTypeString:
		if s, ok := ToText(v); ok {
			return s
		}
		return nil
	case DTypeFloat64:
		if f, ok := ToFloat(v); ok {
			return f
		}
		return nil
	case DTypeInt64:
		if n, ok := ToInt64(v); ok {
			return n
		}
		if f, ok := ToFloat(v); ok {
			return f
		}
		return nil
	default:
		return v
	}
}

// CheckTable runs every rule of schema against a coerced table and returns
// one problem per violation, tagged with label. Checks never short-circuit.
// Their order is: nulls, ranges, dtypes, duplicate keys, fetched_at sanity.
func CheckTable(t *Table, schema Schema, label string) []string {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf("[%s] ", label)+fmt.Sprintf(format, args...))
	}

	for _, name := range schema.NonNull {
		if !t.Has(name) {
			continue
		}
		if n := countNulls(t.Column(name)); n > 0 {
			addf("Column '%s' has %d nulls", name, n)
		}
	}

	for _, spec := range schema.Columns {
		if spec.Range == nil || !t.Has(spec.Name) {
			continue
		}
		if n := countOutside(t.Column(spec.Name), *spec.Range); n > 0 {
			addf("%s has %d values outside [%s, %s]", spec.Name, n,
				formatBound(spec.Range.Min, spec.Type), formatBound(spec.Range.Max, spec.Type))
		}
	}

	for _, spec := range schema.Columns {
		got := "<missing>"
		if t.Has(spec.Name) {
			got = string(resolveDType(t.Column(spec.Name), spec.Type).Comparable())
		}
		if want := string(spec.Type.Comparable()); got != want {
			addf("dtype mismatch for '%s': got %s, expected %s", spec.Name, got, want)
		}
	}

	if hasAll(t, schema.UniqueKey) && len(schema.UniqueKey) > 0 {
		if n := countDuplicates(t, schema.UniqueKey); n > 0 {
			addf("%d duplicate rows on %s", n, quotedList(schema.UniqueKey))
		}
	}

	if t.Has(ColTimestamp) && t.Has(ColFetchedAt) {
		if n := countFetchedBeforeObserved(t); n > 0 {
			addf("%d rows where fetched_at < timestamp", n)
		}
	}

	return problems
}

// Summarize describes a coerced table for the validation report.
func Summarize(t *Table, schema Schema) SourceSummary {
	cols := t.Columns()
	dtypes := make(map[string]DType, len(cols))
	for _, name := range cols {
		declared := DType("")
		if spec, ok := schema.Spec(name); ok {
			declared = spec.Type
		}
		dtypes[name] = resolveDType(t.Column(name), declared)
	}
	return SourceSummary{Rows: t.Len(), Columns: cols, DTypes: dtypes}
}

// resolveDType reports the type a column actually holds. Declared integer
// columns resolve to the nullable integer type unless a non-integral value
// survived coercion. An all-null column resolves to its declared type.
func resolveDType(values []any, declared DType) DType {
	if declared.Comparable() == DTypeInt64 {
		for _, v := range values {
			if _, ok := v.(float64); ok {
				return DTypeFloat64
			}
		}
		return DTypeNullableInt64
	}
	inferred := InferDType(values)
	if declared != "" && countNulls(values) == len(values) {
		return declared
	}
	return inferred
}

// InferDType reports the common type of the non-null cells.
func InferDType(values []any) DType {
	var found DType
	for _, v := range values {
		var d DType
		switch v.(type) {
		case nil:
			continue
		case string:
			d = DTypeString
		case float64:
			d = DTypeFloat64
		case int64:
			d = DTypeNullableInt64
		case bool:
			d = DTypeBool
		case time.Time:
			d = DTypeDatetime
		default:
			return DTypeObject
		}
		if found != "" && found != d {
			return DTypeObject
		}
		found = d
	}
	if found == "" {
		return DTypeObject
	}
	return found
}

func countNulls(values []any) int {
	n := 0
	for _, v := range values {
		if v == nil {
			n++
		}
	}
	return n
}

func countOutside(values []any, r Range) int {
	n := 0
	for _, v := range values {
		if f, ok := ToFloat(v); ok && !r.Contains(f) {
			n++
		}
	}
	return n
}

func countDuplicates(t *Table, key []string) int {
	seen := make(map[string]struct{}, t.Len())
	n := 0
	for i := 0; i < t.Len(); i++ {
		var b strings.Builder
		for _, name := range key {
			fmt.Fprintf(&b, "%T:%v\x1f", t.Column(name)[i], t.Column(name)[i])
		}
		k := b.String()
		if _, dup := seen[k]; dup {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

func countFetchedBeforeObserved(t *Table) int {
	observed, fetched := t.Column(ColTimestamp), t.Column(ColFetchedAt)
	n := 0
	for i := range observed {
		ts, ok1 := ToFloat(observed[i])
		fa, ok2 := ToFloat(fetched[i])
		if ok1 && ok2 && fa < ts {
			n++
		}
	}
	return n
}

func hasAll(t *Table, names []string) bool {
	for _, name := range names {
		if !t.Has(name) {
			return false
		}
	}
	return true
}

// formatBound renders a range bound as an integer for integer columns and
// with at least one decimal place otherwise.
func formatBound(v float64, typ DType) string {
	if typ.Comparable() == DTypeInt64 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
