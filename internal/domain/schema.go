package domain

// DType names a resolved column type. The names follow the conventions
// readers of the validation report already know from dataframe tooling.
type DType string

const (
	DTypeString        DType = "string"
	DTypeFloat64       DType = "float64"
	DTypeInt64         DType = "int64"
	DTypeNullableInt64 DType = "Int64"
	DTypeBool          DType = "bool"
	DTypeDatetime      DType = "datetime64[ns, UTC]"
	DTypeObject        DType = "object"
)

// Comparable folds the nullable integer type onto its plain form.
func (d DType) Comparable() DType {
	if d == DTypeNullableInt64 {
		return DTypeInt64
	}
	return d
}

// Range is an inclusive numeric bound.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the bound.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ColumnSpec declares one required column.
type ColumnSpec struct {
	Name  string
	Type  DType
	Range *Range
}

// Schema declares the expected shape of a canonical table. It is a plain
// value; callers pass it explicitly to the Validator and Loader.
type Schema struct {
	Columns   []ColumnSpec
	NonNull   []string
	UniqueKey []string
}

// DefaultSchema returns the schema for canonical weather observations.
func DefaultSchema() Schema {
	return Schema{
		Columns: []ColumnSpec{
			{Name: ColCity, Type: DTypeString},
			{Name: ColTemperature, Type: DTypeFloat64, Range: &Range{Min: -60, Max: 60}},
			{Name: ColHumidity, Type: DTypeInt64, Range: &Range{Min: 0, Max: 100}},
			{Name: ColTimestamp, Type: DTypeInt64},
			{Name: ColFetchedAt, Type: DTypeInt64},
		},
		NonNull:   []string{ColCity, ColTemperature, ColHumidity, ColTimestamp, ColFetchedAt},
		UniqueKey: []string{ColCity, ColTimestamp},
	}
}

// Required returns the declared column names in order.
func (s Schema) Required() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Spec returns the declaration for the named column.
func (s Schema) Spec(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
