package domain

import "time"

// SourceSummary describes one successfully validated source.
type SourceSummary struct {
	Rows    int              `json:"rows"`
	Columns []string         `json:"columns"`
	DTypes  map[string]DType `json:"dtypes"`
}

// ValidationReport is the outcome of one validation run. It is written
// fresh each run and replaces any earlier report at the same path.
type ValidationReport struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Problems    []string                 `json:"problems"`
	Summaries   map[string]SourceSummary `json:"summaries"`
}

// NewValidationReport returns an empty report stamped with the current UTC time.
func NewValidationReport() *ValidationReport {
	return &ValidationReport{
		GeneratedAt: clock.Now().UTC(),
		Problems:    []string{},
		Summaries:   map[string]SourceSummary{},
	}
}

// AddProblems appends problems in order.
func (r *ValidationReport) AddProblems(problems ...string) {
	r.Problems = append(r.Problems, problems...)
}

// Passed reports whether the run found no problems.
func (r *ValidationReport) Passed() bool {
	return len(r.Problems) == 0
}
