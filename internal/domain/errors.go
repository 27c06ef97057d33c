package domain

import (
	"fmt"
	"strings"
)

// MalformedInputError reports raw input that is neither a JSON object, an
// array of objects, nor newline-delimited objects.
type MalformedInputError struct {
	Err error
}

func (e *MalformedInputError) Error() string {
	return "malformed input: " + e.Err.Error()
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// SchemaError reports required columns that are entirely absent from a table.
type SchemaError struct {
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Missing required columns: %s. Available columns: %s",
		quotedList(e.Missing), quotedList(e.Available))
}

// LoadIntegrityError reports a storage field the Loader could not resolve
// from the table's columns. It unwraps to a *SchemaError.
type LoadIntegrityError struct {
	Field     string
	Available []string
}

func (e *LoadIntegrityError) Error() string {
	return fmt.Sprintf("Missing column after normalization: '%s'. Available columns: %s",
		e.Field, quotedList(e.Available))
}

func (e *LoadIntegrityError) Unwrap() error {
	return &SchemaError{Missing: []string{e.Field}, Available: e.Available}
}

// quotedList renders names as ['a', 'b'].
func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
