package runtime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTransaction indicates a transaction id that was never begun or already ended
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrNoExecutor indicates a service id no data source is registered for
	ErrNoExecutor = errors.New("no executor for service")
)

// Result is the envelope of an executed select.
type Result struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	// TotalRowCount is the number of rows without paging; nil unless requested.
	TotalRowCount *int64 `json:"total_row_count,omitempty"`
	// HasNext is set when rows beyond the requested limit exist.
	HasNext bool `json:"has_next"`
	// Statistics maps each requested field to the row count per value.
	Statistics map[string][]Statistic `json:"statistics,omitempty"`
	Metadata   Metadata               `json:"metadata"`
}

// Statistic is the number of rows sharing one value of a field.
type Statistic struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// Metadata contains execution metadata for a result.
type Metadata struct {
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
	Query  string `json:"query"`   // Executed SQL
}

// Records returns the rows keyed by column name.
func (r *Result) Records() []map[string]any {
	records := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for j, column := range r.Columns {
			record[column] = row[j]
		}
		records[i] = record
	}
	return records
}

// ValidationError describes one invalid input of an operation.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Invalid value
	Message string // Error message
	Hint    string // Helpful hint for fixing the error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if ve.Hint != "" {
		return fmt.Sprintf("%s: %s (value: %q). %s", ve.Field, ve.Message, ve.Value, ve.Hint)
	}
	return fmt.Sprintf("%s: %s (value: %q)", ve.Field, ve.Message, ve.Value)
}

// ValidationErrors collects every invalid input of an operation.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(ve))
	for i, err := range ve {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Add appends a validation error.
func (ve *ValidationErrors) Add(field, value, message, hint string) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message, Hint: hint})
}

// HasErrors returns true if there are validation errors.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Err returns ve as an error, or nil when it is empty.
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}
