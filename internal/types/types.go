// =============================================================================
// FEWS-RORB Adapter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - outparser
//   - fewsxml
//   - adapter
//
// =============================================================================

package types

import "time"

// =============================================================================
// TIME SERIES TYPES
// =============================================================================

// Column is a single named value column destined for a PI time-series file.
// The name follows the pattern "<location>(<parameter>) (<unit>)"; the space
// before the unit is optional.
type Column struct {
	// Name is the combined location/parameter/unit label.
	Name string

	// Values holds one value per timestamp, as text. Values are carried as
	// strings end to end so that numbers parsed out of the RORB report are
	// reproduced in the output exactly as the model printed them.
	Values []string
}

// Table is a set of named value columns sharing one timestamp index.
// All columns of a table have exactly len(Timestamps) values.
type Table struct {
	// Timestamps is the shared time index, in ascending order.
	Timestamps []time.Time

	// Columns are the value columns in their output order.
	Columns []Column
}

// AddColumn appends a named column to the table.
func (t *Table) AddColumn(name string, values []string) {
	t.Columns = append(t.Columns, Column{Name: name, Values: values})
}

// NumRows returns the number of samples in the table.
func (t *Table) NumRows() int {
	return len(t.Timestamps)
}
