// =============================================================================
// FEWS-RORB Adapter - Report Table Reconstruction
// =============================================================================
//
// This module rebuilds tabular structures from whitespace-aligned report
// lines. The model left-pads columns and appends unlabelled columns, so the
// header row frequently carries fewer names than the widest data row;
// column-count reconciliation pads the header with synthetic names. A
// header wider than every data row means the report is structurally
// inconsistent and the run is aborted.
//
// =============================================================================

package outparser

import (
	"fmt"
	"strings"
)

// Table is a parsed report table: a header row of column names and rows of
// string cells. Rows may be ragged (shorter than the header) where the
// report left cells blank.
type Table struct {
	Header []string
	Rows   [][]string
}

// ToTable tokenizes report lines into a table. The first line supplies the
// header; subsequent lines are data rows, including empty separator lines
// (kept as empty rows so callers can split stacked tables on them).
//
// Reconciliation: a header shorter than the widest row is right-padded with
// synthetic Extra_0, Extra_1, ... names; a header strictly longer than
// every row is a fatal structural error.
func ToTable(lines []string) (*Table, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("cannot build table from zero lines")
	}

	header := strings.Fields(lines[0])
	rows := make([][]string, 0, len(lines)-1)
	maxWidth := 0
	for _, line := range lines[1:] {
		row := strings.Fields(line)
		if len(row) > maxWidth {
			maxWidth = len(row)
		}
		rows = append(rows, row)
	}

	if len(header) > maxWidth {
		return nil, fmt.Errorf("header has %d columns but widest row has %d", len(header), maxWidth)
	}
	for i := 0; len(header) < maxWidth; i++ {
		header = append(header, fmt.Sprintf("Extra_%d", i))
	}

	return &Table{Header: header, Rows: rows}, nil
}

// Column returns the named column's cells, one per row. Cells absent from a
// ragged row are returned as empty strings.
func (t *Table) Column(name string) ([]string, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}

	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

// DropColumns returns a copy of the table without the named columns.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	var keep []int
	var header []string
	for i, h := range t.Header {
		if _, skip := drop[h]; !skip {
			keep = append(keep, i)
			header = append(header, h)
		}
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, 0, len(keep))
		for _, i := range keep {
			if i < len(row) {
				cells = append(cells, row[i])
			} else {
				cells = append(cells, "")
			}
		}
		rows[r] = cells
	}
	return &Table{Header: header, Rows: rows}
}

// SplitSummaryTable merges the two stacked tables of the gauge hydrograph
// summary. The model prints the summary as a first block, an empty
// separator row, then a second block with its own header row. The merged
// table carries the first block's columns followed by the second block's,
// dropping any second-block column whose name already appeared.
//
// Trailing empty rows (blank lines or footer padding after a block) are
// dropped, and an unequal pair of blocks is merged by padding the shorter
// one with empty cells.
func SplitSummaryTable(t *Table) (*Table, error) {
	split := -1
	for i, row := range t.Rows {
		if len(row) == 0 {
			split = i
			break
		}
	}
	if split < 0 {
		return nil, fmt.Errorf("no separator row in hydrograph summary")
	}
	if split+2 > len(t.Rows) {
		return nil, fmt.Errorf("hydrograph summary ends at the separator row")
	}

	firstRows := trimTrailingEmpty(t.Rows[:split])
	secondHeader := t.Rows[split+1]
	secondRows := trimTrailingEmpty(t.Rows[split+2:])

	seen := make(map[string]struct{}, len(t.Header))
	header := append([]string(nil), t.Header...)
	for _, h := range t.Header {
		seen[h] = struct{}{}
	}

	var keep []int
	for i, h := range secondHeader {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		header = append(header, h)
		keep = append(keep, i)
	}

	length := len(firstRows)
	if len(secondRows) > length {
		length = len(secondRows)
	}

	rows := make([][]string, length)
	for r := 0; r < length; r++ {
		var first, second []string
		if r < len(firstRows) {
			first = firstRows[r]
		}
		if r < len(secondRows) {
			second = secondRows[r]
		}

		cells := make([]string, 0, len(header))
		for i := 0; i < len(t.Header); i++ {
			if i < len(first) {
				cells = append(cells, first[i])
			} else {
				cells = append(cells, "")
			}
		}
		for _, i := range keep {
			if i < len(second) {
				cells = append(cells, second[i])
			} else {
				cells = append(cells, "")
			}
		}
		rows[r] = cells
	}

	return &Table{Header: header, Rows: rows}, nil
}

// trimTrailingEmpty drops empty rows from the end of a block.
func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && len(rows[end-1]) == 0 {
		end--
	}
	return rows[:end]
}
