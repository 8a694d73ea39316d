// =============================================================================
// FEWS-RORB Adapter - Reservoir Operation CSV Reader
// =============================================================================
//
// RORB writes one CSV per simulated reservoir holding the gate-operation
// results (water level, storage, inflow, outflow, gate opening) indexed by
// the model's 1-based minute counter iTime. This module reads such a CSV
// and regroups it into a time-series table whose column names carry the dam
// location id and the FEWS parameter/unit labels.
//
// =============================================================================

package outparser

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/types"
)

// ColumnRename maps one CSV column to its FEWS parameter/unit label.
type ColumnRename struct {
	From string
	To   string
}

// ReservoirColumns is the fixed rename table for RORB gate-operation CSVs,
// in output order.
var ReservoirColumns = []ColumnRename{
	{From: "waterLevel", To: "(H.fcst) (mSMD)"},
	{From: "SRes", To: "(V.fcst) (m3)"},
	{From: "qSimIn(iTime)", To: "(Q-in.fcst) (m3/s)"},
	{From: "qSimOut(iTime)", To: "(Q-out.fcst) (m3/s)"},
	{From: "gate_open", To: "(G.fcst) (m)"},
}

// iTimeColumn is the model's 1-based minute counter column.
const iTimeColumn = "iTime"

// ReadReservoirCSV reads one reservoir's gate-operation CSV and returns a
// table with columns named "<locationID> <label>" and timestamps computed
// as eventStart + (iTime-1) minutes.
func ReadReservoirCSV(path, locationID string, eventStart time.Time) (*types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reservoir CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("reservoir CSV %s has no data rows", path)
	}

	// Header cells arrive space-padded from the Fortran writer.
	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.TrimSpace(h)] = i
	}

	timeIdx, ok := index[iTimeColumn]
	if !ok {
		return nil, fmt.Errorf("reservoir CSV %s is missing column %q", path, iTimeColumn)
	}

	dataRows := records[1:]
	table := &types.Table{Timestamps: make([]time.Time, 0, len(dataRows))}

	for r, row := range dataRows {
		if timeIdx >= len(row) {
			return nil, fmt.Errorf("reservoir CSV %s row %d is missing %q", path, r+2, iTimeColumn)
		}
		iTime, err := strconv.Atoi(strings.TrimSpace(row[timeIdx]))
		if err != nil {
			return nil, fmt.Errorf("reservoir CSV %s row %d: invalid %s %q", path, r+2, iTimeColumn, row[timeIdx])
		}
		table.Timestamps = append(table.Timestamps, eventStart.Add(time.Duration(iTime-1)*time.Minute))
	}

	for _, rename := range ReservoirColumns {
		colIdx, ok := index[rename.From]
		if !ok {
			return nil, fmt.Errorf("reservoir CSV %s is missing column %q", path, rename.From)
		}

		values := make([]string, len(dataRows))
		for r, row := range dataRows {
			if colIdx < len(row) {
				values[r] = strings.TrimSpace(row[colIdx])
			}
		}
		table.AddColumn(fmt.Sprintf("%s %s", locationID, rename.To), values)
	}

	return table, nil
}
