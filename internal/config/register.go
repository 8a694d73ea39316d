// =============================================================================
// FEWS-RORB Adapter - Lookup Register
// =============================================================================
//
// The lookup register is an XLSX workbook maintained by the hydrology team.
// It carries the pieces of the configuration that change when the RORB
// catchment file is regenerated: the calculation orders and the gauge flow
// selections. When a register is configured it overrides the corresponding
// YAML lists, so the workbook stays the single source of truth.
//
// WORKBOOK STRUCTURE (Expected Sheets):
//
//   | Sheet       | Column A          | Column B        |
//   |-------------|-------------------|-----------------|
//   | Subareas    | Location ID       |                 |
//   | Hydrographs | Location ID       |                 |
//   | GaugeFlows  | Hydrograph label  | Location ID     |
//
//   Row 1 of each sheet is a header row. Blank rows are skipped. A missing
//   sheet leaves the corresponding YAML list untouched.
//
// =============================================================================

package config

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Register sheet names. These are contract points with the workbook.
const (
	sheetSubareas    = "Subareas"
	sheetHydrographs = "Hydrographs"
	sheetGaugeFlows  = "GaugeFlows"
)

// ApplyLookupRegister overlays the workbook at cfg.LookupRegister onto cfg.
// It is a no-op when no register is configured. The merged configuration is
// re-validated before returning.
func ApplyLookupRegister(cfg *Config) error {
	if cfg.LookupRegister == "" {
		return nil
	}

	f, err := excelize.OpenFile(cfg.LookupRegister)
	if err != nil {
		return fmt.Errorf("failed to open lookup register %s: %w", cfg.LookupRegister, err)
	}
	defer f.Close()

	if ids, ok, err := readIDColumn(f, sheetSubareas); err != nil {
		return err
	} else if ok {
		cfg.SubareaCalcOrder = ids
	}

	if ids, ok, err := readIDColumn(f, sheetHydrographs); err != nil {
		return err
	} else if ok {
		cfg.HydrographCalcOrder = ids
	}

	if flows, ok, err := readGaugeFlows(f); err != nil {
		return err
	} else if ok {
		cfg.GaugeFlows = flows
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("invalid config after applying lookup register %s: %w", cfg.LookupRegister, err)
	}
	return nil
}

// readIDColumn reads column A of a single-column sheet, skipping the header
// row and blank rows. ok is false when the sheet does not exist.
func readIDColumn(f *excelize.File, sheetName string) ([]string, bool, error) {
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil || idx < 0 {
		return nil, false, nil
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	var ids []string
	for i, row := range rows {
		if i == 0 {
			continue
		}
		id := cell(row, 0)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, false, fmt.Errorf("sheet %s carries no identifiers", sheetName)
	}
	return ids, true, nil
}

// readGaugeFlows reads the two-column gauge flow sheet. ok is false when the
// sheet does not exist.
func readGaugeFlows(f *excelize.File) ([]GaugeFlowMapping, bool, error) {
	idx, err := f.GetSheetIndex(sheetGaugeFlows)
	if err != nil || idx < 0 {
		return nil, false, nil
	}

	rows, err := f.GetRows(sheetGaugeFlows)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read sheet %s: %w", sheetGaugeFlows, err)
	}

	var flows []GaugeFlowMapping
	for i, row := range rows {
		if i == 0 {
			continue
		}
		label := cell(row, 0)
		location := cell(row, 1)
		if label == "" && location == "" {
			continue
		}
		if label == "" || location == "" {
			return nil, false, fmt.Errorf("sheet %s row %d is incomplete", sheetGaugeFlows, i+1)
		}
		flows = append(flows, GaugeFlowMapping{HydrographLabel: label, LocationID: location})
	}
	if len(flows) == 0 {
		return nil, false, fmt.Errorf("sheet %s carries no selections", sheetGaugeFlows)
	}
	return flows, true, nil
}

func cell(row []string, index int) string {
	if index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}
