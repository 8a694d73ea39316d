// =============================================================================
// FEWS-RORB Adapter - Post-Adapter
// =============================================================================
//
// The post-adapter turns one finished RORB run back into FEWS PI documents:
//   1. Reservoir operation: per-dam CSVs become one combined PI document
//   2. Rainfall excess: interstation tables parsed out of the .out report
//   3. Gauge flow: the report's hydrograph summary, selected and renamed
//
// Intermediate PI documents are written with unique names under the
// from-RORB directory, concatenated into the combined outputs and removed.
// Any marker or structure failure in the report aborts the whole run; a
// partially translated result must never reach the FEWS import.
//
// =============================================================================

package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/compile"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/config"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/fewsxml"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/outparser"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/rorbfmt"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/types"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/pkg/utils"
)

// Report section markers. These are bit-exact contract points with the RORB
// report writer; do not reword them.
const (
	markerParameters = "Input of parameters:"
	markerRouting    = "Routing results:"
	markerRainBlock  = "Rainfall, mm, in time inc. following time shown"
	markerPluvioRef  = "Pluvi. ref. no."
	markerFirstGauge = "Hyd001"
	excessNameSuffix = " (P.fcst.excess) (mm)"
	gaugeNameSuffix  = " (Q.fcst) (m3/s)"
)

// rainfallExcessDropColumns are the report table columns with no FEWS
// counterpart.
var rainfallExcessDropColumns = []string{"Incs", "ment", "area"}

// PostAdapter drives the RORB-to-FEWS direction.
type PostAdapter struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewPostAdapter wires a post-adapter against one catchment configuration.
func NewPostAdapter(cfg *config.Config, log *zap.SugaredLogger) *PostAdapter {
	return &PostAdapter{cfg: cfg, log: log}
}

// Run executes the whole post-adapter against a run info export.
func (a *PostAdapter) Run(runInfoPath string) error {
	runInfoDoc, err := fewsxml.Parse(runInfoPath)
	if err != nil {
		return err
	}
	run, err := compile.CompileRunInfo(runInfoDoc)
	if err != nil {
		return err
	}

	if err := utils.EnsureDir(run.FromRorbDir); err != nil {
		return err
	}

	eventStart, err := rorbfmt.ParseCivil(run.StartDateTime, a.cfg.Timezone)
	if err != nil {
		return err
	}

	if err := a.writeReservoirOperations(run, eventStart); err != nil {
		return err
	}
	return a.processReport(run)
}

// =============================================================================
// RESERVOIR OPERATION
// =============================================================================

// writeReservoirOperations translates every dam's CSV into a PI document and
// concatenates them into the reservoir operation output.
func (a *PostAdapter) writeReservoirOperations(run *compile.RunInfo, eventStart time.Time) error {
	var temps []string
	for _, m := range a.cfg.GateOps {
		csvPath := filepath.Join(run.WorkDir, m.CSVFilename)
		table, err := outparser.ReadReservoirCSV(csvPath, m.DamID, eventStart)
		if err != nil {
			return err
		}

		tmpPath := utils.TempFileName(run.FromRorbDir, "reservoir_"+m.DamID, ".xml")
		if err := fewsxml.NewWriter().WriteDocument(tmpPath, table); err != nil {
			return err
		}
		temps = append(temps, tmpPath)
	}

	if err := fewsxml.Combine(temps, run.ReservoirOperationPath); err != nil {
		return err
	}
	return utils.RemoveFiles(temps)
}

// =============================================================================
// REPORT PROCESSING
// =============================================================================

// processReport parses the .out report once and produces the rainfall
// excess and gauge flow outputs from it.
func (a *PostAdapter) processReport(run *compile.RunInfo) error {
	reportPath := filepath.Join(run.WorkDir, a.cfg.OutFileName)

	section, err := a.extractSection(reportPath, markerParameters, markerRouting)
	if err != nil {
		return err
	}

	// Labels come off the pluvio reference lines before the rainfall
	// boilerplate blocks, and those lines with them, are stripped.
	labels, err := outparser.MapCalcOrder(section.Lines(), markerPluvioRef, a.cfg.SubareaCalcOrder)
	if err != nil {
		return fmt.Errorf("report %s: %w", reportPath, err)
	}
	for section.Contains(markerRainBlock) {
		if err := section.DeleteSubsection(markerRainBlock, markerPluvioRef); err != nil {
			return fmt.Errorf("report %s: %w", reportPath, err)
		}
	}

	startStr, _, stepHours, err := section.DateRangeAndStep()
	if err != nil {
		return fmt.Errorf("report %s: %w", reportPath, err)
	}
	sectionStart, err := rorbfmt.ParseCivil(startStr, a.cfg.Timezone)
	if err != nil {
		return err
	}
	step := time.Duration(stepHours * float64(time.Hour))

	if err := a.writeRainfallExcess(run, section, labels, sectionStart, step); err != nil {
		return err
	}
	return a.writeGaugeFlow(run, reportPath, sectionStart, step)
}

// extractSection opens the report and pulls one marker-delimited section.
func (a *PostAdapter) extractSection(reportPath, startMarker, endMarker string) (*outparser.Section, error) {
	f, err := os.Open(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", reportPath, err)
	}
	defer f.Close()

	section, err := outparser.ExtractSection(f, startMarker, endMarker)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", reportPath, err)
	}
	return section, nil
}

// =============================================================================
// RAINFALL EXCESS
// =============================================================================

// writeRainfallExcess walks every interstation table out of the parameter
// section, drops the configured tables and the report-only columns, renames
// the rest to their calculation order labels and combines the results into
// the rainfall excess output.
func (a *PostAdapter) writeRainfallExcess(run *compile.RunInfo, section *outparser.Section, labels [][]string, start time.Time, step time.Duration) error {
	var tables []*outparser.Table
	for section.Contains("Incs") {
		t, err := section.ExtractRainfallExcess()
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if len(tables) > len(labels) {
		return fmt.Errorf("report carries %d rainfall excess tables but only %d pluvio reference lines", len(tables), len(labels))
	}

	skip := make(map[int]bool, len(a.cfg.SkipInterstationTables))
	for _, idx := range a.cfg.SkipInterstationTables {
		skip[idx] = true
	}

	var temps []string
	for i, t := range tables {
		if skip[i+1] {
			a.log.Debugf("skipping interstation table %d", i+1)
			continue
		}

		t = t.DropColumns(rainfallExcessDropColumns...)
		if len(t.Header) != len(labels[i]) {
			return fmt.Errorf("interstation table %d has %d data columns but %d calculation order labels",
				i+1, len(t.Header), len(labels[i]))
		}

		out := &types.Table{Timestamps: timestampIndex(start, step, len(t.Rows))}
		for j, label := range labels[i] {
			values, err := t.Column(t.Header[j])
			if err != nil {
				return err
			}
			out.AddColumn(label+excessNameSuffix, values)
		}

		tmpPath := utils.TempFileName(run.FromRorbDir, fmt.Sprintf("rainfall_excess_%d", i+1), ".xml")
		if err := fewsxml.NewWriter().WriteDocument(tmpPath, out); err != nil {
			return err
		}
		temps = append(temps, tmpPath)
	}

	if err := fewsxml.Combine(temps, run.RainfallExcessPath); err != nil {
		return err
	}
	return utils.RemoveFiles(temps)
}

// =============================================================================
// GAUGE FLOW
// =============================================================================

// writeGaugeFlow parses the report's hydrograph summary, merges its two
// side-by-side blocks and exports the configured gauge columns.
func (a *PostAdapter) writeGaugeFlow(run *compile.RunInfo, reportPath string, start time.Time, step time.Duration) error {
	section, err := a.extractSection(reportPath, markerFirstGauge, "")
	if err != nil {
		return err
	}

	table, err := outparser.ToTable(section.Lines())
	if err != nil {
		return fmt.Errorf("report %s: %w", reportPath, err)
	}
	summary, err := outparser.SplitSummaryTable(table)
	if err != nil {
		return fmt.Errorf("report %s: %w", reportPath, err)
	}

	out := &types.Table{Timestamps: timestampIndex(start, step, len(summary.Rows))}
	for _, g := range a.cfg.GaugeFlows {
		values, err := summary.Column(g.HydrographLabel)
		if err != nil {
			return fmt.Errorf("report %s: %w", reportPath, err)
		}
		out.AddColumn(g.LocationID+gaugeNameSuffix, values)
	}

	return fewsxml.NewWriter().WriteDocument(run.GaugeFlowPath, out)
}

// timestampIndex builds n timestamps from start at the given step.
func timestampIndex(start time.Time, step time.Duration, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(step * time.Duration(i))
	}
	return out
}
