// =============================================================================
// FEWS-RORB Adapter - RORB Input File Formatters
// =============================================================================
//
// Formatters for every RORB input file the pre-adapter writes:
//   - PAR: interstation-area routing and loss parameter lines
//   - STM: storm settings, temporal patterns, rainfall and baseflow blocks
//   - SNOW: snowmelt temperature, wind and water content lines
//   - GateOps: initial storage lookup against the file's own rating table
//   - Transfer / Operation / Hydrograph: plain value columns
//
// Each formatter is a pure function over already-compiled values, so every
// block can be tested against known RORB files without touching FEWS data.
// The orchestration layer substitutes the returned strings into the RORB
// file templates.
//
// =============================================================================

package rorbfmt

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// PAR FILE
// =============================================================================

// ISALine is one interstation area's parameter pair for the par file.
// A carries Kc or IL, B carries m or CL depending on the block.
type ISALine struct {
	ID string
	A  float64
	B  float64
}

// FormatISALines renders one "ISA  <id>: <a>, <b>" line per area. The
// identifier is left-aligned in a 3-character field; values keep their
// shortest decimal form.
func FormatISALines(lines []ISALine) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "ISA  %-3s: %s, %s", l.ID, formatShort(l.A), formatShort(l.B))
	}
	return b.String()
}

// formatShort renders a float the way a plain decimal literal is written:
// shortest form, but integral values keep one trailing zero.
func formatShort(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TimestepHours renders a timestep in minutes as hours, e.g. 15 -> "0.25".
func TimestepHours(minutes int) string {
	return formatShort(float64(minutes) / 60)
}

// =============================================================================
// STM FILE
// =============================================================================

// StormSetting renders the stm header block: timestep in hours, the sample
// count, a burst count of 1, the subarea count and a pattern count of 1.
func StormSetting(timestepMinutes, numData, numSubareas int) string {
	values := []Value{
		Str(formatShort(float64(timestepMinutes) / 60)),
		Int(numData),
		Int(1),
		Int(numSubareas),
		Int(1),
	}
	return FormatSeries(values, 0, 10, EndSentinel)
}

// PluvioSetting renders the single burst window [0, numData].
func PluvioSetting(numData int) string {
	return FormatSeries([]Value{Int(0), Int(numData)}, 0, 10, EndSentinel)
}

// TemporalPatterns renders one titled temporal-pattern block per subarea in
// calculation order. Each sample is expressed as a percentage of the
// subarea's total depth; a zero total yields an all-zero pattern.
func TemporalPatterns(subareaSeries [][]float64) string {
	var b strings.Builder
	for i, series := range subareaSeries {
		var total float64
		for _, v := range series {
			total += v
		}

		pattern := make([]float64, len(series))
		if total != 0 {
			for j, v := range series {
				pattern[j] = v / total * 100
			}
		}

		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Calc_order_%d temporal pattern with pre-burst (%% of depth)\n", i+1)
		b.WriteString(FormatFloatSeries(pattern, 2, 10, EndSentinel))
	}
	return b.String()
}

// SubareaRainfall renders the per-subarea depth totals in calculation order.
func SubareaRainfall(totals []float64) string {
	return FormatFloatSeries(totals, 2, 10, EndSentinel)
}

// PluvioChoice renders the pluviograph assignment 1..numSubareas; each
// subarea reads its own pattern.
func PluvioChoice(numSubareas int) string {
	choice := make([]int, numSubareas)
	for i := range choice {
		choice[i] = i + 1
	}
	return FormatSeries(Ints(choice), 0, 10, EndSentinel)
}

// BaseflowSetting renders the burst window pair [0, numData-1] once per
// baseflow calculation.
func BaseflowSetting(numData, numBaseflows int) string {
	values := make([]Value, 0, 2*numBaseflows)
	for i := 0; i < numBaseflows; i++ {
		values = append(values, Int(0), Int(numData-1))
	}
	return FormatSeries(values, 0, 20, EndSentinel)
}

// BaseflowDecay carries one baseflow calculation's recursion inputs.
type BaseflowDecay struct {
	Constant   float64
	Multiplier float64
	StartHours float64
}

// BaseflowHydrographs renders one titled baseflow hydrograph per
// calculation. The decay start index is the start offset in hours scaled to
// the rain timestep: a 1 hour start at a 15 minute timestep decays from
// sample 4.
func BaseflowHydrographs(decays []BaseflowDecay, timestepMinutes, numData int) string {
	var b strings.Builder
	for i, d := range decays {
		startIdx := d.StartHours * 60 / float64(timestepMinutes)
		series := Baseflow(d.Constant, d.Multiplier, startIdx, float64(numData))

		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Baseflow_calc_order_%d\n", i+1)
		b.WriteString(FormatFloatSeries(series, 2, 10, EndSentinel))
	}
	return b.String()
}

// =============================================================================
// SNOWMELT FILE
// =============================================================================

// SnowSeries renders a meteorological series as a single line with one
// decimal place and no terminator.
func SnowSeries(values []float64) string {
	return FormatFloatSeries(values, 1, len(values)+1, "")
}

// SnowIncrements is the increment count RORB expects alongside a snowmelt
// series.
func SnowIncrements(values []float64) int {
	return len(values)
}

// WaterContentLine renders the per-elevation-zone water content values as a
// single line with two decimal places.
func WaterContentLine(values []float64) string {
	return FormatFloatSeries(values, 2, len(values)+1, "")
}

// WeightedDensityValue renders the catchment-wide snowpack density rounded
// to two decimal places.
func WeightedDensityValue(density float64) string {
	return formatShort(math.Round(density*100) / 100)
}

// =============================================================================
// GATE OPERATIONS FILE
// =============================================================================

// Fixed line positions (0-based) of the pair counts in a gate operations
// file. Counts sit before the "!" comment on each line.
const (
	gateSQCountLine           = 5
	gateOpeningCountLine      = 6
	gateLevelOpeningCountLine = 7
	gateHSCountLine           = 8
)

// ParseStorageCurve reads the storage-elevation rating table out of a gate
// operations file. The table's position depends on the preamble length,
// which in turn depends on whether the file describes more than one gate
// opening.
func ParseStorageCurve(path string) ([]LevelStorage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gate operations file %s: %w", path, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	if len(lines) <= gateHSCountLine {
		return nil, fmt.Errorf("gate operations file %s: too short to carry pair counts", path)
	}

	sqPairs, err := countBeforeComment(lines[gateSQCountLine])
	if err != nil {
		return nil, fmt.Errorf("gate operations file %s line %d: %w", path, gateSQCountLine+1, err)
	}
	openingPairs, err := countBeforeComment(lines[gateOpeningCountLine])
	if err != nil {
		return nil, fmt.Errorf("gate operations file %s line %d: %w", path, gateOpeningCountLine+1, err)
	}
	levelOpeningPairs, err := countBeforeComment(lines[gateLevelOpeningCountLine])
	if err != nil {
		return nil, fmt.Errorf("gate operations file %s line %d: %w", path, gateLevelOpeningCountLine+1, err)
	}
	hsPairs, err := countBeforeComment(lines[gateHSCountLine])
	if err != nil {
		return nil, fmt.Errorf("gate operations file %s line %d: %w", path, gateHSCountLine+1, err)
	}

	preamble := 9
	if openingPairs > 1 {
		preamble = 12
	}

	start := preamble + sqPairs + levelOpeningPairs
	end := start + hsPairs
	if end > len(lines) {
		return nil, fmt.Errorf("gate operations file %s: declares %d storage-elevation pairs, file ends at line %d",
			path, hsPairs, len(lines))
	}

	curve := make([]LevelStorage, 0, hsPairs)
	for i := start; i < end; i++ {
		fields := strings.Fields(lines[i])
		if len(fields) < 2 {
			return nil, fmt.Errorf("gate operations file %s line %d: expected elevation and storage, got %q",
				path, i+1, lines[i])
		}
		elevation, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("gate operations file %s line %d: bad elevation %q: %w", path, i+1, fields[0], err)
		}
		storage, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("gate operations file %s line %d: bad storage %q: %w", path, i+1, fields[1], err)
		}
		curve = append(curve, LevelStorage{Elevation: elevation, Storage: storage})
	}
	return curve, nil
}

// InitialStorage looks the dam's current water level up in the gate
// operations file's own rating table.
func InitialStorage(gateOpsPath string, level float64) (int, error) {
	curve, err := ParseStorageCurve(gateOpsPath)
	if err != nil {
		return 0, err
	}
	storage, err := InterpolateStorage(curve, level)
	if err != nil {
		return 0, fmt.Errorf("gate operations file %s: %w", gateOpsPath, err)
	}
	return storage, nil
}

// countBeforeComment parses the integer before the "!" comment of a pair
// count line.
func countBeforeComment(line string) (int, error) {
	head, _, _ := strings.Cut(line, "!")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, fmt.Errorf("expected a pair count, got %q", strings.TrimSpace(head))
	}
	return n, nil
}

// =============================================================================
// TRANSFER AND OPERATION FILES
// =============================================================================

// TransferSeries renders a transfer flow series one value per line, whole
// numbers, no terminator.
func TransferSeries(values []float64) string {
	return FormatFloatSeries(values, 0, 1, "")
}

// OperationPairs zips the forced outflow and gate opening series into
// "outflow,opening" lines. Outflows keep four decimal places, openings one.
func OperationPairs(outflow, opening []float64) (string, error) {
	if len(outflow) != len(opening) {
		return "", fmt.Errorf("operation series lengths differ: %d outflow, %d opening", len(outflow), len(opening))
	}

	outflowLines := strings.Split(FormatFloatSeries(outflow, 4, 1, ""), "\n")
	openingLines := strings.Split(FormatFloatSeries(opening, 1, 1, ""), "\n")

	pairs := make([]string, len(outflowLines))
	for i := range outflowLines {
		pairs[i] = outflowLines[i] + "," + openingLines[i]
	}
	return strings.Join(pairs, "\n"), nil
}

// =============================================================================
// RECORDED HYDROGRAPH FILE
// =============================================================================

// printKeywords are the exact PRINT directive lines of a RORB catchment
// file. Both spellings occur in production catg files.
var printKeywords = []string{
	"7.2                                              ,                                  PRINT",
	"7                                                ,                                  PRINT",
}

// CatgPrintNumber returns the gauge's 1-based position among the PRINT
// directives of the catchment file: the count of PRINT lines above the first
// line naming the gauge. Comment lines (leading "C") are ignored.
func CatgPrintNumber(catgPath, gauge string) (int, error) {
	data, err := os.ReadFile(catgPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read catchment file %s: %w", catgPath, err)
	}

	printNum := 0
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		if strings.HasPrefix(line, "C") {
			continue
		}
		if strings.Contains(line, gauge) {
			break
		}
		for _, keyword := range printKeywords {
			if strings.Contains(line, keyword) {
				printNum++
				break
			}
		}
	}
	return printNum, nil
}

// RecordedHydrograph renders a recorded gauge flow series one value per
// line at full precision.
func RecordedHydrograph(values []float64) string {
	return FormatFloatSeries(values, 14, 1, "")
}
