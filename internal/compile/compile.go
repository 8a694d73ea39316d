// =============================================================================
// FEWS-RORB Adapter - Compiled Input Models
// =============================================================================
//
// This module compiles the raw FEWS PI-XML exports into the typed models the
// RORB formatters consume. Each Compile* function reads one export document
// once and resolves every configured identifier against it, so lookup
// failures surface before any output file is written.
//
// INPUT DOCUMENTS:
//   1. Run info:   run period, work directory, export file names
//   2. Parameters: ISA loss/routing values, baseflow decay, gate procedures
//   3. State:      reservoir levels, snow course depth/water content
//   4. Series:     rain, meteo, transfer, operation and hydrograph exports
//
// The parameter group and parameter identifiers below are contract points
// with the FEWS module configuration, not user-configurable values.
//
// =============================================================================

package compile

import (
	"fmt"
	"path/filepath"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/config"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/fewsxml"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/rorbfmt"
)

// =============================================================================
// FEWS CONTRACT IDENTIFIERS
// =============================================================================

// Parameter groups in the parameters export.
const (
	groupRouting  = "RORB_Routing"
	groupLoss     = "RORB_Loss"
	groupBaseflow = "RORB_Baseflow"
	groupGates    = "RORB_Gates"
	groupGeneral  = "RORB_General"
)

// Condition parameters locating the per-entity group instance.
const (
	condISA      = "isa_id"
	condBaseflow = "baseflow_id"
	condDam      = "dam_id"
)

// Parameter identifiers.
const (
	paramKc       = "Kc"
	paramM        = "m"
	paramIL       = "IL"
	paramCL       = "CL"
	paramBfConst  = "bf_const"
	paramBfMulti  = "bf_multi"
	paramBfStart  = "bf_start_hours"
	paramGateProc = "gate_procedure"
	paramNumBurst = "num_burst"
	paramNumISA   = "num_isa"
	paramSnowSw   = "snow_switch"
)

// Time-series parameter identifiers.
const (
	paramWaterLevel    = "H.obs"
	paramSnowDepth     = "SD.obs"
	paramWaterContent  = "WD.obs"
	paramRain          = "P.fcst"
	paramTemperature   = "T.fcst"
	paramWindSpeed     = "U.fcst"
	paramForcedOutflow = "Qo.fcst"
	paramForcedOpening = "G.fcst"
	paramRecordedFlow  = "Q.obs"
)

// Properties overriding the default export file names in the run info.
const (
	propParamsFile     = "paramsFile"
	propStateFile      = "stateFile"
	propRainFile       = "rainFile"
	propMeteoFile      = "meteoFile"
	propTransferFile   = "transferFile"
	propOperationFile  = "operationFile"
	propHydrographFile = "hydrographFile"
	propRorbExe        = "rorbExe"
)

// Properties overriding the post-adapter output locations.
const (
	propFromRorbDir     = "fromRorbDir"
	propReservoirOpFile = "reservoirOperationFile"
	propRainfallExcFile = "rainfallExcessFile"
	propGaugeFlowFile   = "gaugeFlowFile"
)

// =============================================================================
// RUN INFO
// =============================================================================

// RunInfo carries the run period and the resolved paths of every export
// document for this run.
type RunInfo struct {
	// StartDateTime, EndDateTime and Time0 are civil date-times in the
	// configured time zone, as exported by FEWS.
	StartDateTime string
	EndDateTime   string
	Time0         string

	// WorkDir is the directory the exports live in and the RORB files are
	// written to.
	WorkDir string

	// RorbExe is the RORB executable the run batch file launches.
	RorbExe string

	// Export document paths, resolved against WorkDir.
	ParamsPath     string
	StatePath      string
	RainPath       string
	MeteoPath      string
	TransferPath   string
	OperationPath  string
	HydrographPath string

	// FromRorbDir is where the post-adapter writes its intermediate and
	// combined PI documents.
	FromRorbDir string

	// Combined output document paths.
	ReservoirOperationPath string
	RainfallExcessPath     string
	GaugeFlowPath          string
}

// CompileRunInfo reads the run info export. File-name properties are
// optional; absent properties fall back to the conventional export names.
func CompileRunInfo(doc *fewsxml.Document) (*RunInfo, error) {
	start, err := doc.DateTime("startDateTime")
	if err != nil {
		return nil, fmt.Errorf("run info %s: %w", doc.Path(), err)
	}
	end, err := doc.DateTime("endDateTime")
	if err != nil {
		return nil, fmt.Errorf("run info %s: %w", doc.Path(), err)
	}
	time0, err := doc.DateTime("time0")
	if err != nil {
		return nil, fmt.Errorf("run info %s: %w", doc.Path(), err)
	}
	workDir, err := doc.ElementText("workDir", 0)
	if err != nil {
		return nil, fmt.Errorf("run info %s: %w", doc.Path(), err)
	}

	resolve := func(property, fallback string) string {
		name, err := doc.PropertyValue(property)
		if err != nil || name == "" {
			name = fallback
		}
		return filepath.Join(workDir, name)
	}

	rorbExe, err := doc.PropertyValue(propRorbExe)
	if err != nil || rorbExe == "" {
		rorbExe = "RORB.exe"
	}

	fromRorb, err := doc.PropertyValue(propFromRorbDir)
	if err != nil || fromRorb == "" {
		fromRorb = filepath.Join(workDir, "fromrorb")
	}
	resolveOut := func(property, fallback string) string {
		name, err := doc.PropertyValue(property)
		if err != nil || name == "" {
			name = fallback
		}
		return filepath.Join(fromRorb, name)
	}

	return &RunInfo{
		StartDateTime:  start,
		EndDateTime:    end,
		Time0:          time0,
		WorkDir:        workDir,
		RorbExe:        rorbExe,
		ParamsPath:     resolve(propParamsFile, "params.xml"),
		StatePath:      resolve(propStateFile, "state.xml"),
		RainPath:       resolve(propRainFile, "rain.xml"),
		MeteoPath:      resolve(propMeteoFile, "meteo.xml"),
		TransferPath:   resolve(propTransferFile, "transfer.xml"),
		OperationPath:  resolve(propOperationFile, "operation.xml"),
		HydrographPath: resolve(propHydrographFile, "hydrograph.xml"),

		FromRorbDir:            fromRorb,
		ReservoirOperationPath: resolveOut(propReservoirOpFile, "reservoir_operation.xml"),
		RainfallExcessPath:     resolveOut(propRainfallExcFile, "rainfall_excess.xml"),
		GaugeFlowPath:          resolveOut(propGaugeFlowFile, "gauge_flow.xml"),
	}, nil
}

// =============================================================================
// PARAMETERS
// =============================================================================

// ISAParams holds the routing and loss parameters of one interstation area.
type ISAParams struct {
	ID string
	Kc float64
	M  float64
	IL float64
	CL float64
}

// BaseflowParams holds the decay recursion parameters of one baseflow
// calculation.
type BaseflowParams struct {
	ID         string
	Constant   float64
	Multiplier float64
	StartHours float64
}

// Params is the compiled parameters export.
type Params struct {
	ISA      []ISAParams
	Baseflow []BaseflowParams

	// GateProcedure maps each dam to its gate operating procedure code.
	GateProcedure map[string]int

	NumBursts int
	NumISA    int

	// SnowEnabled reports whether the snowmelt file is generated this run.
	SnowEnabled bool
}

// CompileParams resolves every configured ISA, baseflow and dam identifier
// against the parameters export.
func CompileParams(doc *fewsxml.Document, cfg *config.Config) (*Params, error) {
	p := &Params{GateProcedure: make(map[string]int)}

	for _, id := range cfg.ISAIDs {
		isa := ISAParams{ID: id}
		var err error
		if isa.Kc, err = doc.ConditionalParameterFloat(groupRouting, condISA, id, paramKc, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for ISA %s: %w", id, err)
		}
		if isa.M, err = doc.ConditionalParameterFloat(groupRouting, condISA, id, paramM, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for ISA %s: %w", id, err)
		}
		if isa.IL, err = doc.ConditionalParameterFloat(groupLoss, condISA, id, paramIL, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for ISA %s: %w", id, err)
		}
		if isa.CL, err = doc.ConditionalParameterFloat(groupLoss, condISA, id, paramCL, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for ISA %s: %w", id, err)
		}
		p.ISA = append(p.ISA, isa)
	}

	for _, id := range cfg.BaseflowIDs {
		bf := BaseflowParams{ID: id}
		var err error
		if bf.Constant, err = doc.ConditionalParameterFloat(groupBaseflow, condBaseflow, id, paramBfConst, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for baseflow %s: %w", id, err)
		}
		if bf.Multiplier, err = doc.ConditionalParameterFloat(groupBaseflow, condBaseflow, id, paramBfMulti, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for baseflow %s: %w", id, err)
		}
		if bf.StartHours, err = doc.ConditionalParameterFloat(groupBaseflow, condBaseflow, id, paramBfStart, "dblValue"); err != nil {
			return nil, fmt.Errorf("parameters for baseflow %s: %w", id, err)
		}
		p.Baseflow = append(p.Baseflow, bf)
	}

	for _, id := range cfg.DamIDs {
		proc, err := doc.ConditionalParameterFloat(groupGates, condDam, id, paramGateProc, "intValue")
		if err != nil {
			return nil, fmt.Errorf("parameters for dam %s: %w", id, err)
		}
		p.GateProcedure[id] = int(proc)
	}

	numBurst, err := doc.ParameterFloat(groupGeneral, paramNumBurst, "intValue")
	if err != nil {
		return nil, fmt.Errorf("general parameters: %w", err)
	}
	p.NumBursts = int(numBurst)

	numISA, err := doc.ParameterFloat(groupGeneral, paramNumISA, "intValue")
	if err != nil {
		return nil, fmt.Errorf("general parameters: %w", err)
	}
	p.NumISA = int(numISA)
	if p.NumISA != len(cfg.ISAIDs) {
		return nil, fmt.Errorf("parameters declare %d interstation areas, config lists %d", p.NumISA, len(cfg.ISAIDs))
	}

	snowSw, err := doc.ParameterFloat(groupGeneral, paramSnowSw, "intValue")
	if err != nil {
		return nil, fmt.Errorf("general parameters: %w", err)
	}
	p.SnowEnabled = int(snowSw) != 0

	return p, nil
}

// =============================================================================
// STATE
// =============================================================================

// SnowCourse holds one snow course's depth and water content observation.
// Either value may be the missing sentinel outside the snow season.
type SnowCourse struct {
	SnowDepth    float64
	WaterContent float64
}

// Density derives the course's snowpack density, 0 when either value is
// missing or the water content is zero.
func (c SnowCourse) Density() float64 {
	if rorbfmt.IsMissing(c.SnowDepth) || rorbfmt.IsMissing(c.WaterContent) {
		return 0
	}
	return rorbfmt.SnowpackDensity(c.SnowDepth, c.WaterContent)
}

// State is the compiled state export.
type State struct {
	// DamLevels maps each dam to its current water level. A missing level is
	// fatal at compile time; RORB cannot start without an initial storage.
	DamLevels map[string]float64

	// SnowCourses maps each snow course to its observations. Missing courses
	// are recoverable; they fall back through the elezone priority lists.
	SnowCourses map[string]SnowCourse
}

// CompileState resolves the configured dam and snow course identifiers
// against the state export.
func CompileState(doc *fewsxml.Document, cfg *config.Config) (*State, error) {
	s := &State{
		DamLevels:   make(map[string]float64),
		SnowCourses: make(map[string]SnowCourse),
	}

	for _, id := range cfg.DamIDs {
		level, err := doc.EventValue(id, paramWaterLevel)
		if err != nil {
			return nil, fmt.Errorf("state for dam %s: %w", id, err)
		}
		if rorbfmt.IsMissing(level) {
			return nil, fmt.Errorf("state for dam %s: water level is missing", id)
		}
		s.DamLevels[id] = level
	}

	for _, id := range cfg.SnowCourseIDs {
		course := SnowCourse{SnowDepth: rorbfmt.Missing, WaterContent: rorbfmt.Missing}
		if sd, err := doc.EventValue(id, paramSnowDepth); err == nil {
			course.SnowDepth = sd
		}
		if wd, err := doc.EventValue(id, paramWaterContent); err == nil {
			course.WaterContent = wd
		}
		s.SnowCourses[id] = course
	}

	return s, nil
}

// =============================================================================
// SERIES EXPORTS
// =============================================================================

// StationSeries is one station's compiled value series.
type StationSeries struct {
	LocationID string
	Values     []float64
}

// SeriesSet holds equal-length series for an ordered station list.
type SeriesSet struct {
	Stations []StationSeries
	Length   int
}

// compileSeriesSet reads one series per location, substituting fill for
// missing values, and checks all series share one length.
func compileSeriesSet(doc *fewsxml.Document, locationIDs []string, parameterID string, fill float64) (*SeriesSet, error) {
	set := &SeriesSet{}
	for _, id := range locationIDs {
		values, err := doc.SeriesValues(id, parameterID, fill)
		if err != nil {
			return nil, fmt.Errorf("series (%s, %s) in %s: %w", id, parameterID, doc.Path(), err)
		}
		if set.Length == 0 {
			set.Length = len(values)
		} else if len(values) != set.Length {
			return nil, fmt.Errorf("series (%s, %s) in %s has %d samples, expected %d",
				id, parameterID, doc.Path(), len(values), set.Length)
		}
		set.Stations = append(set.Stations, StationSeries{LocationID: id, Values: values})
	}
	return set, nil
}

// Rain is the compiled rainfall export: one series per subarea in
// calculation order, with the per-subarea depth totals.
type Rain struct {
	Subareas *SeriesSet
	Totals   []float64
}

// CompileRain reads the per-subarea rainfall series in calculation order.
// Missing samples are treated as zero rainfall.
func CompileRain(doc *fewsxml.Document, cfg *config.Config) (*Rain, error) {
	set, err := compileSeriesSet(doc, cfg.SubareaCalcOrder, paramRain, 0)
	if err != nil {
		return nil, err
	}

	totals := make([]float64, len(set.Stations))
	for i, st := range set.Stations {
		for _, v := range st.Values {
			totals[i] += v
		}
	}
	return &Rain{Subareas: set, Totals: totals}, nil
}

// Meteo is the compiled meteorological export for the snowmelt file.
type Meteo struct {
	Temperature []float64
	WindSpeed   []float64
}

// CompileMeteo reads the temperature and wind series of the first configured
// meteo station. Missing samples are treated as zero.
func CompileMeteo(doc *fewsxml.Document, cfg *config.Config) (*Meteo, error) {
	if len(cfg.MeteoIDs) == 0 {
		return nil, fmt.Errorf("no meteo stations configured")
	}
	id := cfg.MeteoIDs[0]

	temp, err := doc.SeriesValues(id, paramTemperature, 0)
	if err != nil {
		return nil, fmt.Errorf("series (%s, %s) in %s: %w", id, paramTemperature, doc.Path(), err)
	}
	wind, err := doc.SeriesValues(id, paramWindSpeed, 0)
	if err != nil {
		return nil, fmt.Errorf("series (%s, %s) in %s: %w", id, paramWindSpeed, doc.Path(), err)
	}
	if len(temp) != len(wind) {
		return nil, fmt.Errorf("meteo series lengths differ: %d temperature, %d wind", len(temp), len(wind))
	}
	return &Meteo{Temperature: temp, WindSpeed: wind}, nil
}

// Transfer is one compiled inter-basin transfer series with its target file.
type Transfer struct {
	Mapping config.TransferMapping
	Values  []float64
}

// CompileTransfers reads every configured transfer series. Missing samples
// are treated as zero flow.
func CompileTransfers(doc *fewsxml.Document, cfg *config.Config) ([]Transfer, error) {
	var transfers []Transfer
	for _, m := range cfg.Transfers {
		values, err := doc.SeriesValues(m.LocationID, m.ParameterID, 0)
		if err != nil {
			return nil, fmt.Errorf("series (%s, %s) in %s: %w", m.LocationID, m.ParameterID, doc.Path(), err)
		}
		transfers = append(transfers, Transfer{Mapping: m, Values: values})
	}
	return transfers, nil
}

// Operation is one dam's forced outflow and gate opening series. The station
// list comes from the operation export itself: a dam with no series there is
// simply not overridden this run.
type Operation struct {
	DamID   string
	Outflow []float64
	Opening []float64
}

// CompileOperations reads the forced operation series for every dam present
// in the operation export.
func CompileOperations(doc *fewsxml.Document, cfg *config.Config) ([]Operation, error) {
	present := make(map[string]bool)
	for _, id := range doc.LocationIDs() {
		present[id] = true
	}

	var ops []Operation
	for _, id := range cfg.DamIDs {
		if !present[id] {
			continue
		}
		outflow, err := doc.SeriesValues(id, paramForcedOutflow, 0)
		if err != nil {
			return nil, fmt.Errorf("series (%s, %s) in %s: %w", id, paramForcedOutflow, doc.Path(), err)
		}
		opening, err := doc.SeriesValues(id, paramForcedOpening, 0)
		if err != nil {
			return nil, fmt.Errorf("series (%s, %s) in %s: %w", id, paramForcedOpening, doc.Path(), err)
		}
		if len(outflow) != len(opening) {
			return nil, fmt.Errorf("operation series lengths differ for dam %s: %d outflow, %d opening",
				id, len(outflow), len(opening))
		}
		ops = append(ops, Operation{DamID: id, Outflow: outflow, Opening: opening})
	}
	return ops, nil
}

// CompileHydrographs reads the recorded gauge flows in hydrograph
// calculation order. Missing samples are treated as zero flow.
func CompileHydrographs(doc *fewsxml.Document, cfg *config.Config) (*SeriesSet, error) {
	return compileSeriesSet(doc, cfg.HydrographCalcOrder, paramRecordedFlow, 0)
}
