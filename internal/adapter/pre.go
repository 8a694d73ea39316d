// =============================================================================
// FEWS-RORB Adapter - Pre-Adapter
// =============================================================================
//
// The pre-adapter turns one set of FEWS exports into a complete RORB run:
//   1. Compile the run info, parameters, state and series exports
//   2. Fill the par, stm and catg templates
//   3. Fill the snowmelt file when the snow switch is on
//   4. Fill one gate-operations file per dam, plus overrides and transfers
//   5. Fill the recorded-hydrograph matching file
//   6. Fill the combined multi-gate index and write the run batch file
//
// Templates live in <workDir>/templates, each named "Template_" plus the
// file it produces. Placeholder sets are validated both ways on every fill,
// so a drifting template fails the run before RORB ever starts.
//
// =============================================================================

package adapter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/compile"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/config"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/fewsxml"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/rorbfmt"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/template"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/pkg/utils"
)

const templateDirName = "templates"

// PreAdapter drives the FEWS-to-RORB direction.
type PreAdapter struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewPreAdapter wires a pre-adapter against one catchment configuration.
func NewPreAdapter(cfg *config.Config, log *zap.SugaredLogger) *PreAdapter {
	return &PreAdapter{cfg: cfg, log: log}
}

// fileCategory accumulates the (count, file list) pair one multi-gate
// category contributes. Builders return these; only Run combines them.
type fileCategory struct {
	count int
	files []string
}

// Run executes the whole pre-adapter against a run info export.
func (a *PreAdapter) Run(runInfoPath string) error {
	runInfoDoc, err := fewsxml.Parse(runInfoPath)
	if err != nil {
		return err
	}
	run, err := compile.CompileRunInfo(runInfoDoc)
	if err != nil {
		return err
	}

	if err := utils.EnsureDir(run.WorkDir); err != nil {
		return err
	}

	paramsDoc, err := fewsxml.Parse(run.ParamsPath)
	if err != nil {
		return err
	}
	params, err := compile.CompileParams(paramsDoc, a.cfg)
	if err != nil {
		return err
	}

	stateDoc, err := fewsxml.Parse(run.StatePath)
	if err != nil {
		return err
	}
	state, err := compile.CompileState(stateDoc, a.cfg)
	if err != nil {
		return err
	}

	if err := a.writeParFile(run, params); err != nil {
		return err
	}
	if err := a.writeStormFile(run, params); err != nil {
		return err
	}
	if err := a.writeCatgFile(run); err != nil {
		return err
	}

	if params.SnowEnabled {
		if err := a.writeSnowmeltFile(run, state); err != nil {
			return err
		}
	} else {
		a.log.Debugf("snow switch is off, skipping snowmelt file")
	}

	gateOps, err := a.writeGateOpsFiles(run, params, state)
	if err != nil {
		return err
	}
	transfers, err := a.writeTransferFiles(run)
	if err != nil {
		return err
	}
	operations, opSamples, err := a.writeOperationFiles(run)
	if err != nil {
		return err
	}
	if err := a.writeMatchingFile(run); err != nil {
		return err
	}
	if err := a.writeMultiGateFile(run, gateOps, transfers, operations, opSamples); err != nil {
		return err
	}

	parFile := filepath.Join(run.WorkDir, a.cfg.ModelName+".par")
	batchPath := filepath.Join(run.WorkDir, "RUN_RORB.bat")
	return utils.WriteRunBatch(batchPath, run.WorkDir, run.RorbExe, parFile)
}

// templatePath resolves the template that produces fileName.
func (a *PreAdapter) templatePath(run *compile.RunInfo, fileName string) string {
	return filepath.Join(run.WorkDir, templateDirName, "Template_"+fileName)
}

// fill loads the template for fileName, substitutes the replacements and
// writes the result into the work directory.
func (a *PreAdapter) fill(run *compile.RunInfo, fileName string, replacements map[string]string) (string, error) {
	tmpl, err := template.Load(a.templatePath(run, fileName))
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(run.WorkDir, fileName)
	if err := tmpl.FillToFile(outPath, replacements); err != nil {
		return "", err
	}
	return outPath, nil
}

// =============================================================================
// PAR FILE
// =============================================================================

func (a *PreAdapter) writeParFile(run *compile.RunInfo, params *compile.Params) error {
	routing := make([]rorbfmt.ISALine, len(params.ISA))
	loss := make([]rorbfmt.ISALine, len(params.ISA))
	for i, isa := range params.ISA {
		routing[i] = rorbfmt.ISALine{ID: isa.ID, A: isa.Kc, B: isa.M}
		loss[i] = rorbfmt.ISALine{ID: isa.ID, A: isa.IL, B: isa.CL}
	}

	// The snowmelt line disappears from the par file when the snow switch
	// is off; the blank line it leaves is stripped below.
	snowLine := ""
	if params.SnowEnabled {
		snowLine = "Snowmelt :" + filepath.Join(run.WorkDir, "Snowmelt.dat")
	}

	outPath, err := a.fill(run, a.cfg.ModelName+".par", map[string]string{
		"catg_file":          filepath.Join(run.WorkDir, a.cfg.CatgFileName),
		"stm_file":           filepath.Join(run.WorkDir, a.cfg.StormFileName),
		"num_burst":          strconv.Itoa(params.NumBursts),
		"num_isa":            strconv.Itoa(params.NumISA),
		"routing_params_isa": rorbfmt.FormatISALines(routing),
		"loss_params_isa":    rorbfmt.FormatISALines(loss),
		"gate_file":          filepath.Join(run.WorkDir, a.cfg.MultiGateFileName),
		"snow_file":          snowLine,
		"matching_file":      "Matching :" + filepath.Join(run.WorkDir, a.cfg.MatchingFileName),
	})
	if err != nil {
		return err
	}
	return template.StripBlankLines(outPath)
}

// =============================================================================
// STM FILE
// =============================================================================

func (a *PreAdapter) writeStormFile(run *compile.RunInfo, params *compile.Params) error {
	rainDoc, err := fewsxml.Parse(run.RainPath)
	if err != nil {
		return err
	}
	rain, err := compile.CompileRain(rainDoc, a.cfg)
	if err != nil {
		return err
	}

	numData, err := rorbfmt.SampleCount(run.StartDateTime, run.EndDateTime, a.cfg.Timezone, a.cfg.Timesteps.RainMinutes)
	if err != nil {
		return err
	}
	if rain.Subareas.Length != numData {
		return fmt.Errorf("rain export carries %d samples, run period requires %d", rain.Subareas.Length, numData)
	}

	series := make([][]float64, len(rain.Subareas.Stations))
	for i, st := range rain.Subareas.Stations {
		series[i] = st.Values
	}

	decays := make([]rorbfmt.BaseflowDecay, len(params.Baseflow))
	for i, bf := range params.Baseflow {
		decays[i] = rorbfmt.BaseflowDecay{Constant: bf.Constant, Multiplier: bf.Multiplier, StartHours: bf.StartHours}
	}

	numSubareas := len(a.cfg.SubareaCalcOrder)
	_, err = a.fill(run, a.cfg.StormFileName, map[string]string{
		"start_time":                    run.StartDateTime,
		"end_time":                      run.EndDateTime,
		"stm_setting":                   rorbfmt.StormSetting(a.cfg.Timesteps.RainMinutes, numData, numSubareas),
		"pluvio_setting":                rorbfmt.PluvioSetting(numData),
		"all_subarea_temporal_patterns": rorbfmt.TemporalPatterns(series),
		"subarea_rainfall":              rorbfmt.SubareaRainfall(rain.Totals),
		"pluvio_choice":                 rorbfmt.PluvioChoice(numSubareas),
		"baseflow_setting":              rorbfmt.BaseflowSetting(numData, len(a.cfg.BaseflowIDs)),
		"all_baseflow_hydrographs":      rorbfmt.BaseflowHydrographs(decays, a.cfg.Timesteps.RainMinutes, numData),
	})
	return err
}

// =============================================================================
// CATG FILE
// =============================================================================

// writeCatgFile carries the catchment file into the work directory. The
// template holds no placeholders; running it through the filler still
// validates that nothing slipped into it.
func (a *PreAdapter) writeCatgFile(run *compile.RunInfo) error {
	_, err := a.fill(run, a.cfg.CatgFileName, map[string]string{})
	return err
}

// =============================================================================
// SNOWMELT FILE
// =============================================================================

func (a *PreAdapter) writeSnowmeltFile(run *compile.RunInfo, state *compile.State) error {
	meteoDoc, err := fewsxml.Parse(run.MeteoPath)
	if err != nil {
		return err
	}
	meteo, err := compile.CompileMeteo(meteoDoc, a.cfg)
	if err != nil {
		return err
	}

	zones := a.orderedElezones()
	waterContent := make([]float64, len(zones))
	density := make(map[string]float64, len(zones))
	for i, zone := range zones {
		wd := a.selectSnowValue(state, zone, "water content", func(c compile.SnowCourse) float64 { return c.WaterContent })
		sd := a.selectSnowValue(state, zone, "snow depth", func(c compile.SnowCourse) float64 { return c.SnowDepth })
		waterContent[i] = wd
		density[zone] = rorbfmt.SnowpackDensity(sd, wd)
	}

	_, err = a.fill(run, "Snowmelt.dat", map[string]string{
		"temp_timeseries":                    rorbfmt.SnowSeries(meteo.Temperature),
		"temp_number_increment":              strconv.Itoa(rorbfmt.SnowIncrements(meteo.Temperature)),
		"wind_timeseries":                    rorbfmt.SnowSeries(meteo.WindSpeed),
		"wind_number_increment":              strconv.Itoa(rorbfmt.SnowIncrements(meteo.WindSpeed)),
		"num_elezone":                        strconv.Itoa(len(zones)),
		"snowmelt_water_content_elezone":     rorbfmt.WaterContentLine(waterContent),
		"snowmelt_weighted_snowpack_density": rorbfmt.WeightedDensityValue(rorbfmt.WeightedSnowpackDensity(density)),
	})
	return err
}

// orderedElezones returns the configured elevation zones in ascending order.
func (a *PreAdapter) orderedElezones() []string {
	zones := make([]string, 0, len(a.cfg.ElezonePriorities))
	for zone := range a.cfg.ElezonePriorities {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool {
		vi, _ := strconv.Atoi(zones[i])
		vj, _ := strconv.Atoi(zones[j])
		return vi < vj
	})
	return zones
}

// selectSnowValue walks the zone's snow course priority list and takes the
// first non-missing observation. An empty-handed walk falls back to 0.
func (a *PreAdapter) selectSnowValue(state *compile.State, zone, what string, get func(compile.SnowCourse) float64) float64 {
	candidates := make([]float64, 0, len(a.cfg.ElezonePriorities[zone]))
	for _, courseID := range a.cfg.ElezonePriorities[zone] {
		candidates = append(candidates, get(state.SnowCourses[courseID]))
	}

	value, ok := rorbfmt.SelectByPriority(candidates)
	if !ok {
		a.log.Warnf("missing %s for elezone %s, falling back to 0", what, zone)
		return 0
	}
	return value
}

// =============================================================================
// GATE OPERATIONS
// =============================================================================

// gateOpsTemplateName selects the template for a dam's operating procedure.
// Automatic procedures (1, 3) prefer the automatic template but fall back to
// the open one; manual procedures (2, 4, 5) always use the open template.
func gateOpsTemplateName(m config.GateOpsMapping, procedure int) (string, error) {
	switch procedure {
	case 1, 3:
		if m.FilenameAuto != "" {
			return m.FilenameAuto, nil
		}
		return m.FilenameOpen, nil
	case 2, 4, 5:
		return m.FilenameOpen, nil
	default:
		return "", fmt.Errorf("dam %s: unsupported gate procedure %d", m.DamID, procedure)
	}
}

// writeGateOpsFiles fills one gate-operations file per dam. The returned
// category's file list alternates storage labels and file paths, which is
// the layout the multi-gate index expects.
func (a *PreAdapter) writeGateOpsFiles(run *compile.RunInfo, params *compile.Params, state *compile.State) (fileCategory, error) {
	var cat fileCategory
	for _, m := range a.cfg.GateOps {
		fileName, err := gateOpsTemplateName(m, params.GateProcedure[m.DamID])
		if err != nil {
			return fileCategory{}, err
		}

		storage, err := rorbfmt.InitialStorage(a.templatePath(run, fileName), state.DamLevels[m.DamID])
		if err != nil {
			return fileCategory{}, fmt.Errorf("dam %s: %w", m.DamID, err)
		}

		outPath, err := a.fill(run, fileName, map[string]string{
			"gateops_timestep_hour":     rorbfmt.TimestepHours(a.cfg.Timesteps.GateOpsMinutes),
			"initial_reservoir_storage": strconv.Itoa(storage),
		})
		if err != nil {
			return fileCategory{}, err
		}

		cat.files = append(cat.files, m.StorageLabel, outPath)
		cat.count++
	}
	return cat, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

// writeTransferFiles fills one transfer file per configured series, all from
// the shared transfer template.
func (a *PreAdapter) writeTransferFiles(run *compile.RunInfo) (fileCategory, error) {
	transferDoc, err := fewsxml.Parse(run.TransferPath)
	if err != nil {
		return fileCategory{}, err
	}
	transfers, err := compile.CompileTransfers(transferDoc, a.cfg)
	if err != nil {
		return fileCategory{}, err
	}

	var cat fileCategory
	for _, t := range transfers {
		tmpl, err := template.Load(a.templatePath(run, "GateOpsTransfer.dat"))
		if err != nil {
			return fileCategory{}, err
		}
		outPath := filepath.Join(run.WorkDir, t.Mapping.Filename)
		err = tmpl.FillToFile(outPath, map[string]string{
			"in":       t.Mapping.InNode,
			"out":      t.Mapping.OutNode,
			"transfer": rorbfmt.TransferSeries(t.Values),
		})
		if err != nil {
			return fileCategory{}, err
		}
		cat.files = append(cat.files, outPath)
		cat.count++
	}
	return cat, nil
}

// =============================================================================
// OPERATION OVERRIDES
// =============================================================================

// writeOperationFiles fills a gate override file for every dam the
// operation export carries a forced series for. Dams without an override
// file name configured are skipped. Also returns the override sample count
// for the multi-gate index.
func (a *PreAdapter) writeOperationFiles(run *compile.RunInfo) (fileCategory, int, error) {
	operationDoc, err := fewsxml.Parse(run.OperationPath)
	if err != nil {
		return fileCategory{}, 0, err
	}
	ops, err := compile.CompileOperations(operationDoc, a.cfg)
	if err != nil {
		return fileCategory{}, 0, err
	}

	byDam := make(map[string]compile.Operation, len(ops))
	for _, op := range ops {
		byDam[op.DamID] = op
	}

	var cat fileCategory
	samples := 0
	for _, m := range a.cfg.GateOps {
		op, forced := byDam[m.DamID]
		if !forced || m.OverrideFilename == "" {
			continue
		}

		pairs, err := rorbfmt.OperationPairs(op.Outflow, op.Opening)
		if err != nil {
			return fileCategory{}, 0, fmt.Errorf("dam %s: %w", m.DamID, err)
		}

		tmpl, err := template.Load(a.templatePath(run, "GateOpsOverride.dat"))
		if err != nil {
			return fileCategory{}, 0, err
		}
		outPath := filepath.Join(run.WorkDir, m.OverrideFilename)
		err = tmpl.FillToFile(outPath, map[string]string{
			"gate_override":   m.StorageLabel,
			"outflow_opening": pairs,
		})
		if err != nil {
			return fileCategory{}, 0, err
		}

		cat.files = append(cat.files, outPath)
		cat.count++
		samples = len(op.Outflow)
	}
	return cat, samples, nil
}

// =============================================================================
// RECORDED HYDROGRAPHS
// =============================================================================

// writeMatchingFile fills the recorded-hydrograph matching file: per gauge,
// its position among the catchment file's PRINT directives followed by the
// recorded flow series.
func (a *PreAdapter) writeMatchingFile(run *compile.RunInfo) error {
	hydroDoc, err := fewsxml.Parse(run.HydrographPath)
	if err != nil {
		return err
	}
	gauges, err := compile.CompileHydrographs(hydroDoc, a.cfg)
	if err != nil {
		return err
	}

	catgPath := filepath.Join(run.WorkDir, a.cfg.CatgFileName)
	entries := make([]string, 0, len(gauges.Stations))
	for _, gauge := range gauges.Stations {
		printNum, err := rorbfmt.CatgPrintNumber(catgPath, a.catgLabel(gauge.LocationID))
		if err != nil {
			return err
		}
		entries = append(entries,
			strconv.Itoa(printNum)+"\n"+rorbfmt.RecordedHydrograph(gauge.Values))
	}

	_, err = a.fill(run, a.cfg.MatchingFileName, map[string]string{
		"hydrograph_number":          strconv.Itoa(len(gauges.Stations)),
		"hydrograph_timestep_hour":   rorbfmt.TimestepHours(a.cfg.Timesteps.HydrographMinutes),
		"hydrograph_number_timestep": strconv.Itoa(gauges.Length),
		"hydrograph_entries":         rorbfmt.JoinLines(entries),
	})
	return err
}

// catgLabel resolves the label the catchment file carries for a gauge.
// Gauges without a configured label are scanned for under their location id.
func (a *PreAdapter) catgLabel(locationID string) string {
	if label, ok := a.cfg.CatgGaugeLabels[locationID]; ok {
		return label
	}
	return locationID
}

// =============================================================================
// MULTI-GATE INDEX
// =============================================================================

// writeMultiGateFile fills the combined index file that points RORB at every
// gate-operations, transfer and override file written above.
func (a *PreAdapter) writeMultiGateFile(run *compile.RunInfo, gateOps, transfers, operations fileCategory, opSamples int) error {
	transferSamples, err := rorbfmt.SampleCount(run.StartDateTime, run.EndDateTime, a.cfg.Timezone, a.cfg.Timesteps.TransferMinutes)
	if err != nil {
		return err
	}

	_, err = a.fill(run, a.cfg.MultiGateFileName, map[string]string{
		"gateops_number":             strconv.Itoa(gateOps.count),
		"gateops_storages_and_files": rorbfmt.JoinLines(gateOps.files),
		"transfer_number":            strconv.Itoa(transfers.count),
		"transfer_timestep_hour":     rorbfmt.TimestepHours(a.cfg.Timesteps.TransferMinutes),
		"transfer_number_timestep":   strconv.Itoa(transferSamples),
		"transfer_files":             rorbfmt.JoinLines(transfers.files),
		"operation_number":           strconv.Itoa(operations.count),
		"operation_timestep_hour":    rorbfmt.TimestepHours(a.cfg.Timesteps.OperationMinutes),
		"operation_number_timestep":  strconv.Itoa(opSamples),
		"operation_files":            rorbfmt.JoinLines(operations.files),
	})
	return err
}
