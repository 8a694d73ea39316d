package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
model_name: Tumut
catg_file_name: Tumut.catg
storm_file_name: Tumut.stm
out_file_name: Tumut.out
timezone: Australia/Sydney

isa_ids: [ISA1, ISA2]
baseflow_ids: [410571]
dam_ids: [410571]
snow_course_ids: [SC1, SC2]
transfer_ids: [T1]
meteo_ids: [M1]

subarea_calc_order: [SA1, SA2, SA3]
hydrograph_calc_order: [G1, G2]

catg_gauge_labels:
  G1: Goobarragandra

elezone_priorities:
  "1": [SC1, SC2]
  "2": [SC2]

timesteps:
  rain_minutes: 30
  gate_ops_minutes: 15
  transfer_minutes: 60
  operation_minutes: 15
  hydrograph_minutes: 30

gate_ops:
  - dam_id: 410571
    storage_label: BlowSt
    filename_open: gateOps_Blowering_open.dat
    filename_auto: gateOps_Blowering_auto.dat
    override_filename: gateOpsOverride_Blowering.dat
    csv_filename: Blowering.csv

transfers:
  - location_id: T1
    parameter_id: Qtrans
    in: "15"
    out: "22"
    filename: transfer_T1.dat

gauge_flows:
  - hydrograph_label: Hyd001
    location_id: "410574"

skip_interstation_tables: [9]
`

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adapter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "Tumut", cfg.ModelName)
	assert.Equal(t, []string{"ISA1", "ISA2"}, cfg.ISAIDs)
	assert.Equal(t, []string{"SA1", "SA2", "SA3"}, cfg.SubareaCalcOrder)
	assert.Equal(t, 30, cfg.Timesteps.RainMinutes)
	assert.Equal(t, "22", cfg.Transfers[0].OutNode)
	assert.Equal(t, map[string]string{"G1": "Goobarragandra"}, cfg.CatgGaugeLabels)
	assert.Equal(t, []int{9}, cfg.SkipInterstationTables)
}

func TestLoad_AppliesFileNameDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "multiGateOps.dat", cfg.MultiGateFileName)
	assert.Equal(t, "multiRecorded_hydrographs.dat", cfg.MatchingFileName)
}

func TestLoad_ExplicitFileNamesKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML+"\nmulti_gate_file_name: custom.dat\n"))
	require.NoError(t, err)
	assert.Equal(t, "custom.dat", cfg.MultiGateFileName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "model_name: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad_MissingRequiredField(t *testing.T) {
	_, err := Load(writeConfig(t, `
catg_file_name: Tumut.catg
storm_file_name: Tumut.stm
out_file_name: Tumut.out
timezone: Australia/Sydney
isa_ids: [ISA1]
subarea_calc_order: [SA1]
timesteps:
  rain_minutes: 30
  gate_ops_minutes: 15
  transfer_minutes: 60
  operation_minutes: 15
  hydrograph_minutes: 30
`))
	assert.ErrorContains(t, err, "ModelName")
}

func TestLoad_ZeroTimestepRejected(t *testing.T) {
	broken := strings.Replace(validYAML, "rain_minutes: 30", "rain_minutes: 0", 1)
	_, err := Load(writeConfig(t, broken))
	assert.ErrorContains(t, err, "RainMinutes")
}

func TestValidate_UnknownSnowCourse(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.ElezonePriorities["3"] = []string{"SC99"}
	assert.ErrorContains(t, Validate(cfg), `unknown snow course "SC99"`)
}

func TestValidate_EmptyElezonePriorityList(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.ElezonePriorities["4"] = nil
	assert.ErrorContains(t, Validate(cfg), "empty priority list")
}

func TestValidate_UnknownGateOpsDam(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.GateOps[0].DamID = "999999"
	assert.ErrorContains(t, Validate(cfg), `unknown dam "999999"`)
}

func TestValidate_UnknownTransferStation(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.Transfers[0].LocationID = "T99"
	assert.ErrorContains(t, Validate(cfg), `unknown station "T99"`)
}

func TestValidate_UnknownCatgGaugeLabel(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.CatgGaugeLabels["G99"] = "Nowhere"
	assert.ErrorContains(t, Validate(cfg), `unknown gauge "G99"`)
}

func TestValidate_DuplicateGaugeFlowLabel(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.GaugeFlows = append(cfg.GaugeFlows, GaugeFlowMapping{HydrographLabel: "Hyd001", LocationID: "X"})
	assert.ErrorContains(t, Validate(cfg), `selects hydrograph "Hyd001" twice`)
}

func TestValidate_SkipIndexesAreOneBased(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.SkipInterstationTables = []int{0}
	assert.ErrorContains(t, Validate(cfg), "1-based")
}

func TestApplyLookupRegister_NoRegisterConfigured(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.NoError(t, ApplyLookupRegister(cfg))
	assert.Equal(t, []string{"SA1", "SA2", "SA3"}, cfg.SubareaCalcOrder)
}

func TestApplyLookupRegister_MissingWorkbook(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.LookupRegister = filepath.Join(t.TempDir(), "absent.xlsx")
	assert.ErrorContains(t, ApplyLookupRegister(cfg), "failed to open lookup register")
}
