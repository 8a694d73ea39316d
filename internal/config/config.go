// =============================================================================
// FEWS-RORB Adapter - Configuration Module
// =============================================================================
//
// This module loads and validates the adapter configuration. The configuration
// describes one RORB catchment model from the adapter's point of view: which
// RORB identifiers exist, in which calculation order subareas and hydrograph
// stations appear, which template and output files belong to each concern,
// and the timesteps of every input series.
//
// CONFIGURATION FILES:
//   1. Adapter Config (adapter.yaml): everything below
//   2. Optional Lookup Register (XLSX): hydrologist-maintained workbook that
//      overrides the calculation orders and gauge selections (register.go)
//
// All configurations are validated on load. A configuration error is fatal;
// the adapter never runs on a partially-valid config.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// ADAPTER CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the full adapter configuration for one catchment model.
type Config struct {
	// =========================================================================
	// MODEL IDENTIFICATION
	// =========================================================================

	// ModelName is the RORB model name, used to derive the par/stm/out
	// file names passed to RORB and expected back from it.
	ModelName string `yaml:"model_name" validate:"required"`

	// CatgFileName is the RORB catchment (.catg) file name. The recorded
	// hydrograph writer scans this file for PRINT positions.
	CatgFileName string `yaml:"catg_file_name" validate:"required"`

	// StormFileName is the storm (.stm) file name written by the pre-adapter.
	StormFileName string `yaml:"storm_file_name" validate:"required"`

	// OutFileName is the RORB report (.out) file name read by the
	// post-adapter.
	OutFileName string `yaml:"out_file_name" validate:"required"`

	// MultiGateFileName is the combined gate-operations index file named in
	// the par file. Defaults to "multiGateOps.dat".
	MultiGateFileName string `yaml:"multi_gate_file_name"`

	// MatchingFileName is the recorded-hydrograph matching file named in
	// the par file. Defaults to "multiRecorded_hydrographs.dat".
	MatchingFileName string `yaml:"matching_file_name"`

	// Timezone is the IANA zone name all civil date-times in the FEWS
	// exports are interpreted in, e.g. "Australia/Sydney".
	Timezone string `yaml:"timezone" validate:"required"`

	// =========================================================================
	// RORB IDENTIFIER LISTS
	// =========================================================================
	//
	// Each list names the RORB identifiers of one concern, in the order the
	// generated files must carry them. The adapter looks every identifier up
	// in the FEWS exports; an identifier with no matching series is fatal
	// except where noted on the reader.

	// ISAIDs are the interstation-area identifiers, in par-file order.
	ISAIDs []string `yaml:"isa_ids" validate:"required,min=1"`

	// BaseflowIDs are the baseflow calculation identifiers, in stm-file
	// order.
	BaseflowIDs []string `yaml:"baseflow_ids"`

	// DamIDs are the reservoir location identifiers, one per gate-operations
	// file and per post-adapter CSV.
	DamIDs []string `yaml:"dam_ids"`

	// SnowCourseIDs are the snow course location identifiers carrying the
	// SD/WD state values.
	SnowCourseIDs []string `yaml:"snow_course_ids"`

	// TransferIDs are the inter-basin transfer station identifiers.
	TransferIDs []string `yaml:"transfer_ids"`

	// MeteoIDs are the meteorological station identifiers (temperature and
	// wind) used by the snowmelt file.
	MeteoIDs []string `yaml:"meteo_ids"`

	// =========================================================================
	// CALCULATION ORDERS
	// =========================================================================

	// SubareaCalcOrder lists the subarea location identifiers in RORB
	// calculation order. Temporal patterns, rainfall totals and baseflow
	// hydrographs are emitted in this order.
	SubareaCalcOrder []string `yaml:"subarea_calc_order" validate:"required,min=1"`

	// HydrographCalcOrder lists the gauge location identifiers in the order
	// RORB prints Hyd001, Hyd002, ... in the report summary.
	HydrographCalcOrder []string `yaml:"hydrograph_calc_order"`

	// CatgGaugeLabels maps a gauge location identifier to the label the
	// catchment file carries for it, for gauges whose catg node name differs
	// from the FEWS location id. Unlisted gauges are looked up by their
	// location id.
	CatgGaugeLabels map[string]string `yaml:"catg_gauge_labels"`

	// =========================================================================
	// SNOW ELEVATION ZONES
	// =========================================================================

	// ElezonePriorities maps each elevation zone ("1".."9") to the ordered
	// snow course identifiers consulted for its water content. The first
	// course with a non-missing value wins; if all are missing the zone
	// falls back to 0 with a warning.
	ElezonePriorities map[string][]string `yaml:"elezone_priorities"`

	// =========================================================================
	// TIMESTEPS (minutes)
	// =========================================================================

	Timesteps TimestepConfig `yaml:"timesteps"`

	// =========================================================================
	// FILE MAPPINGS
	// =========================================================================

	// GateOps maps each dam to its gate-operations template files.
	GateOps []GateOpsMapping `yaml:"gate_ops"`

	// Transfers maps each transfer series to its RORB input file.
	Transfers []TransferMapping `yaml:"transfers"`

	// =========================================================================
	// POST-ADAPTER SETTINGS
	// =========================================================================

	// GaugeFlows selects which report hydrograph columns become FEWS gauge
	// flow series, and under which location identifier.
	GaugeFlows []GaugeFlowMapping `yaml:"gauge_flows"`

	// SkipInterstationTables lists 1-based rainfall-excess table indexes the
	// post-adapter drops instead of exporting. Configuration-specific: some
	// catchment files carry an interstation table that has no FEWS
	// counterpart.
	SkipInterstationTables []int `yaml:"skip_interstation_tables"`

	// =========================================================================
	// LOOKUP REGISTER (OPTIONAL)
	// =========================================================================

	// LookupRegister is the path to an XLSX workbook overriding the
	// calculation orders and gauge selections. Empty disables the override.
	LookupRegister string `yaml:"lookup_register"`
}

// TimestepConfig carries the per-file-type input timesteps in minutes.
// Every field is required because each one scales a sample count that RORB
// checks against the data it reads.
type TimestepConfig struct {
	RainMinutes       int `yaml:"rain_minutes" validate:"required,gt=0"`
	GateOpsMinutes    int `yaml:"gate_ops_minutes" validate:"required,gt=0"`
	TransferMinutes   int `yaml:"transfer_minutes" validate:"required,gt=0"`
	OperationMinutes  int `yaml:"operation_minutes" validate:"required,gt=0"`
	HydrographMinutes int `yaml:"hydrograph_minutes" validate:"required,gt=0"`
}

// GateOpsMapping ties one dam to its gate-operations template set.
type GateOpsMapping struct {
	// DamID is the reservoir location identifier.
	DamID string `yaml:"dam_id" validate:"required"`

	// StorageLabel names the water-level state parameter for this dam.
	StorageLabel string `yaml:"storage_label" validate:"required"`

	// FilenameOpen is the gate-operations file for open procedures.
	FilenameOpen string `yaml:"filename_open" validate:"required"`

	// FilenameAuto is the gate-operations file for automatic procedures.
	// Automatic procedures fall back to FilenameOpen when this file is
	// absent.
	FilenameAuto string `yaml:"filename_auto"`

	// OverrideFilename is the operation-override file written when FEWS
	// supplies forced outflow and opening series for this dam.
	OverrideFilename string `yaml:"override_filename"`

	// CSVFilename is the per-dam CSV RORB writes, read by the post-adapter.
	CSVFilename string `yaml:"csv_filename" validate:"required"`
}

// TransferMapping ties one transfer series to its RORB input file.
type TransferMapping struct {
	// LocationID is the FEWS location carrying the series.
	LocationID string `yaml:"location_id" validate:"required"`

	// ParameterID is the FEWS parameter of the series (Qtrans, Qgen or
	// Qoutlet).
	ParameterID string `yaml:"parameter_id" validate:"required"`

	// InNode and OutNode are the RORB node labels the transfer moves water
	// between.
	InNode  string `yaml:"in" validate:"required"`
	OutNode string `yaml:"out" validate:"required"`

	// Filename is the RORB input file the series is written to.
	Filename string `yaml:"filename" validate:"required"`
}

// GaugeFlowMapping selects one report hydrograph column for export.
type GaugeFlowMapping struct {
	// HydrographLabel is the report column label, e.g. "Hyd001".
	HydrographLabel string `yaml:"hydrograph_label" validate:"required"`

	// LocationID is the FEWS location identifier the column is exported
	// under, with parameter "(Q.fcst) (m3/s)".
	LocationID string `yaml:"location_id" validate:"required"`
}

// =============================================================================
// LOADING AND VALIDATION
// =============================================================================

// Load reads and validates the adapter configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// applyDefaults fills the optional file names.
func applyDefaults(cfg *Config) {
	if cfg.MultiGateFileName == "" {
		cfg.MultiGateFileName = "multiGateOps.dat"
	}
	if cfg.MatchingFileName == "" {
		cfg.MatchingFileName = "multiRecorded_hydrographs.dat"
	}
}

// Validate checks the structural constraints plus the cross-field rules the
// struct tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return err
	}

	for zone, courses := range cfg.ElezonePriorities {
		if len(courses) == 0 {
			return fmt.Errorf("elezone %s has an empty priority list", zone)
		}
		for _, course := range courses {
			if !contains(cfg.SnowCourseIDs, course) {
				return fmt.Errorf("elezone %s references unknown snow course %q", zone, course)
			}
		}
	}

	for _, g := range cfg.GateOps {
		if !contains(cfg.DamIDs, g.DamID) {
			return fmt.Errorf("gate_ops references unknown dam %q", g.DamID)
		}
	}
	for _, tm := range cfg.Transfers {
		if !contains(cfg.TransferIDs, tm.LocationID) {
			return fmt.Errorf("transfers references unknown station %q", tm.LocationID)
		}
	}
	for id := range cfg.CatgGaugeLabels {
		if !contains(cfg.HydrographCalcOrder, id) {
			return fmt.Errorf("catg_gauge_labels references unknown gauge %q", id)
		}
	}
	seen := make(map[string]bool, len(cfg.GaugeFlows))
	for _, g := range cfg.GaugeFlows {
		if seen[g.HydrographLabel] {
			return fmt.Errorf("gauge_flows selects hydrograph %q twice", g.HydrographLabel)
		}
		seen[g.HydrographLabel] = true
	}
	for _, idx := range cfg.SkipInterstationTables {
		if idx < 1 {
			return fmt.Errorf("skip_interstation_tables entries are 1-based, got %d", idx)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
