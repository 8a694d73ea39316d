package compile

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/config"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/fewsxml"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/rorbfmt"
)

func parseXML(t *testing.T, name, content string) *fewsxml.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	doc, err := fewsxml.Parse(path)
	require.NoError(t, err)
	return doc
}

// =============================================================================
// RUN INFO
// =============================================================================

const runInfoMinimal = `<?xml version="1.0"?>
<Run xmlns="http://www.wldelft.nl/fews/PI">
    <startDateTime date="2024-01-01" time="00:00:00"/>
    <endDateTime date="2024-01-03" time="00:00:00"/>
    <time0 date="2024-01-01" time="12:00:00"/>
    <workDir>/fews/work</workDir>
</Run>`

const runInfoWithProperties = `<?xml version="1.0"?>
<Run xmlns="http://www.wldelft.nl/fews/PI">
    <startDateTime date="2024-01-01" time="00:00:00"/>
    <endDateTime date="2024-01-03" time="00:00:00"/>
    <time0 date="2024-01-01" time="12:00:00"/>
    <workDir>/fews/work</workDir>
    <properties>
        <string key="paramsFile" value="custom_params.xml"/>
        <string key="rorbExe" value="RORB_612.exe"/>
        <string key="fromRorbDir" value="/fews/out"/>
        <string key="gaugeFlowFile" value="flows.xml"/>
    </properties>
</Run>`

func TestCompileRunInfo_FallsBackToConventionalNames(t *testing.T) {
	run, err := CompileRunInfo(parseXML(t, "runinfo.xml", runInfoMinimal))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01 00:00:00", run.StartDateTime)
	assert.Equal(t, "2024-01-03 00:00:00", run.EndDateTime)
	assert.Equal(t, "2024-01-01 12:00:00", run.Time0)
	assert.Equal(t, "/fews/work", run.WorkDir)
	assert.Equal(t, "RORB.exe", run.RorbExe)
	assert.Equal(t, filepath.Join("/fews/work", "params.xml"), run.ParamsPath)
	assert.Equal(t, filepath.Join("/fews/work", "state.xml"), run.StatePath)
	assert.Equal(t, filepath.Join("/fews/work", "fromrorb"), run.FromRorbDir)
	assert.Equal(t, filepath.Join("/fews/work", "fromrorb", "gauge_flow.xml"), run.GaugeFlowPath)
}

func TestCompileRunInfo_PropertiesOverrideNames(t *testing.T) {
	run, err := CompileRunInfo(parseXML(t, "runinfo.xml", runInfoWithProperties))
	require.NoError(t, err)

	assert.Equal(t, "RORB_612.exe", run.RorbExe)
	assert.Equal(t, filepath.Join("/fews/work", "custom_params.xml"), run.ParamsPath)
	assert.Equal(t, filepath.Join("/fews/work", "rain.xml"), run.RainPath)
	assert.Equal(t, "/fews/out", run.FromRorbDir)
	assert.Equal(t, filepath.Join("/fews/out", "flows.xml"), run.GaugeFlowPath)
	assert.Equal(t, filepath.Join("/fews/out", "reservoir_operation.xml"), run.ReservoirOperationPath)
}

func TestCompileRunInfo_MissingMetadata(t *testing.T) {
	_, err := CompileRunInfo(parseXML(t, "runinfo.xml",
		`<Run xmlns="http://www.wldelft.nl/fews/PI"><workDir>/w</workDir></Run>`))
	assert.ErrorContains(t, err, `element "startDateTime" not found`)
}

// =============================================================================
// PARAMETERS
// =============================================================================

func paramsDoc(t *testing.T, numISA int) *fewsxml.Document {
	return parseXML(t, "params.xml", `<?xml version="1.0"?>
<parameters xmlns="http://www.wldelft.nl/fews/PI">
    <group id="RORB_Routing">
        <parameter id="isa_id"><stringValue>ISA1</stringValue></parameter>
        <parameter id="Kc"><dblValue>48.5</dblValue></parameter>
        <parameter id="m"><dblValue>0.8</dblValue></parameter>
    </group>
    <group id="RORB_Loss">
        <parameter id="isa_id"><stringValue>ISA1</stringValue></parameter>
        <parameter id="IL"><dblValue>25.0</dblValue></parameter>
        <parameter id="CL"><dblValue>2.5</dblValue></parameter>
    </group>
    <group id="RORB_Baseflow">
        <parameter id="baseflow_id"><stringValue>410571</stringValue></parameter>
        <parameter id="bf_const"><dblValue>10.0</dblValue></parameter>
        <parameter id="bf_multi"><dblValue>0.98</dblValue></parameter>
        <parameter id="bf_start_hours"><dblValue>6.0</dblValue></parameter>
    </group>
    <group id="RORB_Gates">
        <parameter id="dam_id"><stringValue>410571</stringValue></parameter>
        <parameter id="gate_procedure"><intValue>3</intValue></parameter>
    </group>
    <group id="RORB_General">
        <parameter id="num_burst"><intValue>1</intValue></parameter>
        <parameter id="num_isa"><intValue>`+strconv.Itoa(numISA)+`</intValue></parameter>
        <parameter id="snow_switch"><intValue>1</intValue></parameter>
    </group>
</parameters>`)
}

func paramsConfig() *config.Config {
	return &config.Config{
		ISAIDs:      []string{"ISA1"},
		BaseflowIDs: []string{"410571"},
		DamIDs:      []string{"410571"},
	}
}

func TestCompileParams(t *testing.T) {
	p, err := CompileParams(paramsDoc(t, 1), paramsConfig())
	require.NoError(t, err)

	require.Len(t, p.ISA, 1)
	assert.Equal(t, ISAParams{ID: "ISA1", Kc: 48.5, M: 0.8, IL: 25, CL: 2.5}, p.ISA[0])

	require.Len(t, p.Baseflow, 1)
	assert.Equal(t, BaseflowParams{ID: "410571", Constant: 10, Multiplier: 0.98, StartHours: 6}, p.Baseflow[0])

	assert.Equal(t, 3, p.GateProcedure["410571"])
	assert.Equal(t, 1, p.NumBursts)
	assert.Equal(t, 1, p.NumISA)
	assert.True(t, p.SnowEnabled)
}

func TestCompileParams_ISACountMismatch(t *testing.T) {
	_, err := CompileParams(paramsDoc(t, 4), paramsConfig())
	assert.ErrorContains(t, err, "parameters declare 4 interstation areas, config lists 1")
}

func TestCompileParams_UnknownISA(t *testing.T) {
	cfg := paramsConfig()
	cfg.ISAIDs = []string{"ISA9"}
	_, err := CompileParams(paramsDoc(t, 1), cfg)
	assert.ErrorContains(t, err, "parameters for ISA ISA9")
}

// =============================================================================
// STATE
// =============================================================================

const stateXML = `<?xml version="1.0"?>
<TimeSeries xmlns="http://www.wldelft.nl/fews/PI">
    <series>
        <header>
            <locationId>410571</locationId>
            <parameterId>H.obs</parameterId>
            <missVal>-999.0</missVal>
        </header>
        <event date="2024-01-01" time="00:00:00" value="543.2"/>
    </series>
    <series>
        <header>
            <locationId>SC1</locationId>
            <parameterId>SD.obs</parameterId>
            <missVal>-999.0</missVal>
        </header>
        <event date="2024-01-01" time="00:00:00" value="500"/>
    </series>
    <series>
        <header>
            <locationId>SC1</locationId>
            <parameterId>WD.obs</parameterId>
            <missVal>-999.0</missVal>
        </header>
        <event date="2024-01-01" time="00:00:00" value="-999.0"/>
    </series>
</TimeSeries>`

func TestCompileState(t *testing.T) {
	cfg := &config.Config{DamIDs: []string{"410571"}, SnowCourseIDs: []string{"SC1", "SC2"}}
	s, err := CompileState(parseXML(t, "state.xml", stateXML), cfg)
	require.NoError(t, err)

	assert.Equal(t, 543.2, s.DamLevels["410571"])

	sc1 := s.SnowCourses["SC1"]
	assert.Equal(t, 500.0, sc1.SnowDepth)
	assert.True(t, rorbfmt.IsMissing(sc1.WaterContent))

	// SC2 has no series at all; both observations stay missing.
	sc2 := s.SnowCourses["SC2"]
	assert.True(t, rorbfmt.IsMissing(sc2.SnowDepth))
	assert.True(t, rorbfmt.IsMissing(sc2.WaterContent))
}

func TestCompileState_MissingDamLevelIsFatal(t *testing.T) {
	doc := parseXML(t, "state.xml", `<?xml version="1.0"?>
<TimeSeries xmlns="http://www.wldelft.nl/fews/PI">
    <series>
        <header>
            <locationId>410571</locationId>
            <parameterId>H.obs</parameterId>
            <missVal>-999.0</missVal>
        </header>
        <event date="2024-01-01" time="00:00:00" value="-999.0"/>
    </series>
</TimeSeries>`)

	cfg := &config.Config{DamIDs: []string{"410571"}}
	_, err := CompileState(doc, cfg)
	assert.ErrorContains(t, err, "water level is missing")
}

func TestSnowCourseDensity(t *testing.T) {
	assert.InDelta(t, 2.5, SnowCourse{SnowDepth: 500, WaterContent: 200}.Density(), 1e-9)
	assert.Zero(t, SnowCourse{SnowDepth: math.NaN(), WaterContent: 200}.Density())
	assert.Zero(t, SnowCourse{SnowDepth: 500, WaterContent: math.NaN()}.Density())
	assert.Zero(t, SnowCourse{SnowDepth: 500, WaterContent: 0}.Density())
}

// =============================================================================
// SERIES
// =============================================================================

func seriesDoc(t *testing.T, body string) *fewsxml.Document {
	return parseXML(t, "series.xml", `<?xml version="1.0"?>
<TimeSeries xmlns="http://www.wldelft.nl/fews/PI">`+body+`</TimeSeries>`)
}

func seriesBlock(location, parameter string, values ...string) string {
	s := `<series><header><locationId>` + location + `</locationId><parameterId>` +
		parameter + `</parameterId><missVal>-999.0</missVal></header>`
	for _, v := range values {
		s += `<event date="2024-01-01" time="00:00:00" value="` + v + `"/>`
	}
	return s + `</series>`
}

func TestCompileRain_TotalsPerSubarea(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("SA1", "P.fcst", "1.5", "-999.0", "2.5")+
			seriesBlock("SA2", "P.fcst", "0", "0", "0"))
	cfg := &config.Config{SubareaCalcOrder: []string{"SA1", "SA2"}}

	rain, err := CompileRain(doc, cfg)
	require.NoError(t, err)

	require.Len(t, rain.Subareas.Stations, 2)
	assert.Equal(t, []float64{1.5, 0, 2.5}, rain.Subareas.Stations[0].Values)
	assert.Equal(t, 3, rain.Subareas.Length)
	assert.Equal(t, []float64{4, 0}, rain.Totals)
}

func TestCompileRain_LengthMismatch(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("SA1", "P.fcst", "1", "2")+
			seriesBlock("SA2", "P.fcst", "1"))
	cfg := &config.Config{SubareaCalcOrder: []string{"SA1", "SA2"}}

	_, err := CompileRain(doc, cfg)
	assert.ErrorContains(t, err, "has 1 samples, expected 2")
}

func TestCompileMeteo(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("M1", "T.fcst", "1.5", "2.0")+
			seriesBlock("M1", "U.fcst", "10", "12"))
	cfg := &config.Config{MeteoIDs: []string{"M1"}}

	m, err := CompileMeteo(doc, cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, m.Temperature)
	assert.Equal(t, []float64{10, 12}, m.WindSpeed)
}

func TestCompileMeteo_NoStationsConfigured(t *testing.T) {
	_, err := CompileMeteo(seriesDoc(t, ""), &config.Config{})
	assert.ErrorContains(t, err, "no meteo stations configured")
}

func TestCompileMeteo_LengthMismatch(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("M1", "T.fcst", "1.5")+
			seriesBlock("M1", "U.fcst", "10", "12"))
	cfg := &config.Config{MeteoIDs: []string{"M1"}}

	_, err := CompileMeteo(doc, cfg)
	assert.ErrorContains(t, err, "meteo series lengths differ")
}

func TestCompileTransfers(t *testing.T) {
	doc := seriesDoc(t, seriesBlock("T1", "Qtrans", "100", "-999.0"))
	cfg := &config.Config{Transfers: []config.TransferMapping{
		{LocationID: "T1", ParameterID: "Qtrans", InNode: "15", OutNode: "22", Filename: "transfer_T1.dat"},
	}}

	transfers, err := CompileTransfers(doc, cfg)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, []float64{100, 0}, transfers[0].Values)
	assert.Equal(t, "transfer_T1.dat", transfers[0].Mapping.Filename)
}

func TestCompileOperations_SkipsDamsAbsentFromExport(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("410571", "Qo.fcst", "12.5", "13.0")+
			seriesBlock("410571", "G.fcst", "0.5", "0.6"))
	cfg := &config.Config{DamIDs: []string{"410571", "412345"}}

	ops, err := CompileOperations(doc, cfg)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "410571", ops[0].DamID)
	assert.Equal(t, []float64{12.5, 13}, ops[0].Outflow)
	assert.Equal(t, []float64{0.5, 0.6}, ops[0].Opening)
}

func TestCompileOperations_LengthMismatch(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("410571", "Qo.fcst", "12.5")+
			seriesBlock("410571", "G.fcst", "0.5", "0.6"))
	cfg := &config.Config{DamIDs: []string{"410571"}}

	_, err := CompileOperations(doc, cfg)
	assert.ErrorContains(t, err, "operation series lengths differ for dam 410571")
}

func TestCompileHydrographs(t *testing.T) {
	doc := seriesDoc(t,
		seriesBlock("G1", "Q.obs", "5.5", "-999.0")+
			seriesBlock("G2", "Q.obs", "1.0", "2.0"))
	cfg := &config.Config{HydrographCalcOrder: []string{"G1", "G2"}}

	set, err := CompileHydrographs(doc, cfg)
	require.NoError(t, err)
	require.Len(t, set.Stations, 2)
	assert.Equal(t, []float64{5.5, 0}, set.Stations[0].Values)
	assert.Equal(t, 2, set.Length)
}
