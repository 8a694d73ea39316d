package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ElezonePriorities: map[string][]string{
			"10": {"SC1"},
			"2":  {"SC1"},
			"1":  {"SC2"},
		},
	}
}

func TestGateOpsTemplateName_AutomaticPrefersAutoTemplate(t *testing.T) {
	m := config.GateOpsMapping{
		DamID:        "410571",
		FilenameOpen: "gateOps_open.dat",
		FilenameAuto: "gateOps_auto.dat",
	}

	for _, procedure := range []int{1, 3} {
		name, err := gateOpsTemplateName(m, procedure)
		require.NoError(t, err)
		assert.Equal(t, "gateOps_auto.dat", name)
	}
}

func TestGateOpsTemplateName_AutomaticFallsBackToOpen(t *testing.T) {
	m := config.GateOpsMapping{DamID: "410571", FilenameOpen: "gateOps_open.dat"}

	name, err := gateOpsTemplateName(m, 1)
	require.NoError(t, err)
	assert.Equal(t, "gateOps_open.dat", name)
}

func TestGateOpsTemplateName_ManualUsesOpen(t *testing.T) {
	m := config.GateOpsMapping{
		DamID:        "410571",
		FilenameOpen: "gateOps_open.dat",
		FilenameAuto: "gateOps_auto.dat",
	}

	for _, procedure := range []int{2, 4, 5} {
		name, err := gateOpsTemplateName(m, procedure)
		require.NoError(t, err)
		assert.Equal(t, "gateOps_open.dat", name)
	}
}

func TestGateOpsTemplateName_UnsupportedProcedure(t *testing.T) {
	m := config.GateOpsMapping{DamID: "410571", FilenameOpen: "gateOps_open.dat"}

	_, err := gateOpsTemplateName(m, 6)
	assert.ErrorContains(t, err, "unsupported gate procedure 6")

	_, err = gateOpsTemplateName(m, 0)
	assert.Error(t, err)
}

func TestCatgLabel(t *testing.T) {
	cfg := testConfig()
	cfg.CatgGaugeLabels = map[string]string{"410574": "Goobarragandra"}
	a := NewPreAdapter(cfg, zap.NewNop().Sugar())

	assert.Equal(t, "Goobarragandra", a.catgLabel("410574"))
	assert.Equal(t, "410575", a.catgLabel("410575"))
}

func TestOrderedElezones_NumericOrder(t *testing.T) {
	a := NewPreAdapter(testConfig(), zap.NewNop().Sugar())
	assert.Equal(t, []string{"1", "2", "10"}, a.orderedElezones())
}

func TestTimestampIndex(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := timestampIndex(start, 15*time.Minute, 3)

	require.Len(t, got, 3)
	assert.Equal(t, start, got[0])
	assert.Equal(t, start.Add(15*time.Minute), got[1])
	assert.Equal(t, start.Add(30*time.Minute), got[2])

	assert.Empty(t, timestampIndex(start, time.Hour, 0))
}
