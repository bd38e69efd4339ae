package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, "standard", p.Scenario)
	assert.True(t, p.Autoplay)
	assert.Equal(t, 100*time.Millisecond, p.TickInterval())
	assert.Equal(t, 1500*time.Millisecond, p.Freeze())
	assert.Equal(t, 500*time.Millisecond, p.BufferCadence())
	assert.Equal(t, 300*time.Millisecond, p.SyncRate())
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]byte(`
name: regulator-walkthrough
scenario: denied-environment
tick_interval_ms: 50
freeze_ms: 800
phase_durations_ms:
  OFFLINE: 8000
  BURST_SYNC: 6000
`))
	require.NoError(t, err)
	assert.Equal(t, "regulator-walkthrough", p.Name)
	assert.Equal(t, "denied-environment", p.Scenario)
	assert.Equal(t, 50*time.Millisecond, p.TickInterval())

	d, ok := p.PhaseDuration("OFFLINE")
	require.True(t, ok)
	assert.Equal(t, 8*time.Second, d)

	_, ok = p.PhaseDuration("TAKEOFF")
	assert.False(t, ok)

	// Unset pacing fields keep defaults.
	assert.Equal(t, 300*time.Millisecond, p.SyncRate())
}

func TestParseProfileRejectsUnknownScenario(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nscenario: freeform\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestParseProfileRejectsUnknownKeys(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nscenario: standard\nwarp_speed: 9\n"))
	assert.Error(t, err)
}

func TestParseProfileRejectsOutOfRange(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nscenario: standard\ntick_interval_ms: 0\n"))
	assert.Error(t, err)
}

func TestEngineConstraint(t *testing.T) {
	ok := &Profile{Name: "ok", EngineConstraint: ">= 1.0.0, < 2.0.0"}
	assert.NoError(t, ok.CheckEngineConstraint())

	tooNew := &Profile{Name: "too-new", EngineConstraint: ">= 9.0.0"}
	assert.Error(t, tooNew.CheckEngineConstraint())

	bad := &Profile{Name: "bad", EngineConstraint: "not-a-range"}
	assert.Error(t, bad.CheckEngineConstraint())

	empty := &Profile{Name: "empty"}
	assert.NoError(t, empty.CheckEngineConstraint())
}

func TestParseProfileChecksConstraint(t *testing.T) {
	_, err := ParseProfile([]byte("name: x\nscenario: standard\nengine_constraint: '>= 99.0.0'\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIGIL_TICK_INTERVAL_MS", "25")
	t.Setenv("VIGIL_AUTOPLAY", "false")
	t.Setenv("VIGIL_SCENARIO", "denied-environment")

	p := DefaultProfile()
	p.ApplyEnvOverrides()
	assert.Equal(t, 25, p.TickIntervalMs)
	assert.False(t, p.Autoplay)
	assert.Equal(t, "denied-environment", p.Scenario)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIGIL_PORT", "9999")
	t.Setenv("VIGIL_LOG_LEVEL", "DEBUG")
	cfg := Load()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}
