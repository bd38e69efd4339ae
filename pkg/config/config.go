// Package config loads runtime configuration and mission profiles. Every
// presentation-tuned duration (tick interval, phase pacing, buffer cadence,
// sync rate, freeze length) is injectable here rather than hard-coded in
// the engine: the "right" values are a product choice, not an invariant.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
)

// EngineVersion is the orchestration engine's own semantic version, checked
// against a profile's engine constraint at load time.
const EngineVersion = "1.2.0"

// Config holds process-level settings loaded from environment variables.
type Config struct {
	Port        string
	LogLevel    string
	ProfilePath string
	RoutePath   string
	OTelEnabled bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("VIGIL_PORT")
	if port == "" {
		port = "8085"
	}

	logLevel := os.Getenv("VIGIL_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		Port:        port,
		LogLevel:    logLevel,
		ProfilePath: os.Getenv("VIGIL_PROFILE"),
		RoutePath:   os.Getenv("VIGIL_ROUTE"),
		OTelEnabled: os.Getenv("VIGIL_OTEL") == "true",
	}
}

// Profile is one mission's pacing and scenario selection. All durations are
// in milliseconds in the file for readability.
type Profile struct {
	Name             string         `yaml:"name" json:"name"`
	Scenario         string         `yaml:"scenario" json:"scenario"`
	EngineConstraint string         `yaml:"engine_constraint,omitempty" json:"engine_constraint,omitempty"`
	TickIntervalMs   int            `yaml:"tick_interval_ms" json:"tick_interval_ms"`
	FreezeMs         int            `yaml:"freeze_ms" json:"freeze_ms"`
	BufferCadenceMs  int            `yaml:"buffer_cadence_ms" json:"buffer_cadence_ms"`
	SyncRateMs       int            `yaml:"sync_rate_ms" json:"sync_rate_ms"`
	ReceiptCap       int            `yaml:"receipt_cap" json:"receipt_cap"`
	HumanDelayMs     int            `yaml:"human_delay_ms" json:"human_delay_ms"`
	Autoplay         bool           `yaml:"autoplay" json:"autoplay"`
	PhaseDurationsMs map[string]int `yaml:"phase_durations_ms,omitempty" json:"phase_durations_ms,omitempty"`
}

// DefaultProfile returns the narrative pacing used when no profile file is
// supplied.
func DefaultProfile() *Profile {
	return &Profile{
		Name:            "default",
		Scenario:        "standard",
		TickIntervalMs:  100,
		FreezeMs:        1500,
		BufferCadenceMs: 500,
		SyncRateMs:      300,
		ReceiptCap:      64,
		HumanDelayMs:    2500,
		Autoplay:        true,
	}
}

// Durations exposed as time.Duration for the engine.

func (p *Profile) TickInterval() time.Duration  { return time.Duration(p.TickIntervalMs) * time.Millisecond }
func (p *Profile) Freeze() time.Duration        { return time.Duration(p.FreezeMs) * time.Millisecond }
func (p *Profile) BufferCadence() time.Duration { return time.Duration(p.BufferCadenceMs) * time.Millisecond }
func (p *Profile) SyncRate() time.Duration      { return time.Duration(p.SyncRateMs) * time.Millisecond }
func (p *Profile) HumanDelay() time.Duration    { return time.Duration(p.HumanDelayMs) * time.Millisecond }

// PhaseDuration returns the override for a phase ID, or ok=false when the
// catalog default should stand.
func (p *Profile) PhaseDuration(id string) (time.Duration, bool) {
	ms, ok := p.PhaseDurationsMs[id]
	if !ok {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// CheckEngineConstraint verifies the profile's engine version range against
// the running engine. An empty constraint accepts any engine.
func (p *Profile) CheckEngineConstraint() error {
	if p.EngineConstraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(p.EngineConstraint)
	if err != nil {
		return fmt.Errorf("profile %q: bad engine constraint: %w", p.Name, err)
	}
	v := semver.MustParse(EngineVersion)
	if !c.Check(v) {
		return fmt.Errorf("profile %q requires engine %q, running %s", p.Name, p.EngineConstraint, EngineVersion)
	}
	return nil
}

// envInt is a small helper for integer overrides used in tests and ops.
func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

// ApplyEnvOverrides layers VIGIL_* pacing overrides on top of a profile.
func (p *Profile) ApplyEnvOverrides() {
	p.TickIntervalMs = envInt("VIGIL_TICK_INTERVAL_MS", p.TickIntervalMs)
	p.FreezeMs = envInt("VIGIL_FREEZE_MS", p.FreezeMs)
	p.BufferCadenceMs = envInt("VIGIL_BUFFER_CADENCE_MS", p.BufferCadenceMs)
	p.SyncRateMs = envInt("VIGIL_SYNC_RATE_MS", p.SyncRateMs)
	p.ReceiptCap = envInt("VIGIL_RECEIPT_CAP", p.ReceiptCap)
	if v := os.Getenv("VIGIL_AUTOPLAY"); v != "" {
		p.Autoplay = v == "true"
	}
	if v := os.Getenv("VIGIL_SCENARIO"); v != "" {
		p.Scenario = v
	}
}
