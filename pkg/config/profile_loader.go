package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// profileSchema is the embedded JSON Schema every mission profile must
// satisfy before it reaches the engine.
const profileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "scenario"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "scenario": {"type": "string", "enum": ["standard", "denied-environment"]},
    "engine_constraint": {"type": "string"},
    "tick_interval_ms": {"type": "integer", "minimum": 1, "maximum": 5000},
    "freeze_ms": {"type": "integer", "minimum": 0},
    "buffer_cadence_ms": {"type": "integer", "minimum": 1},
    "sync_rate_ms": {"type": "integer", "minimum": 0},
    "receipt_cap": {"type": "integer", "minimum": 1, "maximum": 10000},
    "human_delay_ms": {"type": "integer", "minimum": 0},
    "autoplay": {"type": "boolean"},
    "phase_durations_ms": {
      "type": "object",
      "additionalProperties": {"type": "integer", "minimum": 0}
    }
  },
  "additionalProperties": false
}`

var compiledProfileSchema = jsonschema.MustCompileString("profile.schema.json", profileSchema)

// LoadProfile reads, validates and defaults a mission profile YAML file.
func LoadProfile(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile, validates it against the embedded
// schema, fills unset pacing fields from the defaults and checks the engine
// version constraint.
func ParseProfile(data []byte) (*Profile, error) {
	// Schema validation runs over the generic decoding so unknown keys and
	// out-of-range values are reported with schema paths.
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := validateProfile(generic); err != nil {
		return nil, err
	}

	profile := DefaultProfile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	if err := profile.CheckEngineConstraint(); err != nil {
		return nil, err
	}
	return profile, nil
}

func validateProfile(generic map[string]any) error {
	// jsonschema validates JSON-shaped values; round-trip through JSON to
	// normalize YAML's integer/float types.
	raw, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("profile not JSON-representable: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := compiledProfileSchema.Validate(v); err != nil {
		return fmt.Errorf("profile schema violation: %w", err)
	}
	return nil
}
