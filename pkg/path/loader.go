package path

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a route definition from a YAML file and validates it.
func Load(file string) (*Route, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("load route: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML route definition.
func Parse(data []byte) (*Route, error) {
	var route Route
	if err := yaml.Unmarshal(data, &route); err != nil {
		return nil, fmt.Errorf("parse route: %w", err)
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return &route, nil
}
