package config

import (
	"encoding/json"
	"fmt"

	"github.com/aymanbagabas/go-udiff"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// JSONSchema returns the JSON Schema describing the configuration file.
func JSONSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(Config{}, jsonschema.InlineRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect config schema: %w", err)
	}
	schema.WithTitle("agent007 configuration")

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

// Diff returns a unified diff from the built-in defaults to config, or an
// empty string when they match.
func Diff(config *Config) (string, error) {
	before, err := Marshal(DefaultConfig(), ".json")
	if err != nil {
		return "", err
	}
	after, err := Marshal(config, ".json")
	if err != nil {
		return "", err
	}
	return udiff.Unified("defaults", "effective", string(before), string(after)), nil
}
