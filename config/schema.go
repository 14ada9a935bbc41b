package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the base JSON Schema for the core taskdeck
// configuration. It reflects the Config struct from types.go but excludes the
// 'Extensions' field, which is handled by schema composition in the generator
// tool.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Do not allow unknown fields here, extension sections are added
		// explicitly during composition.
		AllowAdditionalProperties: false,
		// Expand struct references instead of using $ref for cleaner base schema.
		ExpandedStruct: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	// A temporary struct that omits the Extensions field so it is not
	// included in the base schema.
	type BaseConfig struct {
		Version   string           `yaml:"version" jsonschema:"required,description=Configuration version (e.g. '1')"`
		Providers *ProvidersConfig `yaml:"providers,omitempty" jsonschema:"description=Per-provider settings"`
		Scan      *ScanConfig      `yaml:"scan,omitempty" jsonschema:"description=Directory scan tuning"`
		Watch     *WatchConfig     `yaml:"watch,omitempty" jsonschema:"description=Change watching tuning"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "taskdeck Core Configuration"
	schema.Description = "Base schema for core taskdeck.yml properties."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}
