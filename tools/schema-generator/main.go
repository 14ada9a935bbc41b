package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/taskdeck/core/config"
	"github.com/taskdeck/core/logging"
)

// Generates schema/taskdeck.embedded.schema.json: the base config schema with
// the in-repo extension sections composed in as additional properties.
func main() {
	baseBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating base schema: %v", err)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(baseBytes, &schema); err != nil {
		log.Fatalf("Error parsing base schema: %v", err)
	}

	if _, ok := schema["properties"]; !ok {
		schema["properties"] = make(map[string]interface{})
	}
	properties := schema["properties"].(map[string]interface{})

	loggingSchema, err := reflectLoggingSchema()
	if err != nil {
		log.Fatalf("Error generating logging schema: %v", err)
	}
	properties["logging"] = loggingSchema

	// Extension sections beyond the known ones are free-form.
	schema["additionalProperties"] = true

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	data = append(data, '\n')

	outputPath := filepath.Join("schema", "taskdeck.embedded.schema.json")
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated embedded schema at %s", outputPath)
}

// reflectLoggingSchema produces a self-contained schema object for the
// 'logging' extension section. All fields are optional; the section exists
// for editor support, not gatekeeping.
func reflectLoggingSchema() (map[string]interface{}, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&logging.Config{})
	schema.Title = "taskdeck Logging Configuration"
	schema.Description = "Schema for the 'logging' extension in taskdeck.yml."

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")
	stripRequired(m)
	return m, nil
}

func stripRequired(node map[string]interface{}) {
	delete(node, "required")
	for _, value := range node {
		if child, ok := value.(map[string]interface{}); ok {
			stripRequired(child)
		}
	}
}
