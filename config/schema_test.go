package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("generated schema is not valid JSON: %v", err)
	}

	if schema["$schema"] != "http://json-schema.org/draft-07/schema#" {
		t.Errorf("expected JSON Schema draft-07, got %v", schema["$schema"])
	}
	if schema["type"] != "object" {
		t.Errorf("expected root type object, got %v", schema["type"])
	}

	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("expected properties to be defined")
	}
	for _, name := range []string{"version", "providers", "scan", "watch"} {
		if _, ok := props[name]; !ok {
			t.Errorf("expected %q property", name)
		}
	}

	required, ok := schema["required"].([]interface{})
	if !ok || len(required) == 0 {
		t.Fatal("expected required fields")
	}
	foundVersion := false
	for _, req := range required {
		if req == "version" {
			foundVersion = true
			break
		}
	}
	if !foundVersion {
		t.Error("expected 'version' to be required")
	}

	// The Extensions field must not leak into the base schema.
	if _, ok := props["extensions"]; ok {
		t.Error("extensions must not appear in the base schema")
	}
}
