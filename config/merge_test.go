package config

import (
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestMergeConfigsOverrideWins(t *testing.T) {
	base := &Config{
		Version: "1",
		Providers: &ProvidersConfig{
			Claude: &ProviderConfig{Home: "/base/claude"},
			Codex:  &ProviderConfig{Enabled: boolPtr(true)},
		},
		Watch: &WatchConfig{DebounceMs: 100, PollInterval: "10s"},
	}
	override := &Config{
		Providers: &ProvidersConfig{
			Claude: &ProviderConfig{Home: "/override/claude"},
		},
		Watch: &WatchConfig{DebounceMs: 250},
	}

	merged := mergeConfigs(base, override)

	if got := merged.Claude().HomeDir(""); got != "/override/claude" {
		t.Errorf("claude home = %q, want override value", got)
	}
	if !merged.Codex().On() {
		t.Error("codex enabled flag from base should survive")
	}
	if merged.Watch.DebounceMs != 250 {
		t.Errorf("debounce = %d, want 250", merged.Watch.DebounceMs)
	}
	if merged.Watch.PollInterval != "10s" {
		t.Errorf("poll interval = %q, base value should survive", merged.Watch.PollInterval)
	}
}

func TestMergeConfigsDoesNotMutateInputs(t *testing.T) {
	base := &Config{
		Watch: &WatchConfig{DebounceMs: 100},
	}
	override := &Config{
		Watch: &WatchConfig{DebounceMs: 900},
	}

	_ = mergeConfigs(base, override)

	if base.Watch.DebounceMs != 100 {
		t.Errorf("base mutated: debounce = %d", base.Watch.DebounceMs)
	}
	if override.Watch.DebounceMs != 900 {
		t.Errorf("override mutated: debounce = %d", override.Watch.DebounceMs)
	}
}

func TestMergeConfigsNilLayers(t *testing.T) {
	cfg := &Config{Version: "1"}

	if got := mergeConfigs(nil, cfg); got != cfg {
		t.Error("nil base should return override as-is")
	}
	if got := mergeConfigs(cfg, nil); got != cfg {
		t.Error("nil override should return base as-is")
	}
}

func TestMergeScanIgnoreReplacedWhole(t *testing.T) {
	base := &Config{
		Scan: &ScanConfig{Ignore: []string{"*.bak", "*.tmp"}},
	}
	override := &Config{
		Scan: &ScanConfig{Ignore: []string{"node_modules"}},
	}

	merged := mergeConfigs(base, override)

	got := merged.ScanIgnore()
	if len(got) != 1 || got[0] != "node_modules" {
		t.Errorf("ignore = %v, want override list to replace base list", got)
	}
}

func TestMergeExtensionsDeep(t *testing.T) {
	base := &Config{
		Extensions: map[string]interface{}{
			"logging": map[string]interface{}{
				"level": "info",
				"format": map[string]interface{}{
					"preset": "dev",
				},
			},
		},
	}
	override := &Config{
		Extensions: map[string]interface{}{
			"logging": map[string]interface{}{
				"level": "debug",
			},
		},
	}

	merged := mergeConfigs(base, override)

	logging, ok := merged.Extensions["logging"].(map[string]interface{})
	if !ok {
		t.Fatal("logging extension missing after merge")
	}
	if logging["level"] != "debug" {
		t.Errorf("level = %v, want debug", logging["level"])
	}
	format, ok := logging["format"].(map[string]interface{})
	if !ok || format["preset"] != "dev" {
		t.Errorf("nested format settings should survive a partial override, got %v", logging["format"])
	}
}
