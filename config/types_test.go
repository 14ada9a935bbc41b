package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorsNilSafety(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "empty config", config: &Config{}},
		{name: "empty sections", config: &Config{
			Providers: &ProvidersConfig{},
			Scan:      &ScanConfig{},
			Watch:     &WatchConfig{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.config.Claude().On())
			assert.True(t, tt.config.Codex().On())
			assert.Equal(t, "/fallback", tt.config.Claude().HomeDir("/fallback"))
			assert.Nil(t, tt.config.ScanIgnore())
			assert.True(t, tt.config.IncludeLegacy())
			assert.Equal(t, DefaultScanMaxDepth, tt.config.ScanMaxDepth())
			assert.Equal(t, DefaultDebounceMs*time.Millisecond, tt.config.WatchDebounce())
			assert.Equal(t, DefaultPollInterval, tt.config.WatchPollInterval())
		})
	}
}

func TestProviderDisabled(t *testing.T) {
	cfg := &Config{
		Providers: &ProvidersConfig{
			Codex: &ProviderConfig{Enabled: boolPtr(false)},
		},
	}

	assert.False(t, cfg.Codex().On())
	assert.True(t, cfg.Claude().On(), "unconfigured provider stays enabled")
}

func TestWatchPollIntervalParsing(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "empty uses default", value: "", expected: DefaultPollInterval},
		{name: "seconds", value: "45s", expected: 45 * time.Second},
		{name: "minutes", value: "2m", expected: 2 * time.Minute},
		{name: "garbage uses default", value: "soon", expected: DefaultPollInterval},
		{name: "negative uses default", value: "-5s", expected: DefaultPollInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Watch: &WatchConfig{PollInterval: tt.value}}
			assert.Equal(t, tt.expected, cfg.WatchPollInterval())
		})
	}
}

func TestUnmarshalExtension(t *testing.T) {
	type fakeExtension struct {
		Level   string `yaml:"level"`
		Enabled bool   `yaml:"enabled"`
	}

	cfg := &Config{
		Extensions: map[string]interface{}{
			"observer": map[string]interface{}{
				"level":   "debug",
				"enabled": true,
			},
		},
	}

	var ext fakeExtension
	require.NoError(t, cfg.UnmarshalExtension("observer", &ext))
	assert.Equal(t, "debug", ext.Level)
	assert.True(t, ext.Enabled)
}

func TestUnmarshalExtensionMissingKey(t *testing.T) {
	cfg := &Config{}

	var ext struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("nope", &ext))
	assert.Empty(t, ext.Level, "target stays zero-valued when the key is absent")
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	assert.Equal(t, "1", cfg.Version)

	cfg = &Config{Version: "2"}
	cfg.SetDefaults()
	assert.Equal(t, "2", cfg.Version, "existing version survives SetDefaults")
}
