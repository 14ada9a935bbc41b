package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// Default tuning values applied when taskdeck.yml leaves a knob unset.
const (
	DefaultDebounceMs   = 250
	DefaultPollInterval = 30 * time.Second
	DefaultScanMaxDepth = 1
)

// ProviderConfig configures one assistant-tool provider.
type ProviderConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled,omitempty" jsonschema:"description=Whether this provider is scanned (default: true)"`
	Home    string `yaml:"home,omitempty" json:"home,omitempty" toml:"home,omitempty" jsonschema:"description=Provider home directory; empty means the provider's own default"`
}

// On reports whether the provider should be scanned. A missing block or a
// missing enabled key counts as enabled.
func (p *ProviderConfig) On() bool {
	if p == nil || p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// HomeDir returns the configured home directory, or fallback when unset.
func (p *ProviderConfig) HomeDir(fallback string) string {
	if p == nil || p.Home == "" {
		return fallback
	}
	return p.Home
}

// ProvidersConfig groups the per-provider blocks.
type ProvidersConfig struct {
	Claude *ProviderConfig `yaml:"claude,omitempty" json:"claude,omitempty" toml:"claude,omitempty" jsonschema:"description=Claude-style provider settings"`
	Codex  *ProviderConfig `yaml:"codex,omitempty" json:"codex,omitempty" toml:"codex,omitempty" jsonschema:"description=Codex-style provider settings"`
}

// ScanConfig tunes the provider directory scans.
type ScanConfig struct {
	Ignore        []string `yaml:"ignore,omitempty" json:"ignore,omitempty" toml:"ignore,omitempty" jsonschema:"description=Docker-style glob patterns; matching directory and file names are skipped"`
	IncludeLegacy *bool    `yaml:"include_legacy,omitempty" json:"include_legacy,omitempty" toml:"include_legacy,omitempty" jsonschema:"description=Parse legacy .session_<id>.json files (default: true)"`
	MaxDepth      int      `yaml:"max_depth,omitempty" json:"max_depth,omitempty" toml:"max_depth,omitempty" jsonschema:"description=How many directory levels below a project directory session files are picked up from (default: 1)"`
}

// WatchConfig tunes filesystem change watching.
type WatchConfig struct {
	DebounceMs   int    `yaml:"debounce_ms,omitempty" json:"debounce_ms,omitempty" toml:"debounce_ms,omitempty" jsonschema:"description=Debounce window for rapid filesystem events in milliseconds (default: 250)"`
	PollInterval string `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty" toml:"poll_interval,omitempty" jsonschema:"description=Fallback poll interval when fsnotify is unavailable (default: 30s)"`
}

// Config represents the taskdeck.yml configuration.
type Config struct {
	Version   string           `yaml:"version" json:"version" toml:"version" jsonschema:"required,description=Configuration version (e.g. '1')"`
	Providers *ProvidersConfig `yaml:"providers,omitempty" json:"providers,omitempty" toml:"providers,omitempty" jsonschema:"description=Per-provider settings"`
	Scan      *ScanConfig      `yaml:"scan,omitempty" json:"scan,omitempty" toml:"scan,omitempty" jsonschema:"description=Directory scan tuning"`
	Watch     *WatchConfig     `yaml:"watch,omitempty" json:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=Change watching tuning"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" json:"-" toml:"-" jsonschema:"-"`
}

// SetDefaults sets default values for configuration.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
}

// Claude returns the Claude provider block, which may be nil.
func (c *Config) Claude() *ProviderConfig {
	if c == nil || c.Providers == nil {
		return nil
	}
	return c.Providers.Claude
}

// Codex returns the Codex provider block, which may be nil.
func (c *Config) Codex() *ProviderConfig {
	if c == nil || c.Providers == nil {
		return nil
	}
	return c.Providers.Codex
}

// ScanIgnore returns the configured ignore patterns.
func (c *Config) ScanIgnore() []string {
	if c == nil || c.Scan == nil {
		return nil
	}
	return c.Scan.Ignore
}

// IncludeLegacy reports whether legacy .session_<id>.json files are parsed.
func (c *Config) IncludeLegacy() bool {
	if c == nil || c.Scan == nil || c.Scan.IncludeLegacy == nil {
		return true
	}
	return *c.Scan.IncludeLegacy
}

// ScanMaxDepth returns how many directory levels below a project directory
// the session-file walk descends into.
func (c *Config) ScanMaxDepth() int {
	if c == nil || c.Scan == nil || c.Scan.MaxDepth <= 0 {
		return DefaultScanMaxDepth
	}
	return c.Scan.MaxDepth
}

// WatchDebounce returns the debounce window for filesystem events.
func (c *Config) WatchDebounce() time.Duration {
	if c == nil || c.Watch == nil || c.Watch.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// WatchPollInterval returns the fallback poll interval. Unparsable values
// fall back to the default; Validate reports them.
func (c *Config) WatchPollInterval() time.Duration {
	if c == nil || c.Watch == nil || c.Watch.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded taskdeck.yml into the provided target struct. The target must be a
// pointer. This provides a type-safe way for extensions to access their
// custom configuration sections.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	// Use mapstructure to decode the generic map[string]interface{}
	// into the strongly-typed target struct. We configure it to use
	// `yaml` tags for consistency.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ConfigSource identifies the origin of a configuration value.
type ConfigSource string

const (
	SourceDefault        ConfigSource = "default"
	SourceGlobal         ConfigSource = "global"
	SourceGlobalFragment ConfigSource = "global-fragment"
	SourceProject        ConfigSource = "project"
	SourceOverride       ConfigSource = "override"
)

// OverrideSource holds a raw configuration from an override or fragment file
// and the path it came from.
type OverrideSource struct {
	Path   string
	Config *Config
}

// LayeredConfig holds the raw configuration from each source file, as well
// as the final merged configuration, for analysis purposes.
type LayeredConfig struct {
	Default         *Config          // Config with only default values applied.
	Global          *Config          // Raw config from the global file.
	GlobalFragments []OverrideSource // Raw configs from ~/.config/taskdeck/conf.d/*.toml files.
	Project         *Config          // Raw config from the project file.
	Overrides       []OverrideSource // Raw configs from override files, in order of application.
	Final           *Config          // The fully merged and validated config.
	FilePaths       map[ConfigSource]string
}
