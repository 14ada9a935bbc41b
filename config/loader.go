package config

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/taskdeck/core/errors"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are the project-level file names, searched upward from the
// starting directory.
var configNames = []string{
	"taskdeck.yml",
	"taskdeck.yaml",
	".taskdeck.yml",
	".taskdeck.yaml",
}

// overrideNames are merged over the project file when they sit next to it.
var overrideNames = []string{
	"taskdeck.override.yml",
	"taskdeck.override.yaml",
	".taskdeck.override.yml",
	".taskdeck.override.yaml",
}

// fragmentsDirName holds modular TOML fragments under the global config dir.
const fragmentsDirName = "conf.d"

// Load reads and parses a single taskdeck configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data)
}

// LoadDefault finds and loads the configuration with hierarchical merging
// starting from the current working directory. taskdeck runs fine without
// any config file; missing layers simply contribute nothing.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the
// given directory:
//  1. Global config (~/.config/taskdeck/taskdeck.yml) - base layer
//  2. Global TOML fragments (~/.config/taskdeck/conf.d/*.toml, lexical order)
//  3. Project config (taskdeck.yml, searched upward) - overrides global
//  4. Local overrides (taskdeck.override.yml next to the project file)
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger loads configuration with hierarchical merging and logging.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	finalConfig := loadGlobalLayer(logger)

	// Project config is optional: taskdeck observes provider homes even with
	// zero configuration of its own.
	projectPath, err := FindConfigFile(startDir)
	if err == nil {
		logger.WithField("path", projectPath).Debug("Loading project configuration")

		projectConfig, err := loadYAMLFile(projectPath)
		if err != nil {
			return nil, err
		}
		if finalConfig == nil {
			finalConfig = projectConfig
		} else {
			finalConfig = mergeConfigs(finalConfig, projectConfig)
		}

		// Merge override files sitting next to the project file.
		projectDir := filepath.Dir(projectPath)
		for _, name := range overrideNames {
			overridePath := filepath.Join(projectDir, name)
			if _, err := os.Stat(overridePath); err != nil {
				continue
			}
			logger.WithField("path", overridePath).Debug("Loading local override configuration")

			overrideConfig, err := loadYAMLFile(overridePath)
			if err != nil {
				logger.WithError(err).Warn("Failed to parse override file, skipping")
				continue
			}
			finalConfig = mergeConfigs(finalConfig, overrideConfig)
		}
	}

	if finalConfig == nil {
		finalConfig = &Config{}
	}

	return finalize(finalConfig)
}

// LoadFromBytes parses configuration from a byte array.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	return finalize(&config)
}

// finalize applies defaults and validates the merged configuration.
func finalize(config *Config) (*Config, error) {
	config.SetDefaults()

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadGlobalLayer reads the global config file plus its conf.d TOML
// fragments. Parse failures in the global layer are warned about and
// skipped; they never abort a load.
func loadGlobalLayer(logger *logrus.Logger) *Config {
	globalPath := getXDGConfigPath()
	if globalPath == "" {
		return nil
	}

	var base *Config
	if _, err := os.Stat(globalPath); err == nil {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		cfg, err := loadYAMLFile(globalPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to parse global configuration, continuing without it")
		} else {
			base = cfg
		}
	}

	fragDir := filepath.Join(filepath.Dir(globalPath), fragmentsDirName)
	entries, err := os.ReadDir(fragDir)
	if err != nil {
		return base
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		fragPath := filepath.Join(fragDir, name)
		logger.WithField("path", fragPath).Debug("Loading global configuration fragment")

		data, err := os.ReadFile(fragPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to read configuration fragment, skipping")
			continue
		}

		var frag Config
		if err := toml.Unmarshal([]byte(expandEnvVars(string(data))), &frag); err != nil {
			logger.WithError(err).Warn("Failed to parse configuration fragment, skipping")
			continue
		}

		if base == nil {
			cp := frag
			base = &cp
		} else {
			base = mergeConfigs(base, &frag)
		}
	}

	return base
}

func loadYAMLFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := expandEnvVars(string(data))
	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
			WithDetail("path", path)
	}
	return &config, nil
}

// FindConfigFile searches for taskdeck configuration files with the
// following precedence:
//  1. Current directory up to the filesystem root
//  2. XDG config directory (~/.config/taskdeck/taskdeck.yml)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if xdgConfigPath := getXDGConfigPath(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values.
// ${VAR:-default} falls back to the default when VAR is unset or empty.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// getXDGConfigPath returns the global config path for taskdeck.
func getXDGConfigPath() string {
	if deckHome := os.Getenv("TASKDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "config", "taskdeck", "taskdeck.yml")
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskdeck", "taskdeck.yml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "taskdeck", "taskdeck.yml")
	}

	return ""
}

// LoadLayered finds and loads all configuration layers without merging
// them, for analysis purposes. It also computes the final merged config.
func LoadLayered(startDir string) (*LayeredConfig, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	layered := &LayeredConfig{
		GlobalFragments: make([]OverrideSource, 0),
		Overrides:       make([]OverrideSource, 0),
		FilePaths:       make(map[ConfigSource]string),
	}

	defaultCfg := &Config{}
	defaultCfg.SetDefaults()
	layered.Default = defaultCfg

	// Global layer
	globalPath := getXDGConfigPath()
	if globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			if cfg, err := loadYAMLFile(globalPath); err == nil {
				layered.Global = cfg
				layered.FilePaths[SourceGlobal] = globalPath
			}
		}

		fragDir := filepath.Join(filepath.Dir(globalPath), fragmentsDirName)
		if entries, err := os.ReadDir(fragDir); err == nil {
			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".toml") {
					names = append(names, entry.Name())
				}
			}
			sort.Strings(names)
			for _, name := range names {
				fragPath := filepath.Join(fragDir, name)
				data, err := os.ReadFile(fragPath)
				if err != nil {
					continue
				}
				var frag Config
				if err := toml.Unmarshal([]byte(expandEnvVars(string(data))), &frag); err != nil {
					continue
				}
				layered.GlobalFragments = append(layered.GlobalFragments, OverrideSource{
					Path:   fragPath,
					Config: &frag,
				})
			}
		}
	}

	// Project layer (optional)
	projectPath, err := FindConfigFile(startDir)
	if err == nil {
		if cfg, loadErr := loadYAMLFile(projectPath); loadErr == nil {
			layered.Project = cfg
			layered.FilePaths[SourceProject] = projectPath
		} else {
			return nil, loadErr
		}

		projectDir := filepath.Dir(projectPath)
		for _, name := range overrideNames {
			overridePath := filepath.Join(projectDir, name)
			if _, statErr := os.Stat(overridePath); statErr != nil {
				continue
			}
			if cfg, loadErr := loadYAMLFile(overridePath); loadErr == nil {
				layered.Overrides = append(layered.Overrides, OverrideSource{
					Path:   overridePath,
					Config: cfg,
				})
			}
		}
	}

	// Compute the final merged config from the collected layers.
	var finalConfig *Config
	if layered.Global != nil {
		finalConfig = layered.Global
	}
	for _, frag := range layered.GlobalFragments {
		if finalConfig == nil {
			finalConfig = frag.Config
		} else {
			finalConfig = mergeConfigs(finalConfig, frag.Config)
		}
	}
	if layered.Project != nil {
		if finalConfig == nil {
			finalConfig = layered.Project
		} else {
			finalConfig = mergeConfigs(finalConfig, layered.Project)
		}
	}
	for _, override := range layered.Overrides {
		if finalConfig == nil {
			finalConfig = override.Config
		} else {
			finalConfig = mergeConfigs(finalConfig, override.Config)
		}
	}
	if finalConfig == nil {
		finalConfig = &Config{}
	}

	final, err := finalize(finalConfig)
	if err != nil {
		return nil, err
	}
	layered.Final = final

	return layered, nil
}
