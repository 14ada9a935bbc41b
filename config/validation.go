package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/taskdeck/core/errors"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Version now has a default, so no need to check

	if err := validateProviders(c.Providers); err != nil {
		return err
	}

	if err := validateScan(c.Scan); err != nil {
		return err
	}

	if err := validateWatch(c.Watch); err != nil {
		return err
	}

	return nil
}

func validateProviders(providers *ProvidersConfig) error {
	if providers == nil {
		return nil
	}

	if err := validateHome("providers.claude.home", providers.Claude); err != nil {
		return err
	}
	if err := validateHome("providers.codex.home", providers.Codex); err != nil {
		return err
	}

	return nil
}

func validateHome(fieldName string, provider *ProviderConfig) error {
	if provider == nil || provider.Home == "" {
		return nil
	}
	return validatePath(fieldName, provider.Home)
}

func validateScan(scan *ScanConfig) error {
	if scan == nil {
		return nil
	}

	if scan.MaxDepth < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "scan.max_depth cannot be negative").
			WithDetail("maxDepth", scan.MaxDepth)
	}

	if len(scan.Ignore) > 0 {
		if _, err := patternmatcher.New(scan.Ignore); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid scan.ignore pattern").
				WithDetail("patterns", scan.Ignore)
		}
	}

	return nil
}

func validateWatch(watch *WatchConfig) error {
	if watch == nil {
		return nil
	}

	if watch.DebounceMs < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "watch.debounce_ms cannot be negative").
			WithDetail("debounceMs", watch.DebounceMs)
	}

	if watch.PollInterval != "" {
		d, err := time.ParseDuration(watch.PollInterval)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid watch.poll_interval: %s", watch.PollInterval)).
				WithDetail("pollInterval", watch.PollInterval)
		}
		if d <= 0 {
			return errors.New(errors.ErrCodeConfigValidation, "watch.poll_interval must be positive").
				WithDetail("pollInterval", watch.PollInterval)
		}
	}

	return nil
}

// validatePath validates that a path is appropriate for the current OS
func validatePath(fieldName, path string) error {
	// Check for Windows absolute paths on Unix systems
	if runtime.GOOS != "windows" && filepath.IsAbs(path) && strings.Contains(path, "\\") {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s contains Windows-style path on Unix system", fieldName)).
			WithDetail("path", path)
	}

	// Check for Unix absolute paths on Windows systems
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s contains Unix-style path on Windows system", fieldName)).
			WithDetail("path", path)
	}

	return nil
}
