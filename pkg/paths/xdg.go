// Package paths provides XDG-compliant path resolution for taskdeck and the
// provider home directories it observes.
//
// Resolution order for taskdeck's own directories:
// 1. TASKDECK_HOME (portable root) → $TASKDECK_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/taskdeck
// 3. Platform defaults → ~/.config/taskdeck, ~/.local/state/taskdeck, etc.
//
// Provider homes resolve through each provider's own environment variable
// first, so taskdeck sees exactly the tree the assistant tool writes.
package paths

import (
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if deckHome := os.Getenv("TASKDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if deckHome := os.Getenv("TASKDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// getCacheHome returns the base cache home directory.
func getCacheHome() string {
	if deckHome := os.Getenv("TASKDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "cache")
	}
	if xdgCacheHome := os.Getenv("XDG_CACHE_HOME"); xdgCacheHome != "" {
		return xdgCacheHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".cache")
	}
	return ""
}

// ConfigDir returns the taskdeck configuration directory.
// Used for config files like taskdeck.yml and conf.d fragments.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "taskdeck")
}

// StateDir returns the taskdeck state directory.
// Used for runtime state and logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "taskdeck")
}

// CacheDir returns the taskdeck cache directory.
// Used for temporary/regenerable data.
func CacheDir() string {
	base := getCacheHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "taskdeck")
}

// ClaudeHome returns the home directory of the Claude-style provider.
// Resolution order:
// 1. CLAUDE_CONFIG_DIR env var (the tool's own override)
// 2. TASKDECK_HOME/claude (test/demo sandboxing)
// 3. ~/.claude
func ClaudeHome() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if deckHome := os.Getenv("TASKDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "claude")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".claude")
	}
	return ""
}

// CodexHome returns the home directory of the Codex-style provider.
// Resolution order:
// 1. CODEX_HOME env var (the tool's own override)
// 2. TASKDECK_HOME/codex (test/demo sandboxing)
// 3. ~/.codex
func CodexHome() string {
	if dir := os.Getenv("CODEX_HOME"); dir != "" {
		return dir
	}
	if deckHome := os.Getenv("TASKDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "codex")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".codex")
	}
	return ""
}

// EnsureDirs creates all taskdeck directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		CacheDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
