package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDirResolution(t *testing.T) {
	t.Run("TASKDECK_HOME wins over XDG", func(t *testing.T) {
		t.Setenv("TASKDECK_HOME", "/portable/deck")
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

		assert.Equal(t, filepath.Join("/portable/deck", "config", "taskdeck"), ConfigDir())
	})

	t.Run("XDG_CONFIG_HOME used when set", func(t *testing.T) {
		t.Setenv("TASKDECK_HOME", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

		assert.Equal(t, filepath.Join("/xdg/config", "taskdeck"), ConfigDir())
	})

	t.Run("falls back to ~/.config", func(t *testing.T) {
		t.Setenv("TASKDECK_HOME", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/tester")

		assert.Equal(t, filepath.Join("/home/tester", ".config", "taskdeck"), ConfigDir())
	})
}

func TestProviderHomes(t *testing.T) {
	t.Run("claude honors CLAUDE_CONFIG_DIR", func(t *testing.T) {
		t.Setenv("CLAUDE_CONFIG_DIR", "/custom/claude")
		t.Setenv("TASKDECK_HOME", "/portable/deck")

		assert.Equal(t, "/custom/claude", ClaudeHome())
	})

	t.Run("claude sandboxed under TASKDECK_HOME", func(t *testing.T) {
		t.Setenv("CLAUDE_CONFIG_DIR", "")
		t.Setenv("TASKDECK_HOME", "/portable/deck")

		assert.Equal(t, filepath.Join("/portable/deck", "claude"), ClaudeHome())
	})

	t.Run("claude defaults to ~/.claude", func(t *testing.T) {
		t.Setenv("CLAUDE_CONFIG_DIR", "")
		t.Setenv("TASKDECK_HOME", "")
		t.Setenv("HOME", "/home/tester")

		assert.Equal(t, filepath.Join("/home/tester", ".claude"), ClaudeHome())
	})

	t.Run("codex honors CODEX_HOME", func(t *testing.T) {
		t.Setenv("CODEX_HOME", "/custom/codex")
		t.Setenv("TASKDECK_HOME", "/portable/deck")

		assert.Equal(t, "/custom/codex", CodexHome())
	})

	t.Run("codex defaults to ~/.codex", func(t *testing.T) {
		t.Setenv("CODEX_HOME", "")
		t.Setenv("TASKDECK_HOME", "")
		t.Setenv("HOME", "/home/tester")

		assert.Equal(t, filepath.Join("/home/tester", ".codex"), CodexHome())
	})
}
