// Package logutil locates taskdeck's own log files on disk, mirroring the
// sink layout the logging package writes.
package logutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskdeck/core/config"
	"github.com/taskdeck/core/logging"
	"github.com/taskdeck/core/pkg/paths"
)

// DefaultLogsDir returns the directory the default file sink writes to:
// .taskdeck/logs under the working directory, falling back to the home
// directory when the working directory is unavailable.
func DefaultLogsDir() string {
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".taskdeck", "logs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".taskdeck", "logs")
	}
	return filepath.Join(".taskdeck", "logs")
}

// ResolveLogFile returns the active log file and its directory. An explicitly
// configured file sink wins; otherwise the newest file in the default
// directory is picked.
func ResolveLogFile() (logFile, logsDir string, err error) {
	var logCfg logging.Config
	if cfg, cfgErr := config.LoadDefault(); cfgErr == nil {
		// A malformed logging block falls back to the default layout.
		_ = cfg.UnmarshalExtension("logging", &logCfg)
	}

	if logCfg.File.Enabled && logCfg.File.Path != "" {
		expanded, expandErr := paths.Expand(logCfg.File.Path)
		if expandErr != nil {
			return "", "", expandErr
		}
		return expanded, filepath.Dir(expanded), nil
	}

	logsDir = DefaultLogsDir()
	logFile, err = FindLatestLogFile(logsDir)
	return logFile, logsDir, err
}

// FindLatestLogFile finds the most recently modified file in a directory,
// preferring files with content over empty ones.
func FindLatestLogFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("could not read log directory %s: %w", dir, err)
	}

	var latest os.FileInfo
	var latestPath string
	var latestNonEmpty os.FileInfo
	var latestNonEmptyPath string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == nil || info.ModTime().After(latest.ModTime()) {
			latest = info
			latestPath = filepath.Join(dir, entry.Name())
		}
		if info.Size() > 0 {
			if latestNonEmpty == nil || info.ModTime().After(latestNonEmpty.ModTime()) {
				latestNonEmpty = info
				latestNonEmptyPath = filepath.Join(dir, entry.Name())
			}
		}
	}

	if latestNonEmpty != nil {
		return latestNonEmptyPath, nil
	}
	if latest == nil {
		return "", fmt.Errorf("no log files found in %s", dir)
	}
	return latestPath, nil
}
