package sessions

import (
	"github.com/taskdeck/core/pkg/models"
)

// ScanReport is the diagnostic side channel of a Load: counts of what was
// seen, what was skipped and what could not be placed. Nothing in here is
// fatal; it exists so callers can cross-check coverage.
type ScanReport struct {
	// ProjectDirs is the number of flattened directories seen in the
	// projects tree (ignored ones excluded).
	ProjectDirs int `json:"projectDirs"`

	// LoadedProjects is the number of projects in the returned set,
	// the unknown-project sentinel excluded.
	LoadedProjects int `json:"loadedProjects"`

	// MissedDirs lists flattened directories that failed to map to a
	// loaded project (unreadable directory, resolution failure).
	MissedDirs []string `json:"missedDirs,omitempty"`

	// UnknownSessions lists sessions that no strategy could anchor to a
	// real project path.
	UnknownSessions []models.UnknownSession `json:"unknownSessions,omitempty"`

	// SkippedItems counts directory entries and files excluded by the
	// configured ignore patterns.
	SkippedItems int `json:"skippedItems"`
}
