package models

import (
	"time"
)

// UnknownProjectPath is the sentinel project identity for sessions whose real
// path no resolution strategy could recover. Those sessions stay visible and
// are reported through diagnostics instead of being dropped.
const UnknownProjectPath = "Unknown Project"

// Project is the canonical per-project view assembled from one provider's
// on-disk data. Identity is the (Provider, Path) pair.
type Project struct {
	Path         string `json:"path"`
	Provider     string `json:"provider"`
	FlattenedDir string `json:"flattenedDir,omitempty"` // origin-encoded name, kept for diagnostics
	PathExists   bool   `json:"pathExists"`             // live check, never cached

	Sessions []Session `json:"sessions"` // set semantics keyed by session ID

	StartDate          time.Time    `json:"startDate,omitempty"`          // earliest session activity
	MostRecentTodoDate time.Time    `json:"mostRecentTodoDate,omitempty"` // latest session activity
	Stats              ProjectStats `json:"stats"`
}

// ProjectStats holds the derived todo counts for a project.
// Completed is always Todos - Active; it is never tracked independently.
type ProjectStats struct {
	Todos     int `json:"todos"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// Add combines two stat blocks field-wise, re-deriving Completed.
func (s ProjectStats) Add(other ProjectStats) ProjectStats {
	sum := ProjectStats{
		Todos:  s.Todos + other.Todos,
		Active: s.Active + other.Active,
	}
	sum.Completed = sum.Todos - sum.Active
	return sum
}

// HasSession reports whether a session with the given ID is already present.
func (p *Project) HasSession(sessionID string) bool {
	for _, s := range p.Sessions {
		if s.ID == sessionID {
			return true
		}
	}
	return false
}

// RecomputeStats rebuilds Stats, StartDate and MostRecentTodoDate from the
// current session set. MostRecentTodoDate is only raised, never lowered, so a
// value already learned from event timestamps survives.
func (p *Project) RecomputeStats() {
	stats := ProjectStats{}
	var start, recent time.Time

	for _, s := range p.Sessions {
		stats.Todos += len(s.Todos)
		stats.Active += s.ActiveTodos()

		if !s.UpdatedAt.IsZero() {
			if start.IsZero() || s.UpdatedAt.Before(start) {
				start = s.UpdatedAt
			}
			if s.UpdatedAt.After(recent) {
				recent = s.UpdatedAt
			}
		}
	}
	stats.Completed = stats.Todos - stats.Active

	p.Stats = stats
	if !start.IsZero() {
		p.StartDate = start
	}
	if recent.After(p.MostRecentTodoDate) {
		p.MostRecentTodoDate = recent
	}
}
