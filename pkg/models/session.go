package models

import (
	"time"
)

// Session represents one conversation/work unit that produced a todo list.
// Identity is the (Provider, ID) pair; the same literal ID under two different
// providers names two unrelated sessions.
type Session struct {
	ID          string    `json:"sessionId"`
	Provider    string    `json:"provider"`
	ProjectPath string    `json:"projectPath,omitempty"` // empty until resolved
	FilePath    string    `json:"filePath"`              // origin file on disk
	Todos       []Todo    `json:"todos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"` // recency ordering and merge tie-breaker
}

// SessionKey identifies a session across providers.
type SessionKey struct {
	Provider string
	ID       string
}

// Key returns the dedup identity of the session.
func (s Session) Key() SessionKey {
	return SessionKey{Provider: s.Provider, ID: s.ID}
}

// ActiveTodos counts the items that still need work.
func (s Session) ActiveTodos() int {
	n := 0
	for _, t := range s.Todos {
		if t.IsActive() {
			n++
		}
	}
	return n
}

// PreferSession implements the conflict rule for two versions of the same
// session id found in different sources: the larger todo list wins; equal
// sizes fall back to the newer lastModified. This is a heuristic: with
// partial, non-overlapping sources the larger list can still miss items the
// smaller one has. No content-level union is attempted.
func PreferSession(candidate, current Session) bool {
	if len(candidate.Todos) != len(current.Todos) {
		return len(candidate.Todos) > len(current.Todos)
	}
	return candidate.UpdatedAt.After(current.UpdatedAt)
}
