package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/pkg/models"
)

func TestMergeProjectsDedupsSessionsFirstWins(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	older := now.Add(-48 * time.Hour)

	a := models.Project{
		Path:               "/w/app",
		Provider:           "claude",
		PathExists:         false,
		StartDate:          now,
		MostRecentTodoDate: now,
		Sessions: []models.Session{
			{ID: "s1", Provider: "claude", Todos: []models.Todo{
				{Content: "from-first", Status: models.TodoStatusPending},
			}},
		},
		Stats: models.ProjectStats{Todos: 1, Active: 1},
	}
	b := models.Project{
		Path:               "/w/app",
		Provider:           "claude",
		PathExists:         true,
		StartDate:          older,
		MostRecentTodoDate: now.Add(time.Hour),
		Sessions: []models.Session{
			{ID: "s1", Provider: "claude", Todos: []models.Todo{
				{Content: "from-second", Status: models.TodoStatusPending},
			}},
			{ID: "s2", Provider: "claude"},
		},
		Stats: models.ProjectStats{Todos: 3, Active: 2, Completed: 1},
	}

	merged := mergeProjects([]models.Project{a}, []models.Project{b})

	require.Len(t, merged, 1)
	got := merged[0]

	require.Len(t, got.Sessions, 2)
	assert.Equal(t, "from-first", got.Sessions[0].Todos[0].Content,
		"earlier occurrence of a session id wins")
	assert.Equal(t, "s2", got.Sessions[1].ID)

	assert.True(t, got.PathExists, "existence combines with OR")
	assert.Equal(t, older, got.StartDate, "start date takes the minimum")
	assert.Equal(t, now.Add(time.Hour), got.MostRecentTodoDate, "recency takes the maximum")
	assert.Equal(t, models.ProjectStats{Todos: 4, Active: 3, Completed: 1}, got.Stats,
		"stats sum field-wise with completed re-derived")
}

func TestMergeProjectsKeepsProvidersApart(t *testing.T) {
	merged := mergeProjects(
		[]models.Project{{Path: "/w/app", Provider: "claude"}},
		[]models.Project{{Path: "/w/app", Provider: "codex"}},
	)
	assert.Len(t, merged, 2)
}

func TestMergeProjectsPreservesFirstSeenOrder(t *testing.T) {
	merged := mergeProjects(
		[]models.Project{
			{Path: "/w/zeta", Provider: "claude"},
			{Path: "/w/alpha", Provider: "claude"},
		},
		[]models.Project{
			{Path: "/w/alpha", Provider: "claude"},
			{Path: "/w/mid", Provider: "codex"},
		},
	)

	require.Len(t, merged, 3)
	assert.Equal(t, "/w/zeta", merged[0].Path)
	assert.Equal(t, "/w/alpha", merged[1].Path)
	assert.Equal(t, "/w/mid", merged[2].Path)
}

func TestMergeProjectsDoesNotAliasInputs(t *testing.T) {
	in := []models.Project{{
		Path:     "/w/app",
		Provider: "claude",
		Sessions: []models.Session{{ID: "s1", Provider: "claude"}},
	}}

	merged := mergeProjects(in, []models.Project{{
		Path:     "/w/app",
		Provider: "claude",
		Sessions: []models.Session{{ID: "s2", Provider: "claude"}},
	}})

	require.Len(t, merged, 1)
	require.Len(t, merged[0].Sessions, 2)
	assert.Len(t, in[0].Sessions, 1, "merging must not grow the caller's slice")
}

func TestMergeProjectsZeroDatesDoNotWin(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	merged := mergeProjects(
		[]models.Project{{Path: "/w/app", Provider: "claude", StartDate: now, MostRecentTodoDate: now}},
		[]models.Project{{Path: "/w/app", Provider: "claude"}},
	)

	require.Len(t, merged, 1)
	assert.Equal(t, now, merged[0].StartDate, "a zero start date is unknown, not earlier")
	assert.Equal(t, now, merged[0].MostRecentTodoDate)
}
