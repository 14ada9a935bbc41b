package sessions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/pathenc"
	"github.com/taskdeck/core/testutil"
)

func newTestLoader(t *testing.T, projectsRoot, todosRoot string) *Loader {
	t.Helper()

	l, err := NewLoader(Options{
		Provider:     "claude",
		ProjectsRoot: projectsRoot,
		TodosRoot:    todosRoot,
	})
	require.NoError(t, err)
	return l
}

// realProjectDir returns a directory that exists on disk, so reconstruction
// and existence checks succeed against the live filesystem.
func realProjectDir(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "work", "alpha")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func findProject(t *testing.T, projects []models.Project, path string) models.Project {
	t.Helper()

	for _, p := range projects {
		if p.Path == path {
			return p
		}
	}
	t.Fatalf("no project with path %q in %d projects", path, len(projects))
	return models.Project{}
}

func TestLoadEmptyProjectDirStaysVisible(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	projects, report, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, projects, 1)
	p := projects[0]
	assert.Equal(t, real, p.Path)
	assert.Equal(t, pathenc.Flatten(real), p.FlattenedDir)
	assert.True(t, p.PathExists)
	assert.Empty(t, p.Sessions)
	assert.Equal(t, models.ProjectStats{}, p.Stats)

	assert.Equal(t, 1, report.ProjectDirs)
	assert.Equal(t, 1, report.LoadedProjects)
	assert.Empty(t, report.MissedDirs)
}

func TestLoadParsesLegacyAndEventLogSessions(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	testutil.WriteLegacySession(t, dir, "legacy1", testutil.Todos(2, 0))
	legacyTime := time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC)
	testutil.Touch(t, filepath.Join(dir, ".session_legacy1.json"), legacyTime)

	eventID := testutil.RandomSessionID()
	testutil.WriteEventLog(t, dir, eventID,
		testutil.TodoEvent(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), real, testutil.Todos(1, 0)),
		testutil.TodoEvent(time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC), "", testutil.Todos(2, 1)),
	)

	projects, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	p := findProject(t, projects, real)
	require.Len(t, p.Sessions, 2)

	// Latest todo-bearing event wins inside one log
	assert.Equal(t, models.ProjectStats{Todos: 4, Active: 3, Completed: 1}, p.Stats)
	assert.Equal(t, time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC), p.MostRecentTodoDate.UTC())
	assert.Equal(t, legacyTime, p.StartDate.UTC())

	for _, s := range p.Sessions {
		assert.Equal(t, real, s.ProjectPath)
		assert.Equal(t, "claude", s.Provider)
	}
}

func TestLoadMetadataSidecarIsAuthoritative(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)

	// The sidecar points somewhere else entirely; it still wins.
	flattened := pathenc.Flatten(real)
	testutil.WriteMetadata(t, projectsRoot, flattened, "/data/the-real-one")

	projects, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, projects, 1)
	assert.Equal(t, "/data/the-real-one", projects[0].Path)
	assert.False(t, projects[0].PathExists)
}

func TestConflictLargerTodoListWins(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	id := testutil.RandomSessionID()
	testutil.WriteEventLog(t, dir, id,
		testutil.TodoEvent(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), "", testutil.Todos(2, 0)),
	)
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(5, 2))

	projects, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	p := findProject(t, projects, real)
	require.Len(t, p.Sessions, 1, "same session id from both trees must merge")
	assert.Len(t, p.Sessions[0].Todos, 5, "the larger todo list wins")
	assert.Equal(t, models.ProjectStats{Todos: 5, Active: 3, Completed: 2}, p.Stats)
}

func TestConflictEqualSizesNewerWins(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	id := testutil.RandomSessionID()
	testutil.WriteEventLog(t, dir, id,
		testutil.TodoEvent(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), "", testutil.Todos(3, 0)),
	)
	todoPath := testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(3, 3))
	testutil.Touch(t, todoPath, time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC))

	projects, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	p := findProject(t, projects, real)
	require.Len(t, p.Sessions, 1)
	assert.Equal(t, todoPath, p.Sessions[0].FilePath, "newer lastModified breaks the tie")
	assert.Equal(t, 3, p.Stats.Completed)
}

func TestUnanchoredSessionGroupsUnderUnknownProject(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)

	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(2, 1))

	projects, report, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	p := findProject(t, projects, models.UnknownProjectPath)
	require.Len(t, p.Sessions, 1)
	assert.False(t, p.PathExists)

	require.Len(t, report.UnknownSessions, 1)
	assert.Equal(t, id, report.UnknownSessions[0].SessionID)
	assert.NotEmpty(t, report.UnknownSessions[0].Reason)
}

func TestExplicitProjectPathMustResolveOnDisk(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)

	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, map[string]interface{}{
		"todos":       testutil.Todos(1, 0),
		"projectPath": "/nowhere/to/be/found",
	})

	_, report, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, report.UnknownSessions, 1)
	assert.Contains(t, report.UnknownSessions[0].Reason, "does not resolve")
}

func TestMetaSidecarAnchorsSession(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)

	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(2, 0))
	testutil.WriteTodoMeta(t, todosRoot, id, real)

	projects, report, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	p := findProject(t, projects, real)
	require.Len(t, p.Sessions, 1)
	assert.True(t, p.PathExists)
	assert.Empty(t, report.UnknownSessions)
}

func TestExplicitProjectPathBeatsSidecar(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)

	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, map[string]interface{}{
		"todos":       testutil.Todos(1, 0),
		"projectPath": real,
	})
	testutil.WriteTodoMeta(t, todosRoot, id, "/sidecar/says/elsewhere")

	projects, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	findProject(t, projects, real)
}

func TestLoadIsIdempotent(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	testutil.WriteLegacySession(t, dir, "s1", testutil.Todos(2, 1))
	id := testutil.RandomSessionID()
	testutil.WriteEventLog(t, dir, id,
		testutil.TodoEvent(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), "", testutil.Todos(3, 0)),
	)
	testutil.WriteTodoFile(t, todosRoot, testutil.RandomSessionID(), testutil.Todos(4, 4))

	loader := newTestLoader(t, projectsRoot, todosRoot)
	first, firstReport, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, secondReport, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second, "unchanged input must load identically")
	assert.Equal(t, firstReport.ProjectDirs, secondReport.ProjectDirs)
	assert.Equal(t, firstReport.LoadedProjects, secondReport.LoadedProjects)
}

func TestStatsInvariantHolds(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	testutil.WriteLegacySession(t, dir, "a", testutil.Todos(3, 1))
	testutil.WriteLegacySession(t, dir, "b", testutil.Todos(5, 5))
	testutil.WriteTodoFile(t, todosRoot, testutil.RandomSessionID(), testutil.Todos(2, 0))

	projects, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, projects)
	for _, p := range projects {
		assert.Equal(t, p.Stats.Todos, p.Stats.Active+p.Stats.Completed,
			"stats invariant broken for %s", p.Path)
	}
}

func TestIgnorePatternsSkipEntries(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))
	testutil.WriteProjectDir(t, projectsRoot, "archived-old-thing")

	loader, err := NewLoader(Options{
		Provider:       "claude",
		ProjectsRoot:   projectsRoot,
		TodosRoot:      todosRoot,
		IgnorePatterns: []string{"archived-*"},
	})
	require.NoError(t, err)

	projects, report, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, projects, 1)
	assert.Equal(t, real, projects[0].Path)
	assert.Equal(t, 1, report.SkippedItems)
	assert.Equal(t, 1, report.ProjectDirs)
}

func TestLoadMissingRootsAreEmptyNotFatal(t *testing.T) {
	home := t.TempDir()

	loader := newTestLoader(t,
		filepath.Join(home, "projects"),
		filepath.Join(home, "todos"))

	projects, report, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.Equal(t, 0, report.ProjectDirs)
}

func TestLoadHonorsContextCancellation(t *testing.T) {
	_, projectsRoot, todosRoot := testutil.ProviderHome(t)
	real := realProjectDir(t)
	testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestLoader(t, projectsRoot, todosRoot).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
