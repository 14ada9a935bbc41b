package claude

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

func newTestAdapter(t *testing.T, home string) *Adapter {
	t.Helper()

	a, err := New(Options{Home: home, Debounce: 5 * time.Millisecond})
	require.NoError(t, err)
	return a
}

// shadowedProjectDir builds the layout the greedy walk gets wrong: the real
// project is /base/my/app/sub, but a sibling /base/my-app shadows the first
// two segments, so reconstruction continues verbatim into a path that does
// not exist. The flattened directory then needs repair.
func shadowedProjectDir(t *testing.T) (realPath, flattened string) {
	t.Helper()

	base := t.TempDir()
	realPath = filepath.Join(base, "my", "app", "sub")
	require.NoError(t, os.MkdirAll(realPath, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "my-app"), 0755))
	return realPath, pathenc.Flatten(realPath)
}

func TestFetchProjectsMergesBothTrees(t *testing.T) {
	home, projectsRoot, todosRoot := testutil.ProviderHome(t)

	real := filepath.Join(t.TempDir(), "svc")
	require.NoError(t, os.MkdirAll(real, 0755))
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	id := testutil.RandomSessionID()
	testutil.WriteEventLog(t, dir, id,
		testutil.TodoEvent(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC), real, testutil.Todos(2, 1)),
	)
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(4, 2))

	adapter := newTestAdapter(t, home)
	assert.Equal(t, Provider, adapter.Name())

	projects, err := adapter.FetchProjects(context.Background())
	require.NoError(t, err)

	require.Len(t, projects, 1)
	p := projects[0]
	assert.Equal(t, real, p.Path)
	assert.Equal(t, Provider, p.Provider)
	require.Len(t, p.Sessions, 1)
	assert.Len(t, p.Sessions[0].Todos, 4, "larger todo list wins the merge")
}

func TestCollectDiagnosticsReportsUnknownSessions(t *testing.T) {
	home, _, todosRoot := testutil.ProviderHome(t)

	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(1, 0))

	diags, err := newTestAdapter(t, home).CollectDiagnostics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Provider, diags.Provider)
	assert.Equal(t, 1, diags.UnknownCount)
	require.Len(t, diags.Details, 1)
	assert.Equal(t, id, diags.Details[0].SessionID)
}

func TestRepairDirFromWorkspaceKey(t *testing.T) {
	home, projectsRoot, _ := testutil.ProviderHome(t)
	real, flattened := shadowedProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, flattened)

	// The marker uses a workspace spelling the scanner does not treat as a
	// cwd line, so only repair can recover it.
	testutil.WriteEventLog(t, dir, testutil.RandomSessionID(),
		`{"type":"note","workingDirectory":"`+real+`"}`,
	)

	adapter := newTestAdapter(t, home)

	report, err := adapter.RepairMetadata(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Planned)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 0, report.UnknownCount)
	require.Len(t, report.Details, 1)
	action := report.Details[0]
	assert.Equal(t, models.RepairFromWorkspaceKey, action.Method)
	assert.Equal(t, flattened, action.FlattenedDir)
	assert.Equal(t, real, action.ResolvedPath)
	assert.True(t, action.Written)

	// The write-once sidecar makes the next load resolve correctly.
	assert.FileExists(t, filepath.Join(projectsRoot, flattened, "metadata.json"))
	projects, err := adapter.FetchProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, real, projects[0].Path)
	assert.True(t, projects[0].PathExists)
}

func TestRepairDirFromSessionLog(t *testing.T) {
	home, projectsRoot, _ := testutil.ProviderHome(t)
	real, flattened := shadowedProjectDir(t)
	testutil.WriteProjectDir(t, projectsRoot, flattened)

	line := `{"sessionId":"` + testutil.RandomSessionID() + `","cwd":"` + real + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(home, "history.jsonl"), []byte(line+"\n"), 0644))

	report, err := newTestAdapter(t, home).RepairMetadata(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	assert.Equal(t, models.RepairFromSessionLog, report.Details[0].Method)
	assert.Equal(t, real, report.Details[0].ResolvedPath)
	assert.FileExists(t, filepath.Join(projectsRoot, flattened, "metadata.json"))
}

func TestRepairDryRunWritesNothing(t *testing.T) {
	home, projectsRoot, _ := testutil.ProviderHome(t)
	real, flattened := shadowedProjectDir(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, flattened)

	testutil.WriteEventLog(t, dir, testutil.RandomSessionID(),
		`{"type":"note","workspace":"`+real+`"}`,
	)

	report, err := newTestAdapter(t, home).RepairMetadata(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Planned)
	assert.Equal(t, 0, report.Written)
	require.Len(t, report.Details, 1)
	assert.False(t, report.Details[0].Written)
	assert.NoFileExists(t, filepath.Join(projectsRoot, flattened, "metadata.json"))
}

func TestRepairSessionFromCwdMarker(t *testing.T) {
	home, _, todosRoot := testutil.ProviderHome(t)

	real := filepath.Join(t.TempDir(), "svc")
	require.NoError(t, os.MkdirAll(real, 0755))

	// A cwd key in the todo payload is not an anchor during loading, so the
	// session starts out unknown and repair recovers it.
	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, map[string]interface{}{
		"todos": testutil.Todos(2, 0),
		"cwd":   real,
	})

	adapter := newTestAdapter(t, home)

	diags, err := adapter.CollectDiagnostics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, diags.UnknownCount)

	report, err := adapter.RepairMetadata(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	assert.Equal(t, models.RepairFromCwdMarker, report.Details[0].Method)
	assert.Equal(t, id, report.Details[0].SessionID)
	assert.FileExists(t, filepath.Join(todosRoot, id+"-agent.meta.json"))

	diags, err = adapter.CollectDiagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, diags.UnknownCount, "repaired session anchors on the next load")
}

func TestRepairSessionFromTranscriptFilename(t *testing.T) {
	home, projectsRoot, todosRoot := testutil.ProviderHome(t)

	real := filepath.Join(t.TempDir(), "svc")
	require.NoError(t, os.MkdirAll(real, 0755))
	dir := testutil.WriteProjectDir(t, projectsRoot, pathenc.Flatten(real))

	// A non-UUID id never scans as an event log, so the transcript filename
	// is the only link between the todo file and its directory.
	id := "legacy-task-7"
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".jsonl"), []byte("{}\n"), 0644))
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(1, 0))

	report, err := newTestAdapter(t, home).RepairMetadata(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	assert.Equal(t, models.RepairFromTranscript, report.Details[0].Method)
	assert.Equal(t, real, report.Details[0].ResolvedPath)
}

func TestRepairSessionFromHistory(t *testing.T) {
	home, _, todosRoot := testutil.ProviderHome(t)

	real := filepath.Join(t.TempDir(), "svc")
	require.NoError(t, os.MkdirAll(real, 0755))

	id := testutil.RandomSessionID()
	testutil.WriteTodoFile(t, todosRoot, id, testutil.Todos(3, 1))
	line := `{"sessionId":"` + id + `","cwd":"` + real + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(home, "history.jsonl"), []byte(line+"\n"), 0644))

	report, err := newTestAdapter(t, home).RepairMetadata(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	assert.Equal(t, models.RepairFromSessionLog, report.Details[0].Method)
	assert.Equal(t, real, report.Details[0].ResolvedPath)
	assert.Equal(t, 1, report.Written)
}

func TestRepairLeavesHopelessItemsUnknown(t *testing.T) {
	home, _, todosRoot := testutil.ProviderHome(t)

	testutil.WriteTodoFile(t, todosRoot, testutil.RandomSessionID(), testutil.Todos(1, 0))

	report, err := newTestAdapter(t, home).RepairMetadata(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Planned)
	assert.Equal(t, 0, report.Written)
	assert.Equal(t, 1, report.UnknownCount)
	require.Len(t, report.Details, 1)
	assert.Equal(t, models.RepairFailed, report.Details[0].Method)
	assert.NotEmpty(t, report.Details[0].Reason)
}

func TestDeleteProjectDir(t *testing.T) {
	home, projectsRoot, _ := testutil.ProviderHome(t)
	dir := testutil.WriteProjectDir(t, projectsRoot, "-home-u-gone")

	adapter := newTestAdapter(t, home)

	require.NoError(t, adapter.DeleteProjectDir("-home-u-gone"))
	assert.NoDirExists(t, dir)

	t.Run("rejects path traversal", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "../evil", "a/b", `a\b`} {
			assert.Error(t, adapter.DeleteProjectDir(name), "name %q", name)
		}
	})

	t.Run("missing directory is an error", func(t *testing.T) {
		assert.Error(t, adapter.DeleteProjectDir("-never-existed"))
	})
}

func TestWatchChangesNotifiesAndStops(t *testing.T) {
	home, projectsRoot, _ := testutil.ProviderHome(t)

	adapter := newTestAdapter(t, home)

	changes := make(chan struct{}, 8)
	unsubscribe, err := adapter.WatchChanges(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer unsubscribe()

	testutil.WriteProjectDir(t, projectsRoot, "-home-u-new")

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification after directory creation")
	}

	unsubscribe()
	unsubscribe() // second call is a no-op
}
