// Package testutil builds on-disk provider-home fixtures for tests: flattened
// project directories, legacy session files, JSONL event logs, flat todo
// files with their meta sidecars, and Codex rollout transcripts.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/pkg/models"
)

// ProviderHome creates an empty provider home with projects/ and todos/
// subdirectories and returns all three paths.
func ProviderHome(t *testing.T) (home, projectsRoot, todosRoot string) {
	t.Helper()

	home = t.TempDir()
	projectsRoot = filepath.Join(home, "projects")
	todosRoot = filepath.Join(home, "todos")
	require.NoError(t, os.MkdirAll(projectsRoot, 0755))
	require.NoError(t, os.MkdirAll(todosRoot, 0755))
	return home, projectsRoot, todosRoot
}

// WriteProjectDir creates one flattened project directory and returns its path.
func WriteProjectDir(t *testing.T, projectsRoot, flattenedDir string) string {
	t.Helper()

	dir := filepath.Join(projectsRoot, flattenedDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

// WriteMetadata writes the metadata.json sidecar of a flattened project
// directory, creating the directory when needed.
func WriteMetadata(t *testing.T, projectsRoot, flattenedDir, realPath string) {
	t.Helper()

	dir := WriteProjectDir(t, projectsRoot, flattenedDir)
	data, err := json.MarshalIndent(map[string]string{"path": realPath}, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0644))
}

// WriteLegacySession writes a .session_<id>.json file holding a bare todo
// array into a project directory.
func WriteLegacySession(t *testing.T, projectDir, sessionID string, todos []models.Todo) {
	t.Helper()

	data, err := json.Marshal(todos)
	require.NoError(t, err)
	name := fmt.Sprintf(".session_%s.json", sessionID)
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, name), data, 0644))
}

// WriteEventLog writes a <sessionID>.jsonl transcript from raw JSON lines.
func WriteEventLog(t *testing.T, projectDir, sessionID string, lines ...string) {
	t.Helper()

	var body []byte
	for _, line := range lines {
		body = append(body, line...)
		body = append(body, '\n')
	}
	name := sessionID + ".jsonl"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, name), body, 0644))
}

// TodoEvent renders one transcript line carrying a todos array, the way the
// assistant tools journal todo-list updates.
func TodoEvent(ts time.Time, cwd string, todos []models.Todo) string {
	payload := map[string]interface{}{
		"type":      "todo",
		"timestamp": ts.Format(time.RFC3339),
		"todos":     todos,
	}
	if cwd != "" {
		payload["cwd"] = cwd
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// WriteTodoFile writes a flat <sessionID>-agent.json todo file. The payload
// may be a []models.Todo (bare array form) or any object form, such as
// map[string]interface{}{"todos": ..., "projectPath": ...}.
func WriteTodoFile(t *testing.T, todosRoot, sessionID string, payload interface{}) string {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	path := filepath.Join(todosRoot, sessionID+"-agent.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// WriteTodoMeta writes the <sessionID>-agent.meta.json sidecar.
func WriteTodoMeta(t *testing.T, todosRoot, sessionID, projectPath string) {
	t.Helper()

	data, err := json.Marshal(map[string]string{"projectPath": projectPath})
	require.NoError(t, err)
	path := filepath.Join(todosRoot, sessionID+"-agent.meta.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
}

// WriteCodexRollout writes a rollout transcript under the dated
// sessions/YYYY/MM/DD layout and returns its path.
func WriteCodexRollout(t *testing.T, sessionsRoot string, day time.Time, sessionID string, lines ...string) string {
	t.Helper()

	dayDir := filepath.Join(sessionsRoot, day.Format("2006"), day.Format("01"), day.Format("02"))
	require.NoError(t, os.MkdirAll(dayDir, 0755))

	var body []byte
	for _, line := range lines {
		body = append(body, line...)
		body = append(body, '\n')
	}
	name := fmt.Sprintf("rollout-%s-%s.jsonl", day.Format("2006-01-02T15-04-05"), sessionID)
	path := filepath.Join(dayDir, name)
	require.NoError(t, os.WriteFile(path, body, 0644))
	return path
}

// SessionMetaLine renders a Codex session_meta transcript line.
func SessionMetaLine(ts time.Time, sessionID, cwd string) string {
	payload := map[string]interface{}{
		"timestamp": ts.Format(time.RFC3339),
		"type":      "session_meta",
		"payload": map[string]string{
			"id":  sessionID,
			"cwd": cwd,
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// PlanUpdateLine renders a Codex plan_update transcript line. Steps map
// pairwise: steps[i] has statuses[i], defaulting to pending when statuses is
// shorter.
func PlanUpdateLine(ts time.Time, steps []string, statuses []string) string {
	plan := make([]map[string]string, len(steps))
	for i, step := range steps {
		status := "pending"
		if i < len(statuses) {
			status = statuses[i]
		}
		plan[i] = map[string]string{"step": step, "status": status}
	}
	payload := map[string]interface{}{
		"timestamp": ts.Format(time.RFC3339),
		"type":      "event_msg",
		"payload": map[string]interface{}{
			"type": "plan_update",
			"plan": plan,
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// Todos builds a todo list with the given totals; the first completed items
// are marked completed, the rest pending.
func Todos(total, completed int) []models.Todo {
	todos := make([]models.Todo, total)
	for i := range todos {
		status := models.TodoStatusPending
		if i < completed {
			status = models.TodoStatusCompleted
		}
		todos[i] = models.Todo{
			Content: fmt.Sprintf("task %d", i+1),
			Status:  status,
		}
	}
	return todos
}

// RandomSessionID returns a fresh UUID string, the shape providers use for
// session identifiers and event-log filenames.
func RandomSessionID() string {
	return uuid.NewString()
}

// Touch sets a file's modification time, for tests exercising recency rules.
func Touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, when, when))
}
