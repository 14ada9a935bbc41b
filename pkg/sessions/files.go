package sessions

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/pkg/models"
)

// legacySessionRe matches the old per-project session files:
// .session_<id>.json
var legacySessionRe = regexp.MustCompile(`^\.session_([A-Za-z0-9_-]+)\.json$`)

// todoFileRe matches flat todo files: <sessionId>-agent[-<suffix>].json.
// The meta sidecar (<sessionId>-agent.meta.json) does not match because its
// tail is ".meta.json", not ".json" directly after the agent part.
var todoFileRe = regexp.MustCompile(`^(.+?)-agent(?:-[A-Za-z0-9_-]+)?\.json$`)

// metaSidecarSuffix is the tail of a todo-file metadata sidecar.
const metaSidecarSuffix = "-agent.meta.json"

// eventLogSessionID extracts the session id from a <uuid>.jsonl event log
// filename. Anything that is not a UUID-named .jsonl file is rejected.
func eventLogSessionID(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, ".jsonl")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(base); err != nil {
		return "", false
	}
	return base, true
}

// legacySessionID extracts the session id from a .session_<id>.json filename.
func legacySessionID(name string) (string, bool) {
	m := legacySessionRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// todoFileSessionID extracts the session id from a todo filename.
func todoFileSessionID(name string) (string, bool) {
	if strings.HasSuffix(name, metaSidecarSuffix) {
		return "", false
	}
	m := todoFileRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// metaSidecarSessionID extracts the session id from a meta sidecar filename.
func metaSidecarSessionID(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, metaSidecarSuffix)
	if !ok || base == "" {
		return "", false
	}
	return base, true
}

// todoPayload is the decoded body of a legacy session file or a flat todo
// file: either a bare JSON array of todos or an object wrapping one.
type todoPayload struct {
	Todos       []models.Todo
	ProjectPath string
}

// parseTodoPayload decodes a todo file body. Both shapes are accepted:
//
//	[ {"content": ...}, ... ]
//	{ "todos": [...], "projectPath": "/real/path" }
func parseTodoPayload(path string, data []byte) (todoPayload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return todoPayload{}, nil
	}

	if trimmed[0] == '[' {
		var todos []models.Todo
		if err := json.Unmarshal(trimmed, &todos); err != nil {
			return todoPayload{}, errors.ParseFailed(path, err)
		}
		return todoPayload{Todos: todos}, nil
	}

	var wrapped struct {
		Todos       []models.Todo `json:"todos"`
		ProjectPath string        `json:"projectPath"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return todoPayload{}, errors.ParseFailed(path, err)
	}
	return todoPayload{Todos: wrapped.Todos, ProjectPath: wrapped.ProjectPath}, nil
}

// readTodoPayload reads and decodes one todo file.
func readTodoPayload(path string) (todoPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return todoPayload{}, errors.IoFailed(path, err)
	}
	return parseTodoPayload(path, data)
}

// eventLog is the distilled content of one <uuid>.jsonl transcript.
type eventLog struct {
	Todos     []models.Todo // latest todo-bearing event wins; nil when none seen
	SawTodos  bool
	Cwd       string    // first working-directory marker in the log
	FirstSeen time.Time // timestamp of the first parsable event
	LastSeen  time.Time // timestamp of the last parsable event
}

// Event logs can carry multi-megabyte single lines (inlined file contents),
// so the scanner buffer is raised well past the bufio default.
const (
	eventLogInitialBuf = 64 * 1024
	eventLogMaxBuf     = 16 * 1024 * 1024
)

// parseEventLog scans a JSONL transcript for todo state, timestamps and a
// working-directory marker. Unparsable lines are skipped; the log is a
// best-effort source, not a contract.
func parseEventLog(path string) (eventLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return eventLog{}, errors.IoFailed(path, err)
	}
	defer f.Close()

	var out eventLog

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, eventLogInitialBuf), eventLogMaxBuf)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			continue
		}

		if ts, ok := parseEventTimestamp(line); ok {
			if out.FirstSeen.IsZero() {
				out.FirstSeen = ts
			}
			if ts.After(out.LastSeen) {
				out.LastSeen = ts
			}
		}

		if out.Cwd == "" {
			if cwd := gjson.GetBytes(line, "cwd"); cwd.Type == gjson.String && cwd.Str != "" {
				out.Cwd = cwd.Str
			}
		}

		todos := gjson.GetBytes(line, "todos")
		if !todos.IsArray() && gjson.GetBytes(line, "type").Str == "todo" {
			todos = gjson.GetBytes(line, "content")
		}
		if todos.IsArray() {
			var parsed []models.Todo
			if err := json.Unmarshal([]byte(todos.Raw), &parsed); err == nil {
				out.Todos = parsed
				out.SawTodos = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return out, errors.ParseFailed(path, err)
	}

	return out, nil
}

// parseEventTimestamp pulls the event timestamp out of a JSONL line,
// accepting the RFC3339 and epoch spellings providers use.
func parseEventTimestamp(line []byte) (time.Time, bool) {
	ts := gjson.GetBytes(line, "timestamp")
	if !ts.Exists() {
		return time.Time{}, false
	}

	var et models.EventTime
	if err := json.Unmarshal([]byte(ts.Raw), &et); err != nil || et.IsZero() {
		return time.Time{}, false
	}
	return et.Time, true
}

// metaSidecar is the body of a <sessionId>-agent.meta.json file.
type metaSidecar struct {
	ProjectPath string `json:"projectPath"`
}

// readMetaSidecar reads the projectPath hint from a sidecar file.
func readMetaSidecar(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.IoFailed(path, err)
	}
	var meta metaSidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", errors.ParseFailed(path, err)
	}
	return meta.ProjectPath, nil
}
