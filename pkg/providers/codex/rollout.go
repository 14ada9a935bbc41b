// Package codex adapts the Codex-style provider layout: dated rollout
// transcripts under <home>/sessions/YYYY/MM/DD, with project identity carried
// by each transcript's session_meta line.
package codex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/pkg/models"
)

// rolloutRe matches rollout-<timestamp>-<uuid>.jsonl filenames; the trailing
// standard UUID (8-4-4-4-12 hex) is the fallback session id.
var rolloutRe = regexp.MustCompile(
	`^rollout-.*-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-` +
		`[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})\.jsonl$`)

// metaSidecarExt replaces the .jsonl extension on a rollout's repair sidecar.
const metaSidecarExt = ".meta.json"

// rolloutSessionID extracts the trailing UUID from a rollout filename.
func rolloutSessionID(name string) (string, bool) {
	m := rolloutRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// sidecarPath maps a rollout path to its repair sidecar path.
func sidecarPath(rolloutPath string) string {
	return strings.TrimSuffix(rolloutPath, ".jsonl") + metaSidecarExt
}

// isDigits reports whether s is non-empty and all ASCII digits, the shape of
// the year/month/day bucket names.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// walkDayDirs traverses the sessions root's year/month/day structure and
// calls fn for each day directory. fn returns false to stop the walk. A
// missing root is a no-op; the provider may not be installed.
func walkDayDirs(root string, fn func(dayPath string) bool) {
	years, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, year := range years {
		if !year.IsDir() || !isDigits(year.Name()) {
			continue
		}
		yearPath := filepath.Join(root, year.Name())
		months, err := os.ReadDir(yearPath)
		if err != nil {
			continue
		}
		for _, month := range months {
			if !month.IsDir() || !isDigits(month.Name()) {
				continue
			}
			monthPath := filepath.Join(yearPath, month.Name())
			days, err := os.ReadDir(monthPath)
			if err != nil {
				continue
			}
			for _, day := range days {
				if !day.IsDir() || !isDigits(day.Name()) {
					continue
				}
				if !fn(filepath.Join(monthPath, day.Name())) {
					return
				}
			}
		}
	}
}

// rollout is the distilled content of one transcript.
type rollout struct {
	sessionID string // session_meta payload id; empty when the meta line is missing
	cwd       string // session_meta payload cwd
	todos     []models.Todo
	firstSeen time.Time
	lastSeen  time.Time
}

// Rollout lines can inline large tool payloads, so the scanner buffer is
// raised well past the bufio default.
const (
	rolloutInitialBuf = 64 * 1024
	rolloutMaxBuf     = 16 * 1024 * 1024
)

// parseRollout scans one transcript. The session_meta line (id, cwd) wins
// first; plan_update events map to todo lists with the latest event winning.
// Unparsable lines are skipped.
func parseRollout(path string) (rollout, error) {
	f, err := os.Open(path)
	if err != nil {
		return rollout{}, errors.IoFailed(path, err)
	}
	defer f.Close()

	var out rollout

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, rolloutInitialBuf), rolloutMaxBuf)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			continue
		}

		if ts, ok := lineTimestamp(line); ok {
			if out.firstSeen.IsZero() {
				out.firstSeen = ts
			}
			if ts.After(out.lastSeen) {
				out.lastSeen = ts
			}
		}

		if gjson.GetBytes(line, "type").Str == "session_meta" {
			if out.sessionID == "" {
				out.sessionID = gjson.GetBytes(line, "payload.id").String()
			}
			if out.cwd == "" {
				out.cwd = gjson.GetBytes(line, "payload.cwd").String()
			}
			continue
		}

		plan := gjson.GetBytes(line, "payload.plan")
		if !plan.IsArray() && gjson.GetBytes(line, "type").Str == "plan_update" {
			plan = gjson.GetBytes(line, "plan")
		}
		if plan.IsArray() {
			if todos := planTodos(plan); todos != nil {
				out.todos = todos
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return out, errors.ParseFailed(path, err)
	}

	return out, nil
}

// planTodos converts a plan_update step list into the canonical todo model.
func planTodos(plan gjson.Result) []models.Todo {
	var todos []models.Todo
	plan.ForEach(func(_, step gjson.Result) bool {
		content := step.Get("step").String()
		if content == "" {
			content = step.Get("content").String()
		}
		todos = append(todos, models.Todo{
			Content: content,
			Status:  planStatus(step.Get("status").String()),
		})
		return true
	})
	return todos
}

// planStatus maps a plan step status onto the todo status vocabulary.
// Unrecognized values read as pending, the conservative interpretation.
func planStatus(s string) models.TodoStatus {
	switch s {
	case "completed", "complete", "done":
		return models.TodoStatusCompleted
	case "in_progress", "inProgress":
		return models.TodoStatusInProgress
	default:
		return models.TodoStatusPending
	}
}

// lineTimestamp pulls the event timestamp out of a JSONL line, accepting the
// RFC3339 and epoch spellings.
func lineTimestamp(line []byte) (time.Time, bool) {
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

// readRolloutSidecar reads a previously repaired project path for a rollout,
// if any.
func readRolloutSidecar(rolloutPath string) string {
	data, err := os.ReadFile(sidecarPath(rolloutPath))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "projectPath").String()
}

// writeRolloutSidecar persists a recovered project path next to the rollout.
// Existing sidecars are never overwritten.
func writeRolloutSidecar(rolloutPath, projectPath string) error {
	target := sidecarPath(rolloutPath)
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	data, err := json.Marshal(map[string]string{"projectPath": projectPath})
	if err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}
