package codex

import (
	"bufio"
	"context"
	"os"

	"github.com/tidwall/gjson"

	"github.com/taskdeck/core/pkg/models"
)

// workspaceKeys are the common spellings of a working-directory field found
// in rollout event payloads, tried after the canonical cwd marker.
var workspaceKeys = []string{"workingDirectory", "working_dir", "workspace", "projectPath"}

// RepairMetadata implements providers.Adapter. A rollout without a usable
// session_meta line gets its project path recovered from sibling transcripts
// of the same session or from content markers, persisted as a .meta.json
// sidecar next to the transcript. With dryRun set nothing is written.
func (a *Adapter) RepairMetadata(ctx context.Context, dryRun bool) (models.RepairReport, error) {
	records, err := a.scan(ctx)
	if err != nil {
		return models.RepairReport{}, err
	}

	// Resumed sessions leave one transcript per run; any of them carrying a
	// meta line can repair the ones that do not.
	cwdByID := make(map[string]string)
	for _, rec := range records {
		if rec.cwd != "" && cwdByID[rec.session.ID] == "" {
			cwdByID[rec.session.ID] = rec.cwd
		}
	}

	report := models.RepairReport{Provider: Provider}
	record := func(action models.RepairAction) {
		report.Details = append(report.Details, action)
		if action.Method == models.RepairFailed {
			report.UnknownCount++
			return
		}
		report.Planned++
		if action.Written {
			report.Written++
		}
	}

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return models.RepairReport{}, ctx.Err()
		default:
		}
		if rec.cwd != "" {
			continue
		}
		record(a.repairRollout(rec, cwdByID, dryRun))
	}

	return report, nil
}

func (a *Adapter) repairRollout(rec record, cwdByID map[string]string, dryRun bool) models.RepairAction {
	action := models.RepairAction{SessionID: rec.session.ID}

	exists := func(candidate string) bool {
		return candidate != "" && a.oracle.Exists(candidate)
	}

	// A sidecar may have appeared since the scan.
	if path := readRolloutSidecar(rec.path); exists(path) {
		return a.finishRepair(action, rec.path, path, models.RepairFromSidecar, dryRun)
	}
	if path := cwdByID[rec.session.ID]; exists(path) {
		return a.finishRepair(action, rec.path, path, models.RepairFromTranscript, dryRun)
	}
	if path := scanRolloutForKeys(rec.path, exists, "cwd"); path != "" {
		return a.finishRepair(action, rec.path, path, models.RepairFromCwdMarker, dryRun)
	}
	if path := scanRolloutForKeys(rec.path, exists, workspaceKeys...); path != "" {
		return a.finishRepair(action, rec.path, path, models.RepairFromWorkspaceKey, dryRun)
	}

	action.Method = models.RepairFailed
	action.Reason = "no sidecar, sibling transcript or content marker"
	return action
}

func (a *Adapter) finishRepair(action models.RepairAction, rolloutPath, path string, method models.RepairMethod, dryRun bool) models.RepairAction {
	action.ResolvedPath = path
	action.Method = method
	if dryRun {
		return action
	}
	if err := writeRolloutSidecar(rolloutPath, path); err != nil {
		action.Method = models.RepairFailed
		action.Reason = "failed to write sidecar: " + err.Error()
		return action
	}
	action.Written = true
	return action
}

// scanRolloutForKeys searches a transcript line by line for the first
// accepted value under any of the given keys, checked both at the top level
// and inside the event payload.
func scanRolloutForKeys(path string, accept func(string) bool, keys ...string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, rolloutInitialBuf), rolloutMaxBuf)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !gjson.ValidBytes(line) {
			continue
		}
		for _, key := range keys {
			if value := gjson.GetBytes(line, key).String(); accept(value) {
				return value
			}
			if value := gjson.GetBytes(line, "payload."+key).String(); accept(value) {
				return value
			}
		}
	}
	return ""
}
