package claude

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/pathenc"
)

// workspaceKeys are the common spellings of a working-directory field found
// in transcripts and tool payloads, tried after the canonical cwd marker.
var workspaceKeys = []string{"workingDirectory", "working_dir", "workspace", "projectPath"}

// RepairMetadata implements providers.Adapter. It re-runs the path
// resolution strategies plus the content heuristics over every unresolved
// item and persists each recovered identity: metadata.json for a flattened
// directory, the -agent.meta.json sidecar for a todos-tree session. With
// dryRun set nothing is written and the report carries the plan.
func (a *Adapter) RepairMetadata(ctx context.Context, dryRun bool) (models.RepairReport, error) {
	projects, scan, err := a.loader.Load(ctx)
	if err != nil {
		return models.RepairReport{}, err
	}

	historyByID, historyCwds := readHistory(a.historyPath)
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

	for _, p := range projects {
		select {
		case <-ctx.Done():
			return models.RepairReport{}, ctx.Err()
		default:
		}
		if p.FlattenedDir == "" || p.PathExists {
			continue
		}
		if _, ok := a.loader.Cache().Get(p.FlattenedDir); ok {
			// Identity is already recorded; the path itself is gone from
			// disk. Nothing to repair.
			continue
		}
		record(a.repairDir(p.FlattenedDir, historyCwds, dryRun))
	}

	for _, u := range scan.UnknownSessions {
		select {
		case <-ctx.Done():
			return models.RepairReport{}, ctx.Err()
		default:
		}
		record(a.repairSession(u, historyByID, dryRun))
	}

	return report, nil
}

// repairDir tries to recover the real path of one flattened directory whose
// reconstruction did not land on an existing path. A recovered path must
// flatten back to the directory name; anything else belongs to a different
// project.
func (a *Adapter) repairDir(flattenedDir string, historyCwds []string, dryRun bool) models.RepairAction {
	action := models.RepairAction{FlattenedDir: flattenedDir}

	dirPath := filepath.Join(a.projectsRoot, flattenedDir)
	accept := func(candidate string) bool {
		return candidate != "" &&
			pathenc.Flatten(candidate) == flattenedDir &&
			a.oracle.Exists(candidate)
	}

	if path := scanDirForKeys(dirPath, accept, "cwd"); path != "" {
		return a.finishDirRepair(action, path, models.RepairFromCwdMarker, dryRun)
	}
	if path := scanDirForKeys(dirPath, accept, workspaceKeys...); path != "" {
		return a.finishDirRepair(action, path, models.RepairFromWorkspaceKey, dryRun)
	}
	for _, cwd := range historyCwds {
		if accept(cwd) {
			return a.finishDirRepair(action, cwd, models.RepairFromSessionLog, dryRun)
		}
	}

	action.Method = models.RepairFailed
	action.Reason = "no content marker or session log entry matches the directory name"
	return action
}

func (a *Adapter) finishDirRepair(action models.RepairAction, path string, method models.RepairMethod, dryRun bool) models.RepairAction {
	action.ResolvedPath = path
	action.Method = method
	if dryRun {
		return action
	}
	if err := a.loader.Cache().Put(action.FlattenedDir, path); err != nil {
		action.Method = models.RepairFailed
		action.Reason = "failed to write metadata: " + err.Error()
		return action
	}
	action.Written = true
	return action
}

// repairSession tries to recover the project path of one unanchored
// todos-tree session.
func (a *Adapter) repairSession(u models.UnknownSession, historyByID map[string]string, dryRun bool) models.RepairAction {
	action := models.RepairAction{SessionID: u.SessionID}

	exists := func(candidate string) bool {
		return candidate != "" && a.oracle.Exists(candidate)
	}

	// Sidecar first: one may have appeared since the scan.
	if path := a.sidecarProjectPath(u.SessionID); exists(path) {
		return a.finishSessionRepair(action, path, models.RepairFromSidecar, dryRun)
	}

	// A transcript named after the session pins it to a flattened directory;
	// the directory's own resolution then carries over.
	transcript := a.findTranscript(u.SessionID)
	if transcript != "" {
		if res, err := a.recon.Reconstruct(filepath.Base(filepath.Dir(transcript))); err == nil && res.PathExists {
			return a.finishSessionRepair(action, res.Path, models.RepairFromTranscript, dryRun)
		}
	}

	// Content heuristics over whatever files this session left behind.
	files := []string{u.FilePath}
	if transcript != "" {
		files = append(files, transcript)
	}
	if path := scanFilesForKeys(files, exists, "cwd"); path != "" {
		return a.finishSessionRepair(action, path, models.RepairFromCwdMarker, dryRun)
	}
	if path := scanFilesForKeys(files, exists, workspaceKeys...); path != "" {
		return a.finishSessionRepair(action, path, models.RepairFromWorkspaceKey, dryRun)
	}

	if path := historyByID[u.SessionID]; exists(path) {
		return a.finishSessionRepair(action, path, models.RepairFromSessionLog, dryRun)
	}

	action.Method = models.RepairFailed
	action.Reason = "no sidecar, transcript, content marker or session log entry"
	return action
}

func (a *Adapter) finishSessionRepair(action models.RepairAction, path string, method models.RepairMethod, dryRun bool) models.RepairAction {
	action.ResolvedPath = path
	action.Method = method
	if dryRun {
		return action
	}
	if err := a.writeSessionSidecar(action.SessionID, path); err != nil {
		action.Method = models.RepairFailed
		action.Reason = "failed to write sidecar: " + err.Error()
		return action
	}
	// Opportunistic: if the path has a flattened directory, record it there
	// too. Put no-ops when the directory is absent or already annotated.
	_ = a.loader.Cache().Put(pathenc.Flatten(path), path)
	action.Written = true
	return action
}

// sidecarProjectPath reads the session's -agent.meta.json sidecar, if any.
func (a *Adapter) sidecarProjectPath(sessionID string) string {
	data, err := os.ReadFile(filepath.Join(a.todosRoot, sessionID+"-agent.meta.json"))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "projectPath").String()
}

// writeSessionSidecar persists a recovered project path next to the
// session's todo file. Existing sidecars are never overwritten.
func (a *Adapter) writeSessionSidecar(sessionID, path string) error {
	target := filepath.Join(a.todosRoot, sessionID+"-agent.meta.json")
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	data, err := json.Marshal(map[string]string{"projectPath": path})
	if err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}

// findTranscript looks for projects/*/<id>.jsonl and returns its path.
func (a *Adapter) findTranscript(sessionID string) string {
	entries, err := os.ReadDir(a.projectsRoot)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(a.projectsRoot, entry.Name(), sessionID+".jsonl")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// scanDirForKeys runs the content search over every JSON/JSONL file directly
// inside dir.
func scanDirForKeys(dir string, accept func(string) bool, keys ...string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".jsonl") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return scanFilesForKeys(files, accept, keys...)
}

// scanFilesForKeys searches files for the first accepted value under any of
// the given top-level keys. JSONL files are scanned line by line; plain JSON
// files as one document.
func scanFilesForKeys(files []string, accept func(string) bool, keys ...string) string {
	for _, file := range files {
		if file == "" {
			continue
		}
		if strings.HasSuffix(file, ".jsonl") {
			if path := scanLinesForKeys(file, accept, keys); path != "" {
				return path
			}
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		for _, key := range keys {
			if value := gjson.GetBytes(data, key).String(); accept(value) {
				return value
			}
		}
	}
	return ""
}

func scanLinesForKeys(file string, accept func(string) bool, keys []string) string {
	f, err := os.Open(file)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !gjson.Valid(line) {
			continue
		}
		for _, key := range keys {
			if value := gjson.Get(line, key).String(); accept(value) {
				return value
			}
		}
	}
	return ""
}
