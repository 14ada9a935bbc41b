package sessions

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/logging"
	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/pathenc"
)

// Options configure a Loader. ProjectsRoot is required; everything else has
// a usable zero value. Roots are constructor parameters so tests inject their
// own trees; there is no global projects directory.
type Options struct {
	Provider       string        // name stamped on every produced project/session
	ProjectsRoot   string        // <home>/projects
	TodosRoot      string        // <home>/todos; empty disables the todos-tree scan
	Oracle         pathenc.Oracle // nil uses the real filesystem
	IgnorePatterns []string      // Docker-style globs over dir names and todo filenames
	SkipLegacy     bool          // do not parse .session_<id>.json files
	MaxDepth       int           // directory levels below a project dir to scan; <=0 means 1
	Logger         *logrus.Entry // nil uses the package logger
}

// Loader scans one provider's projects and todos trees and merges them into
// the canonical project/session model.
type Loader struct {
	provider     string
	projectsRoot string
	todosRoot    string
	oracle       pathenc.Oracle
	cache        *pathenc.MetadataCache
	recon        *pathenc.Reconstructor
	matcher      *patternmatcher.PatternMatcher
	skipLegacy   bool
	maxDepth     int
	log          *logrus.Entry
}

// NewLoader builds a Loader from options.
func NewLoader(opts Options) (*Loader, error) {
	if opts.ProjectsRoot == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "projects root is required")
	}

	oracle := opts.Oracle
	if oracle == nil {
		oracle = pathenc.NewOSOracle()
	}

	var matcher *patternmatcher.PatternMatcher
	if len(opts.IgnorePatterns) > 0 {
		m, err := patternmatcher.New(opts.IgnorePatterns)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid ignore patterns")
		}
		matcher = m
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("sessions")
	}

	cache := pathenc.NewMetadataCache(opts.ProjectsRoot)

	return &Loader{
		provider:     opts.Provider,
		projectsRoot: opts.ProjectsRoot,
		todosRoot:    opts.TodosRoot,
		oracle:       oracle,
		cache:        cache,
		recon:        pathenc.NewReconstructor(oracle, cache),
		matcher:      matcher,
		skipLegacy:   opts.SkipLegacy,
		maxDepth:     maxDepth,
		log:          log,
	}, nil
}

// Cache exposes the loader's metadata cache so repair flows can write
// through the same write-once sidecar logic.
func (l *Loader) Cache() *pathenc.MetadataCache {
	return l.cache
}

// dirSnapshot is one flattened directory's immutable scan result.
type dirSnapshot struct {
	flattenedDir string
	path         string // resolved real path
	pathExists   bool
	sessions     []models.Session
	latestEvent  time.Time // newest event timestamp seen in the dir's logs
}

// todoRecord is one todos-tree file's immutable scan result.
type todoRecord struct {
	session      models.Session
	explicitPath string // projectPath from the payload, unvalidated
	sidecarPath  string // projectPath from the meta sidecar, unvalidated
}

// anchoredRecord is a todoRecord with its project placement decided.
type anchoredRecord struct {
	session    models.Session
	path       string // empty when unanchored
	pathExists bool
	reason     string // why anchoring failed, when path is empty
}

// Load scans both trees and merges them. The returned report carries
// non-fatal diagnostics; the error is reserved for context cancellation and
// an unreadable projects root.
func (l *Loader) Load(ctx context.Context) ([]models.Project, *ScanReport, error) {
	report := &ScanReport{}

	dirs, err := l.scanProjectsTree(ctx, report)
	if err != nil {
		return nil, nil, err
	}

	records, err := l.scanTodosTree(ctx, report)
	if err != nil {
		return nil, nil, err
	}

	anchored := l.anchorTodoRecords(records, dirs)

	projects, unknowns := reduce(l.provider, dirs, anchored)
	report.UnknownSessions = unknowns

	l.validate(dirs, projects, report)

	return projects, report, nil
}

// scanProjectsTree reads every flattened child directory of the projects
// root into an immutable snapshot. A missing root is an empty result, not an
// error; the provider may simply not be installed.
func (l *Loader) scanProjectsTree(ctx context.Context, report *ScanReport) ([]dirSnapshot, error) {
	entries, err := os.ReadDir(l.projectsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IoFailed(l.projectsRoot, err)
	}

	var dirs []dirSnapshot
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if l.ignored(name) {
			report.SkippedItems++
			continue
		}
		report.ProjectDirs++

		snap, err := l.scanProjectDir(name)
		if err != nil {
			l.log.WithError(err).WithField("dir", name).Warn("Skipping unreadable project directory")
			report.MissedDirs = append(report.MissedDirs, name)
			continue
		}
		dirs = append(dirs, snap)
	}

	return dirs, nil
}

// scanProjectDir parses the session files of one flattened directory and
// resolves its real project path.
func (l *Loader) scanProjectDir(flattenedDir string) (dirSnapshot, error) {
	dirPath := filepath.Join(l.projectsRoot, flattenedDir)

	var (
		sessions    []models.Session
		latestEvent time.Time
		cwdHint     string
	)

	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if depth < l.maxDepth {
					if err := walk(path, depth+1); err != nil {
						l.log.WithError(err).WithField("dir", path).Debug("Skipping unreadable subdirectory")
					}
				}
				continue
			}

			session, log, ok := l.parseSessionFile(path, entry)
			if !ok {
				continue
			}
			sessions = append(sessions, session)
			if log.LastSeen.After(latestEvent) {
				latestEvent = log.LastSeen
			}
			if cwdHint == "" && log.Cwd != "" {
				cwdHint = log.Cwd
			}
		}
		return nil
	}

	if err := walk(dirPath, 1); err != nil {
		return dirSnapshot{}, errors.IoFailed(dirPath, err)
	}

	path, exists := l.resolveDir(flattenedDir, cwdHint)
	for i := range sessions {
		sessions[i].ProjectPath = path
	}

	return dirSnapshot{
		flattenedDir: flattenedDir,
		path:         path,
		pathExists:   exists,
		sessions:     sessions,
		latestEvent:  latestEvent,
	}, nil
}

// parseSessionFile turns one recognized file inside a project directory into
// a session. Unrecognized names and unparsable files are skipped.
func (l *Loader) parseSessionFile(path string, entry os.DirEntry) (models.Session, eventLog, bool) {
	name := entry.Name()

	if id, ok := eventLogSessionID(name); ok {
		log, err := parseEventLog(path)
		if err != nil {
			l.log.WithError(err).WithField("file", path).Warn("Skipping unreadable event log")
			return models.Session{}, eventLog{}, false
		}
		created, updated := log.FirstSeen, log.LastSeen
		if created.IsZero() || updated.IsZero() {
			if info, err := entry.Info(); err == nil {
				if created.IsZero() {
					created = info.ModTime()
				}
				if updated.IsZero() {
					updated = info.ModTime()
				}
			}
		}
		return models.Session{
			ID:        id,
			Provider:  l.provider,
			FilePath:  path,
			Todos:     log.Todos,
			CreatedAt: created,
			UpdatedAt: updated,
		}, log, true
	}

	if id, ok := legacySessionID(name); ok && !l.skipLegacy {
		payload, err := readTodoPayload(path)
		if err != nil {
			l.log.WithError(err).WithField("file", path).Warn("Skipping malformed legacy session file")
			return models.Session{}, eventLog{}, false
		}
		var modTime time.Time
		if info, err := entry.Info(); err == nil {
			modTime = info.ModTime()
		}
		return models.Session{
			ID:        id,
			Provider:  l.provider,
			FilePath:  path,
			Todos:     payload.Todos,
			CreatedAt: modTime,
			UpdatedAt: modTime,
		}, eventLog{}, true
	}

	return models.Session{}, eventLog{}, false
}

// resolveDir maps a flattened directory name to a real path. When every
// strategy produced a path that is not on disk, a validated cwd marker from
// the directory's own event logs takes over and is written through to the
// metadata cache.
func (l *Loader) resolveDir(flattenedDir, cwdHint string) (string, bool) {
	res, err := l.recon.Reconstruct(flattenedDir)
	if err != nil {
		return models.UnknownProjectPath, false
	}

	if !res.PathExists && cwdHint != "" &&
		pathenc.Flatten(cwdHint) == flattenedDir && l.oracle.Exists(cwdHint) {
		l.log.WithFields(logrus.Fields{
			"dir": flattenedDir,
			"cwd": cwdHint,
		}).Debug("Resolved project path from event-log cwd marker")
		_ = l.cache.Put(flattenedDir, cwdHint)
		return cwdHint, true
	}

	return res.Path, res.PathExists
}

// scanTodosTree reads the flat todos directory into immutable records.
// The tree is optional enrichment; a missing or unreadable root degrades to
// an empty result.
func (l *Loader) scanTodosTree(ctx context.Context, report *ScanReport) ([]todoRecord, error) {
	if l.todosRoot == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(l.todosRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.WithError(err).WithField("dir", l.todosRoot).Warn("Todos root unreadable, skipping todos scan")
		}
		return nil, nil
	}

	// Sidecars first so records can pick up their hints in one pass.
	sidecars := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := metaSidecarSessionID(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(l.todosRoot, entry.Name())
		projectPath, err := readMetaSidecar(path)
		if err != nil {
			l.log.WithError(err).WithField("file", path).Debug("Skipping malformed meta sidecar")
			continue
		}
		if projectPath != "" {
			sidecars[id] = projectPath
		}
	}

	var records []todoRecord
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if l.ignored(name) {
			report.SkippedItems++
			continue
		}
		id, ok := todoFileSessionID(name)
		if !ok {
			continue
		}

		path := filepath.Join(l.todosRoot, name)
		payload, err := readTodoPayload(path)
		if err != nil {
			l.log.WithError(err).WithField("file", path).Warn("Skipping malformed todo file")
			continue
		}

		var modTime time.Time
		if info, err := entry.Info(); err == nil {
			modTime = info.ModTime()
		}

		records = append(records, todoRecord{
			session: models.Session{
				ID:        id,
				Provider:  l.provider,
				FilePath:  path,
				Todos:     payload.Todos,
				CreatedAt: modTime,
				UpdatedAt: modTime,
			},
			explicitPath: payload.ProjectPath,
			sidecarPath:  sidecars[id],
		})
	}

	return records, nil
}

// anchorTodoRecords decides each todos-tree session's project placement:
// an explicit projectPath that validates on disk, then the sidecar hint,
// then reverse lookup through the scanned project directories, else the
// session is unanchored.
func (l *Loader) anchorTodoRecords(records []todoRecord, dirs []dirSnapshot) []anchoredRecord {
	bySession := make(map[string]*dirSnapshot)
	for i := range dirs {
		for _, s := range dirs[i].sessions {
			if _, taken := bySession[s.ID]; !taken {
				bySession[s.ID] = &dirs[i]
			}
		}
	}

	anchored := make([]anchoredRecord, 0, len(records))
	for _, rec := range records {
		switch {
		case rec.explicitPath != "" && l.oracle.Exists(rec.explicitPath):
			anchored = append(anchored, anchoredRecord{
				session:    rec.session,
				path:       rec.explicitPath,
				pathExists: true,
			})
		case rec.sidecarPath != "":
			anchored = append(anchored, anchoredRecord{
				session:    rec.session,
				path:       rec.sidecarPath,
				pathExists: l.oracle.Exists(rec.sidecarPath),
			})
		default:
			if dir, ok := bySession[rec.session.ID]; ok {
				anchored = append(anchored, anchoredRecord{
					session:    rec.session,
					path:       dir.path,
					pathExists: dir.pathExists,
				})
				continue
			}
			reason := "no explicit projectPath, sidecar or matching project directory"
			if rec.explicitPath != "" {
				reason = "projectPath does not resolve on disk"
			}
			anchored = append(anchored, anchoredRecord{
				session: rec.session,
				reason:  reason,
			})
		}
	}

	return anchored
}

// reduce merges the two immutable snapshots into projects keyed by resolved
// real path. It is a pure function of its inputs: conflicts are decided per
// session (larger todo list wins, newer lastModified breaks ties) and the
// winner's placement assigns the session to exactly one project.
func reduce(provider string, dirs []dirSnapshot, anchored []anchoredRecord) ([]models.Project, []models.UnknownSession) {
	type placed struct {
		session models.Session
		path    string
	}

	// Decide the winning version of every session id. Projects-tree versions
	// are considered first, so on a full tie the projects tree wins.
	winners := make(map[string]placed)
	order := make([]string, 0, len(anchored))
	consider := func(s models.Session, path string) {
		cur, seen := winners[s.ID]
		if !seen {
			winners[s.ID] = placed{session: s, path: path}
			order = append(order, s.ID)
			return
		}
		if models.PreferSession(s, cur.session) {
			winners[s.ID] = placed{session: s, path: path}
		}
	}
	for _, dir := range dirs {
		for _, s := range dir.sessions {
			consider(s, dir.path)
		}
	}

	var unknowns []models.UnknownSession
	for _, rec := range anchored {
		if rec.path == "" {
			unknowns = append(unknowns, models.UnknownSession{
				SessionID: rec.session.ID,
				FilePath:  rec.session.FilePath,
				Reason:    rec.reason,
			})
			consider(rec.session, models.UnknownProjectPath)
			continue
		}
		consider(rec.session, rec.path)
	}

	// Seed a placeholder project for every flattened directory, then place
	// the winning sessions. Projects created here are never re-keyed.
	projects := make(map[string]*models.Project)
	var pathOrder []string
	ensure := func(path string, flattenedDir string, exists bool) *models.Project {
		if p, ok := projects[path]; ok {
			if p.FlattenedDir == "" {
				p.FlattenedDir = flattenedDir
			}
			p.PathExists = p.PathExists || exists
			return p
		}
		p := &models.Project{
			Path:         path,
			Provider:     provider,
			FlattenedDir: flattenedDir,
			PathExists:   exists,
		}
		projects[path] = p
		pathOrder = append(pathOrder, path)
		return p
	}

	for _, dir := range dirs {
		p := ensure(dir.path, dir.flattenedDir, dir.pathExists)
		if dir.latestEvent.After(p.MostRecentTodoDate) {
			p.MostRecentTodoDate = dir.latestEvent
		}
	}

	existsByPath := make(map[string]bool)
	for _, rec := range anchored {
		if rec.path != "" && rec.pathExists {
			existsByPath[rec.path] = true
		}
	}

	for _, id := range order {
		w := winners[id]
		p := ensure(w.path, "", existsByPath[w.path])
		s := w.session
		s.ProjectPath = p.Path
		p.Sessions = append(p.Sessions, s)
	}

	out := make([]models.Project, 0, len(projects))
	for _, path := range pathOrder {
		p := projects[path]
		sort.Slice(p.Sessions, func(i, j int) bool {
			a, b := p.Sessions[i], p.Sessions[j]
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.ID < b.ID
		})
		p.RecomputeStats()
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out, unknowns
}

// validate cross-checks the loaded projects against the scanned directories
// and records any directory that failed to map. Diagnostic only.
func (l *Loader) validate(dirs []dirSnapshot, projects []models.Project, report *ScanReport) {
	byPath := make(map[string]struct{}, len(projects))
	loaded := 0
	for _, p := range projects {
		byPath[p.Path] = struct{}{}
		if p.Path != models.UnknownProjectPath {
			loaded++
		}
	}
	report.LoadedProjects = loaded

	for _, dir := range dirs {
		if _, ok := byPath[dir.path]; !ok {
			report.MissedDirs = append(report.MissedDirs, dir.flattenedDir)
		}
	}

	if len(report.MissedDirs) > 0 {
		l.log.WithFields(logrus.Fields{
			"dirs":   report.ProjectDirs,
			"loaded": report.LoadedProjects,
			"missed": len(report.MissedDirs),
		}).Warn("Some project directories did not map to loaded projects")
	}
}

// ignored reports whether a name matches the configured ignore patterns.
func (l *Loader) ignored(name string) bool {
	if l.matcher == nil {
		return false
	}
	matched, err := l.matcher.MatchesOrParentMatches(name)
	if err != nil {
		return false
	}
	return matched
}
