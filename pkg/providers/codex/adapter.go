package codex

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/taskdeck/core/config"
	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/logging"
	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/pathenc"
	"github.com/taskdeck/core/pkg/paths"
	"github.com/taskdeck/core/pkg/profiling"
	"github.com/taskdeck/core/pkg/providers"
)

// Provider is the stable identifier this adapter registers under.
const Provider = "codex"

// watchDepth covers the year/month/day buckets under the sessions root.
const watchDepth = 3

// Options configure the adapter. The zero value targets the platform default
// home.
type Options struct {
	Home           string // provider home; empty resolves the platform default
	IgnorePatterns []string
	Debounce       time.Duration
	PollInterval   time.Duration
	Oracle         pathenc.Oracle
	Logger         *logrus.Entry
}

// Adapter implements providers.Adapter over a Codex-style home directory.
type Adapter struct {
	home         string
	sessionsRoot string
	oracle       pathenc.Oracle
	matcher      *patternmatcher.PatternMatcher
	debounce     time.Duration
	pollInterval time.Duration
	log          *logrus.Entry
}

// New builds an adapter from options.
func New(opts Options) (*Adapter, error) {
	home := opts.Home
	if home == "" {
		home = paths.CodexHome()
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

	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("codex")
	}

	return &Adapter{
		home:         home,
		sessionsRoot: filepath.Join(home, "sessions"),
		oracle:       oracle,
		matcher:      matcher,
		debounce:     opts.Debounce,
		pollInterval: opts.PollInterval,
		log:          log,
	}, nil
}

// NewFromConfig builds an adapter from the loaded configuration.
func NewFromConfig(cfg *config.Config) (*Adapter, error) {
	home, err := paths.Expand(cfg.Codex().HomeDir(paths.CodexHome()))
	if err != nil {
		return nil, err
	}
	return New(Options{
		Home:           home,
		IgnorePatterns: cfg.ScanIgnore(),
		Debounce:       cfg.WatchDebounce(),
		PollInterval:   cfg.WatchPollInterval(),
	})
}

// Name implements providers.Adapter.
func (a *Adapter) Name() string { return Provider }

// Home returns the resolved provider home directory.
func (a *Adapter) Home() string { return a.home }

// record is one scanned rollout with its resolved identity.
type record struct {
	path    string
	session models.Session
	cwd     string // empty means unanchored
}

// scan walks the dated transcript tree into immutable records. Context is
// checked between day directories, not mid-file.
func (a *Adapter) scan(ctx context.Context) ([]record, error) {
	var records []record
	var ctxErr error

	walkDayDirs(a.sessionsRoot, func(dayPath string) bool {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			return false
		default:
		}

		entries, err := os.ReadDir(dayPath)
		if err != nil {
			a.log.WithError(err).WithField("dir", dayPath).Warn("Skipping unreadable day directory")
			return true
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			fallbackID, ok := rolloutSessionID(name)
			if !ok {
				continue
			}
			if a.ignored(name) {
				continue
			}

			path := filepath.Join(dayPath, name)
			roll, err := parseRollout(path)
			if err != nil {
				a.log.WithError(err).WithField("file", path).Warn("Skipping unreadable rollout")
				continue
			}

			id := roll.sessionID
			if id == "" {
				id = fallbackID
			}
			cwd := roll.cwd
			if cwd == "" {
				cwd = readRolloutSidecar(path)
			}

			created, updated := roll.firstSeen, roll.lastSeen
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

			records = append(records, record{
				path: path,
				session: models.Session{
					ID:        id,
					Provider:  Provider,
					FilePath:  path,
					Todos:     roll.todos,
					CreatedAt: created,
					UpdatedAt: updated,
				},
				cwd: cwd,
			})
		}
		return true
	})

	return records, ctxErr
}

// FetchProjects implements providers.Adapter.
func (a *Adapter) FetchProjects(ctx context.Context) ([]models.Project, error) {
	defer profiling.Start("codex.FetchProjects").Stop()

	records, err := a.scan(ctx)
	if err != nil {
		return nil, err
	}
	projects, unknowns := a.group(records)
	a.log.WithFields(logrus.Fields{
		"rollouts": len(records),
		"projects": len(projects),
		"unknown":  len(unknowns),
	}).Debug("Fetched projects")
	return projects, nil
}

// CollectDiagnostics implements providers.Adapter.
func (a *Adapter) CollectDiagnostics(ctx context.Context) (models.Diagnostics, error) {
	records, err := a.scan(ctx)
	if err != nil {
		return models.Diagnostics{}, err
	}
	_, unknowns := a.group(records)
	return models.Diagnostics{
		Provider:     Provider,
		UnknownCount: len(unknowns),
		Details:      unknowns,
	}, nil
}

// group reduces scanned rollouts to projects keyed by working directory.
// Resumed sessions write a fresh transcript per run under the same id; the
// shared conflict rule picks the winning version.
func (a *Adapter) group(records []record) ([]models.Project, []models.UnknownSession) {
	type placed struct {
		session models.Session
		path    string
	}
	winners := make(map[string]placed)
	order := make([]string, 0, len(records))
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

	var unknowns []models.UnknownSession
	for _, rec := range records {
		if rec.cwd == "" {
			unknowns = append(unknowns, models.UnknownSession{
				SessionID: rec.session.ID,
				FilePath:  rec.path,
				Reason:    "no session_meta line carries a working directory",
			})
			consider(rec.session, models.UnknownProjectPath)
			continue
		}
		consider(rec.session, rec.cwd)
	}

	projects := make(map[string]*models.Project)
	var pathOrder []string
	for _, id := range order {
		w := winners[id]
		p, ok := projects[w.path]
		if !ok {
			exists := w.path != models.UnknownProjectPath && a.oracle.Exists(w.path)
			p = &models.Project{
				Path:       w.path,
				Provider:   Provider,
				PathExists: exists,
			}
			projects[w.path] = p
			pathOrder = append(pathOrder, w.path)
		}
		s := w.session
		s.ProjectPath = p.Path
		p.Sessions = append(p.Sessions, s)
	}

	out := make([]models.Project, 0, len(projects))
	for _, path := range pathOrder {
		p := projects[path]
		sort.Slice(p.Sessions, func(i, j int) bool {
			x, y := p.Sessions[i], p.Sessions[j]
			if !x.UpdatedAt.Equal(y.UpdatedAt) {
				return x.UpdatedAt.After(y.UpdatedAt)
			}
			return x.ID < y.ID
		})
		p.RecomputeStats()
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out, unknowns
}

// WatchChanges implements providers.Adapter.
func (a *Adapter) WatchChanges(callback func()) (providers.Unsubscribe, error) {
	return providers.WatchDirs(providers.WatchOptions{
		Roots:        []string{a.sessionsRoot},
		Debounce:     a.debounce,
		PollInterval: a.pollInterval,
		MaxDepth:     watchDepth,
		Logger:       a.log,
	}, callback)
}

// ignored reports whether a rollout filename matches the ignore patterns.
func (a *Adapter) ignored(name string) bool {
	if a.matcher == nil {
		return false
	}
	matched, err := a.matcher.MatchesOrParentMatches(name)
	if err != nil {
		return false
	}
	return matched
}
