// Package claude adapts the Claude-style provider layout: a projects tree of
// flattened per-project directories, a flat todos tree keyed by session id,
// and an append-only history.jsonl session log at the home root.
package claude

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskdeck/core/config"
	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/logging"
	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/pathenc"
	"github.com/taskdeck/core/pkg/paths"
	"github.com/taskdeck/core/pkg/profiling"
	"github.com/taskdeck/core/pkg/providers"
	"github.com/taskdeck/core/pkg/sessions"
)

// Provider is the stable identifier this adapter registers under.
const Provider = "claude"

// watchDepth covers the projects tree: flattened dirs at level one, session
// files (and the loader's nested scan) one level further down.
const watchDepth = 2

// Options configure the adapter. The zero value targets the platform default
// home with default scan behavior.
type Options struct {
	Home           string // provider home; empty resolves the platform default
	IgnorePatterns []string
	SkipLegacy     bool
	MaxDepth       int
	Debounce       time.Duration
	PollInterval   time.Duration
	Oracle         pathenc.Oracle
	Logger         *logrus.Entry
}

// Adapter implements providers.Adapter over a Claude-style home directory.
type Adapter struct {
	home         string
	projectsRoot string
	todosRoot    string
	historyPath  string
	loader       *sessions.Loader
	oracle       pathenc.Oracle
	recon        *pathenc.Reconstructor
	debounce     time.Duration
	pollInterval time.Duration
	log          *logrus.Entry
}

// New builds an adapter from options.
func New(opts Options) (*Adapter, error) {
	home := opts.Home
	if home == "" {
		home = paths.ClaudeHome()
	}

	oracle := opts.Oracle
	if oracle == nil {
		oracle = pathenc.NewOSOracle()
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("claude")
	}

	projectsRoot := filepath.Join(home, "projects")
	todosRoot := filepath.Join(home, "todos")

	loader, err := sessions.NewLoader(sessions.Options{
		Provider:       Provider,
		ProjectsRoot:   projectsRoot,
		TodosRoot:      todosRoot,
		Oracle:         oracle,
		IgnorePatterns: opts.IgnorePatterns,
		SkipLegacy:     opts.SkipLegacy,
		MaxDepth:       opts.MaxDepth,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	return &Adapter{
		home:         home,
		projectsRoot: projectsRoot,
		todosRoot:    todosRoot,
		historyPath:  filepath.Join(home, "history.jsonl"),
		loader:       loader,
		oracle:       oracle,
		recon:        pathenc.NewReconstructor(oracle, loader.Cache()),
		debounce:     opts.Debounce,
		pollInterval: opts.PollInterval,
		log:          log,
	}, nil
}

// NewFromConfig builds an adapter from the loaded configuration.
func NewFromConfig(cfg *config.Config) (*Adapter, error) {
	home, err := paths.Expand(cfg.Claude().HomeDir(paths.ClaudeHome()))
	if err != nil {
		return nil, err
	}
	return New(Options{
		Home:           home,
		IgnorePatterns: cfg.ScanIgnore(),
		SkipLegacy:     !cfg.IncludeLegacy(),
		MaxDepth:       cfg.ScanMaxDepth(),
		Debounce:       cfg.WatchDebounce(),
		PollInterval:   cfg.WatchPollInterval(),
	})
}

// Name implements providers.Adapter.
func (a *Adapter) Name() string { return Provider }

// Home returns the resolved provider home directory.
func (a *Adapter) Home() string { return a.home }

// FetchProjects implements providers.Adapter.
func (a *Adapter) FetchProjects(ctx context.Context) ([]models.Project, error) {
	defer profiling.Start("claude.FetchProjects").Stop()

	projects, report, err := a.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"dirs":     report.ProjectDirs,
		"projects": report.LoadedProjects,
		"unknown":  len(report.UnknownSessions),
	}).Debug("Fetched projects")
	return projects, nil
}

// CollectDiagnostics implements providers.Adapter.
func (a *Adapter) CollectDiagnostics(ctx context.Context) (models.Diagnostics, error) {
	_, report, err := a.loader.Load(ctx)
	if err != nil {
		return models.Diagnostics{}, err
	}
	return models.Diagnostics{
		Provider:     Provider,
		UnknownCount: len(report.UnknownSessions),
		Details:      report.UnknownSessions,
	}, nil
}

// WatchChanges implements providers.Adapter. Alongside the directory watch it
// runs the history.jsonl follower, which feeds freshly observed session→cwd
// pairs through the metadata cache so the next load resolves them for free.
func (a *Adapter) WatchChanges(callback func()) (providers.Unsubscribe, error) {
	stop, err := providers.WatchDirs(providers.WatchOptions{
		Roots:        []string{a.projectsRoot, a.todosRoot},
		Debounce:     a.debounce,
		PollInterval: a.pollInterval,
		MaxDepth:     watchDepth,
		Logger:       a.log,
	}, callback)
	if err != nil {
		return nil, err
	}

	follower, err := newLogFollower(a.historyPath, a.loader.Cache(), a.oracle, a.log)
	if err != nil {
		a.log.WithError(err).Debug("Session log follower unavailable")
		return stop, nil
	}
	go follower.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			follower.stop()
		})
	}, nil
}

// DeleteProjectDir removes one flattened project directory from the projects
// tree. The name must be a plain directory name, not a path.
func (a *Adapter) DeleteProjectDir(flattenedDir string) error {
	if flattenedDir == "" || flattenedDir == "." || flattenedDir == ".." ||
		strings.ContainsAny(flattenedDir, `/\`) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid project directory name")
	}

	dir := filepath.Join(a.projectsRoot, flattenedDir)
	if _, err := os.Stat(dir); err != nil {
		return errors.IoFailed(dir, err)
	}

	a.log.WithField("dir", flattenedDir).Info("Deleting project directory")
	if err := os.RemoveAll(dir); err != nil {
		return errors.IoFailed(dir, err)
	}
	return nil
}
