package providers

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/logging"
)

const (
	defaultDebounce     = 250 * time.Millisecond
	defaultPollInterval = 30 * time.Second
	defaultWatchDepth   = 3
)

// WatchOptions configure a directory watch. Roots that do not exist yet are
// tolerated; they are what the poll fallback is for.
type WatchOptions struct {
	Roots        []string
	Debounce     time.Duration // rapid-change suppression window
	PollInterval time.Duration // fingerprint cadence when fsnotify is unavailable
	MaxDepth     int           // directory levels below each root to track
	Logger       *logrus.Entry
}

// WatchDirs invokes callback after any change under the given roots,
// debounced. It prefers fsnotify; when the notifier cannot start (platform
// limits, exhausted inotify watches, or no root exists yet) it degrades to a
// ticker poller that fingerprints the trees. The returned Unsubscribe stops
// the watch and is safe to call repeatedly.
func WatchDirs(opts WatchOptions, callback func()) (Unsubscribe, error) {
	if callback == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "watch callback is required")
	}

	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultWatchDepth
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("watcher")
	}

	w, err := newDirWatcher(opts, callback, log)
	if err == nil {
		go w.run()
		return w.stopOnce, nil
	}
	log.WithError(err).Debug("fsnotify unavailable, falling back to polling")

	p := newPollWatcher(opts, callback, log)
	go p.run()
	return p.stopOnce, nil
}

// dirWatcher is the fsnotify-backed implementation. Debouncing follows the
// leading edge: the first event fires the callback, the tail of a burst is
// dropped.
type dirWatcher struct {
	watcher    *fsnotify.Watcher
	callback   func()
	debounce   time.Duration
	maxDepth   int
	roots      []string
	lastChange time.Time
	mu         sync.Mutex
	log        *logrus.Entry
	stop       chan struct{}
	once       sync.Once
}

func newDirWatcher(opts WatchOptions, callback func(), log *logrus.Entry) (*dirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WatchFailed("fsnotify", err)
	}

	w := &dirWatcher{
		watcher:  watcher,
		callback: callback,
		debounce: opts.Debounce,
		maxDepth: opts.MaxDepth,
		roots:    opts.Roots,
		log:      log,
		stop:     make(chan struct{}),
	}

	added := 0
	for _, root := range opts.Roots {
		added += w.addTree(root, 0)
	}
	if added == 0 {
		watcher.Close()
		return nil, errors.WatchFailed(joinRoots(opts.Roots), os.ErrNotExist)
	}

	return w, nil
}

// addTree registers root and its subdirectories up to maxDepth. fsnotify is
// not recursive, so every directory level is added explicitly.
func (w *dirWatcher) addTree(root string, depth int) int {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return 0
	}
	if err := w.watcher.Add(root); err != nil {
		w.log.WithError(err).WithField("dir", root).Debug("Failed to watch directory")
		return 0
	}

	added := 1
	if depth >= w.maxDepth {
		return added
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return added
	}
	for _, entry := range entries {
		if entry.IsDir() {
			added += w.addTree(filepath.Join(root, entry.Name()), depth+1)
		}
	}
	return added
}

func (w *dirWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.log.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&fsnotify.Create != 0 {
				// New directories (a fresh project dir, a new day bucket)
				// must be watched before their contents change.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name, w.depthOf(event.Name))
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.handleChange(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("Watcher error: %v", err)
		case <-w.stop:
			w.watcher.Close()
			return
		}
	}
}

// depthOf reports how many levels below its root a path sits, so directories
// discovered at runtime respect the same depth cap as the initial scan.
func (w *dirWatcher) depthOf(path string) int {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if rel == "." {
			return 0
		}
		return len(strings.Split(rel, string(filepath.Separator)))
	}
	return w.maxDepth
}

// handleChange applies the debounce window and fires the callback.
func (w *dirWatcher) handleChange(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := time.Since(w.lastChange)
	if elapsed < w.debounce {
		w.log.Debugf("Debounced: %s (only %v since last change)", filepath.Base(name), elapsed)
		return
	}
	w.lastChange = time.Now()

	w.callback()
}

func (w *dirWatcher) stopOnce() {
	w.once.Do(func() { close(w.stop) })
}

// pollWatcher is the fallback: it fingerprints the trees on a ticker and
// fires the callback when the fingerprint moves. The interval doubles as the
// debounce window.
type pollWatcher struct {
	roots    []string
	maxDepth int
	interval time.Duration
	callback func()
	last     uint64
	log      *logrus.Entry
	stop     chan struct{}
	once     sync.Once
}

func newPollWatcher(opts WatchOptions, callback func(), log *logrus.Entry) *pollWatcher {
	return &pollWatcher{
		roots:    opts.Roots,
		maxDepth: opts.MaxDepth,
		interval: opts.PollInterval,
		callback: callback,
		last:     fingerprintTree(opts.Roots, opts.MaxDepth),
		log:      log,
		stop:     make(chan struct{}),
	}
}

func (p *pollWatcher) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			current := fingerprintTree(p.roots, p.maxDepth)
			if current != p.last {
				p.last = current
				p.log.Debug("Poll fingerprint changed")
				p.callback()
			}
		case <-p.stop:
			return
		}
	}
}

func (p *pollWatcher) stopOnce() {
	p.once.Do(func() { close(p.stop) })
}

// fingerprintTree hashes every entry's path, size and mtime below the roots.
// Unreadable directories contribute nothing; a root that appears later simply
// changes the fingerprint.
func fingerprintTree(roots []string, maxDepth int) uint64 {
	h := fnv.New64a()

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			h.Write([]byte(path))
			if info, err := entry.Info(); err == nil {
				h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
				h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
			}
			if entry.IsDir() && depth < maxDepth {
				walk(path, depth+1)
			}
		}
	}

	for _, root := range roots {
		walk(root, 0)
	}
	return h.Sum64()
}

func joinRoots(roots []string) string {
	return strings.Join(roots, ", ")
}
