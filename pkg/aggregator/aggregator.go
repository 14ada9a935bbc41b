// Package aggregator fans project fetches out across the registered provider
// adapters and folds the results into one merged view, with change beats for
// subscribers.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/logging"
	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/providers"
)

// defaultRefresh is the coarse Watch ticker period backing up the per-adapter
// filesystem watches.
const defaultRefresh = 30 * time.Second

// Options configure an Aggregator.
type Options struct {
	Registry *providers.Registry
	Refresh  time.Duration // Watch ticker period; zero means the default
	Logger   *logrus.Entry
}

// Aggregator queries every registered adapter and merges their project views.
// Fetches run concurrently into per-adapter slots; subscriber bookkeeping is
// the only shared state behind the mutex.
type Aggregator struct {
	registry *providers.Registry
	refresh  time.Duration
	log      *logrus.Entry

	mu   sync.Mutex
	subs map[<-chan struct{}]chan struct{}
}

// New creates an Aggregator over the given registry.
func New(opts Options) (*Aggregator, error) {
	if opts.Registry == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "aggregator requires a provider registry")
	}
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("aggregator")
	}
	return &Aggregator{
		registry: opts.Registry,
		refresh:  refresh,
		log:      log,
		subs:     make(map[<-chan struct{}]chan struct{}),
	}, nil
}

// GetProjects fetches from every adapter in parallel and merges the results.
// A failing adapter is logged and skipped; only when every adapter fails does
// the call error, carrying the first registered adapter's error as the cause.
// A successful merge emits a change beat to subscribers.
func (a *Aggregator) GetProjects(ctx context.Context) ([]models.Project, error) {
	adapters := a.registry.All()
	if len(adapters) == 0 {
		return nil, nil
	}

	results := make([][]models.Project, len(adapters))
	errs := make([]error, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		i, adapter := i, adapter
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = adapter.FetchProjects(ctx)
		}()
	}
	wg.Wait()

	lists := make([][]models.Project, 0, len(adapters))
	for i, err := range errs {
		if err != nil {
			a.log.WithError(err).WithField("provider", adapters[i].Name()).
				Warn("Provider fetch failed")
			continue
		}
		lists = append(lists, results[i])
	}
	if len(lists) == 0 {
		return nil, errors.AllProvidersFailed(errs[0], len(adapters))
	}

	merged := mergeProjects(lists...)
	a.broadcast()
	return merged, nil
}

// Subscribe registers a change-beat channel. Beats are delivered best-effort;
// a subscriber that is not draining misses beats instead of blocking the
// merge path.
func (a *Aggregator) Subscribe() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch := make(chan struct{}, 1)
	a.subs[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Unknown channels
// are ignored.
func (a *Aggregator) Unsubscribe(ch <-chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.subs[ch]
	if !ok {
		return
	}
	delete(a.subs, ch)
	close(sub)
}

func (a *Aggregator) broadcast() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch runs every adapter's change watcher plus a coarse refresh ticker and
// calls onChange once per beat until ctx is done. Beats are coalesced: bursts
// arriving while onChange runs collapse into one follow-up call. An adapter
// whose watch cannot start is logged and skipped; the ticker still covers it.
func (a *Aggregator) Watch(ctx context.Context, onChange func()) error {
	if onChange == nil {
		return errors.New(errors.ErrCodeInvalidInput, "watch requires a callback")
	}

	beats := make(chan struct{}, 1)
	pulse := func() {
		select {
		case beats <- struct{}{}:
		default:
		}
	}

	var unsubs []providers.Unsubscribe
	for _, adapter := range a.registry.All() {
		unsub, err := adapter.WatchChanges(pulse)
		if err != nil {
			a.log.WithError(err).WithField("provider", adapter.Name()).
				Warn("Provider watch unavailable, relying on the refresh ticker")
			continue
		}
		unsubs = append(unsubs, unsub)
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(a.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				pulse()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-beats:
				onChange()
			}
		}
	})
	return g.Wait()
}

// DeleteProjectDir removes a flattened project directory through the named
// provider. Providers that do not manage per-project directories reject the
// call.
func (a *Aggregator) DeleteProjectDir(provider, flattenedDir string) error {
	adapter, err := a.registry.Get(provider)
	if err != nil {
		return err
	}
	deleter, ok := adapter.(providers.DirDeleter)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("provider '%s' does not support project directory deletion", provider))
	}
	return deleter.DeleteProjectDir(flattenedDir)
}
