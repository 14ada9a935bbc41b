// Package profiling records coarse phase timings for provider scans and
// exposes cobra hooks for pprof profiles. Phases are recorded flat rather
// than as a call tree: project fetches fan out across goroutines, so spans
// from different providers overlap and a stack model would interleave them.
package profiling

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Stopper ends a timed phase.
type Stopper interface {
	Stop()
}

// phase accumulates every run of one named operation.
type phase struct {
	name  string
	calls int
	total time.Duration
}

// Profiler aggregates phase timings for one process run.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	started time.Time
	order   []string
	phases  map[string]*phase
}

var defaultProfiler = &Profiler{}

// Enable turns on the global profiler. Before Enable, Start returns a
// no-op stopper, so library code can instrument unconditionally.
func Enable() {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()

	if defaultProfiler.enabled {
		return
	}
	defaultProfiler.enabled = true
	defaultProfiler.started = time.Now()
	defaultProfiler.phases = make(map[string]*phase)
}

// Start begins timing one run of the named phase. The returned Stopper must
// be called to record it, typically via defer. Safe for concurrent use.
func Start(name string) Stopper {
	defaultProfiler.mu.Lock()
	enabled := defaultProfiler.enabled
	defaultProfiler.mu.Unlock()

	if !enabled {
		return noopStopper{}
	}
	return &runStopper{name: name, start: time.Now(), profiler: defaultProfiler}
}

// Summarize writes the accumulated phase table to w. Phases appear in the
// order they were first started; the percentage is of wall time since Enable.
func Summarize(w io.Writer) {
	p := defaultProfiler
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || len(p.phases) == 0 {
		return
	}
	wall := time.Since(p.started)

	fmt.Fprintln(w, "\n--- Timing Profile ---")
	for _, name := range p.order {
		ph := p.phases[name]
		pct := 0.0
		if wall > 0 {
			pct = float64(ph.total) / float64(wall) * 100
		}
		fmt.Fprintf(w, "- %s: %v over %d call(s) (%.1f%% of %v)\n",
			ph.name, ph.total.Round(100*time.Microsecond), ph.calls, pct, wall.Round(time.Millisecond))
	}
	fmt.Fprintln(w, "--------------------")
}

type runStopper struct {
	name     string
	start    time.Time
	profiler *Profiler
	once     sync.Once
}

// Stop records the elapsed time into the phase's running totals.
func (r *runStopper) Stop() {
	r.once.Do(func() {
		elapsed := time.Since(r.start)

		p := r.profiler
		p.mu.Lock()
		defer p.mu.Unlock()

		if !p.enabled {
			return
		}
		ph, ok := p.phases[r.name]
		if !ok {
			ph = &phase{name: r.name}
			p.phases[r.name] = ph
			p.order = append(p.order, r.name)
		}
		ph.calls++
		ph.total += elapsed
	})
}

// noopStopper is returned while the profiler is disabled.
type noopStopper struct{}

func (noopStopper) Stop() {}
