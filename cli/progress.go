package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressReporter prints per-provider progress lines for concurrent
// operations such as multi-provider repair runs.
type ProgressReporter struct {
	mu       sync.Mutex
	out      io.Writer
	statuses map[string]string
	start    time.Time
}

// NewProgressReporter creates a reporter writing to out.
func NewProgressReporter(out io.Writer) *ProgressReporter {
	return &ProgressReporter{
		out:      out,
		statuses: make(map[string]string),
		start:    time.Now(),
	}
}

// Update records and prints the status of one provider.
func (p *ProgressReporter) Update(provider, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.statuses[provider] = status

	symbol := "[.]"
	switch status {
	case "done":
		symbol = "[*]"
	case "failed":
		symbol = "[x]"
	case "scanning", "repairing":
		symbol = "[~]"
	}
	fmt.Fprintf(p.out, "%s %s: %s\n", symbol, provider, status)
}

// Done prints the elapsed time for the whole operation.
func (p *ProgressReporter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.start).Round(time.Millisecond)
	fmt.Fprintf(p.out, "\nCompleted in %s\n", elapsed)
}
