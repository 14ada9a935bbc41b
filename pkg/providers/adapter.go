// Package providers defines the adapter contract every session provider
// implements, a small ordered registry, and the shared directory watcher the
// adapters build their change notification on.
package providers

import (
	"context"

	"github.com/taskdeck/core/pkg/models"
)

// Unsubscribe stops a running watch and releases its resources. Calling it
// more than once is safe.
type Unsubscribe func()

// Adapter is one provider's view over its on-disk session data. Adapters own
// their storage format but share identity semantics: project paths come from
// the same reconstruction and metadata-cache primitives everywhere.
type Adapter interface {
	// Name returns the stable provider identifier, e.g. "claude".
	Name() string

	// FetchProjects scans the provider's data directories and returns the
	// merged project list. Per-item failures are skipped and logged; the
	// error is reserved for total failures and context cancellation.
	FetchProjects(ctx context.Context) ([]models.Project, error)

	// CollectDiagnostics reports the sessions whose project path could not
	// be resolved by any strategy.
	CollectDiagnostics(ctx context.Context) (models.Diagnostics, error)

	// RepairMetadata tries to recover a real path for every unknown item
	// and, unless dryRun is set, persists each success as sidecar metadata.
	RepairMetadata(ctx context.Context, dryRun bool) (models.RepairReport, error)

	// WatchChanges invokes callback (debounced) whenever the provider's
	// data directories change, until the returned Unsubscribe is called.
	WatchChanges(callback func()) (Unsubscribe, error)
}

// DirDeleter is implemented by adapters whose storage keeps one directory per
// project and can remove that directory on request. It is the only deletion
// path in the system.
type DirDeleter interface {
	DeleteProjectDir(flattenedDir string) error
}
