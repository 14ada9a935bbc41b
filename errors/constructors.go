package errors

import (
	"fmt"
)

// IoFailed creates an error for an unreadable file or directory.
func IoFailed(path string, err error) *DeckError {
	return Wrap(err, ErrCodeIo, fmt.Sprintf("cannot read %s", path)).
		WithDetail("path", path)
}

// ParseFailed creates an error for a malformed JSON or JSONL payload.
func ParseFailed(path string, err error) *DeckError {
	return Wrap(err, ErrCodeParse, fmt.Sprintf("cannot parse %s", path)).
		WithDetail("path", path)
}

// UnresolvedPath creates an error for a flattened directory name that no
// resolution strategy could map back to a real path.
func UnresolvedPath(flattened string, reason string) *DeckError {
	return New(ErrCodeUnresolvedPath,
		fmt.Sprintf("cannot resolve project path for %q: %s", flattened, reason)).
		WithDetail("flattenedDir", flattened).
		WithDetail("reason", reason)
}

// AllProvidersFailed creates the aggregate failure returned when every
// registered provider's fetch failed. The first provider's error is kept as
// the cause so its message survives verbatim.
func AllProvidersFailed(first error, providers int) *DeckError {
	return Wrap(first, ErrCodeAllProvidersFailed,
		fmt.Sprintf("all %d providers failed", providers)).
		WithDetail("providers", providers)
}

// ProviderUnknown creates an error for an unregistered provider name.
func ProviderUnknown(name string) *DeckError {
	return New(ErrCodeProviderUnknown, fmt.Sprintf("provider '%s' is not registered", name)).
		WithDetail("provider", name)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DeckError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DeckError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// WatchFailed creates an error for a watcher that could not be started.
func WatchFailed(target string, err error) *DeckError {
	return Wrap(err, ErrCodeWatchFailed, fmt.Sprintf("cannot watch %s", target)).
		WithDetail("target", target)
}
