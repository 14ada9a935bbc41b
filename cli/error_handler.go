package cli

import (
	"fmt"
	"os"

	"github.com/taskdeck/core/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration file not found\n")
		if deckErr, ok := err.(*errors.DeckError); ok {
			fmt.Fprintf(os.Stderr, "Looked for: %v\n", deckErr.Details["path"])
		}
		return err

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(os.Stderr, "❌ Configuration is invalid: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'taskdeck config validate' for details.\n")
		return err

	case errors.ErrCodeAllProvidersFailed:
		fmt.Fprintf(os.Stderr, "❌ Every provider failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Check that the provider home directories exist and are readable.\n")
		return err

	case errors.ErrCodeProviderUnknown:
		if deckErr, ok := err.(*errors.DeckError); ok {
			fmt.Fprintf(os.Stderr, "❌ Provider '%v' is not registered\n", deckErr.Details["provider"])
		} else {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "Known providers: claude, codex. Enable them in taskdeck.yml.\n")
		return err

	case errors.ErrCodeWatchFailed:
		fmt.Fprintf(os.Stderr, "❌ Could not watch provider directories: %v\n", err)
		fmt.Fprintf(os.Stderr, "The poll fallback also failed; check the configured homes.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		// If verbose mode, show full error details
		if h.Verbose {
			if deckErr, ok := err.(*errors.DeckError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", deckErr.ToJSON())
			}
		}
		return err
	}
}
