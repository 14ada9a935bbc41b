package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/pkg/models"
)

// NewDiagnosticsCmd creates the `diagnostics` command.
func NewDiagnosticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "Report sessions that could not be anchored to a project",
		Long: `Lists, per provider, the sessions whose project path could not be
resolved by any strategy, with the reason each one was left unknown.
Run 'taskdeck repair' to attempt recovery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			handler := cli.NewErrorHandler(opts.Verbose)
			logger := cli.GetLogger(cmd)

			_, registry, err := buildAggregator(cmd)
			if err != nil {
				return handler.Handle(err)
			}

			var reports []models.Diagnostics
			var firstErr error
			for _, adapter := range registry.All() {
				diags, err := adapter.CollectDiagnostics(cmd.Context())
				if err != nil {
					logger.WithError(err).WithField("provider", adapter.Name()).
						Warn("Diagnostics collection failed")
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				reports = append(reports, diags)
			}
			if len(reports) == 0 && firstErr != nil {
				return handler.Handle(firstErr)
			}

			if opts.JSONOutput {
				data, err := json.MarshalIndent(reports, "", "  ")
				if err != nil {
					return handler.Handle(err)
				}
				fmt.Println(string(data))
				return nil
			}

			printDiagnostics(reports)
			return nil
		},
	}
}

func printDiagnostics(reports []models.Diagnostics) {
	total := 0
	for _, r := range reports {
		total += r.UnknownCount
	}
	if total == 0 {
		fmt.Println("All sessions are anchored to a project.")
		return
	}

	for _, r := range reports {
		fmt.Printf("%s: %d unknown session(s)\n", r.Provider, r.UnknownCount)
		for _, d := range r.Details {
			fmt.Printf("  %-38s %s\n", d.SessionID, d.Reason)
			if d.FilePath != "" {
				fmt.Printf("  %-38s   %s\n", "", d.FilePath)
			}
		}
	}
	fmt.Printf("\n%d session(s) total. Run 'taskdeck repair --dry-run' to preview fixes.\n", total)
}
