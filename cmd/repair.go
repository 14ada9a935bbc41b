package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/pkg/models"
	"github.com/taskdeck/core/pkg/providers"
)

// NewRepairCmd creates the `repair` command.
func NewRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Recover project paths for unanchored sessions and directories",
		Long: `Walks every provider's unresolved items and tries to recover their
real project paths from sidecar metadata, sibling transcripts, content
markers and session logs. Recovered paths are persisted so later scans
resolve them directly. Use --dry-run to preview without writing.`,
		RunE: runRepairE,
	}

	cmd.Flags().Bool("dry-run", false, "Report what would be repaired without writing anything")
	cmd.Flags().String("provider", "", "Repair a single provider (default: all)")

	return cmd
}

func runRepairE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	handler := cli.NewErrorHandler(opts.Verbose)
	logger := cli.GetLogger(cmd)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	providerName, _ := cmd.Flags().GetString("provider")

	_, registry, err := buildAggregator(cmd)
	if err != nil {
		return handler.Handle(err)
	}

	adapters := registry.All()
	if providerName != "" {
		adapter, err := registry.Get(providerName)
		if err != nil {
			return handler.Handle(err)
		}
		adapters = []providers.Adapter{adapter}
	}

	var progress *cli.ProgressReporter
	if !opts.JSONOutput {
		progress = cli.NewProgressReporter(os.Stderr)
	}

	var reports []models.RepairReport
	var firstErr error
	for _, adapter := range adapters {
		if progress != nil {
			progress.Update(adapter.Name(), "repairing")
		}
		report, err := adapter.RepairMetadata(cmd.Context(), dryRun)
		if err != nil {
			logger.WithError(err).WithField("provider", adapter.Name()).
				Warn("Repair failed")
			if progress != nil {
				progress.Update(adapter.Name(), "failed")
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if progress != nil {
			progress.Update(adapter.Name(), "done")
		}
		reports = append(reports, report)
	}
	if progress != nil {
		progress.Done()
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

	printRepairReports(reports, dryRun)
	return nil
}

func printRepairReports(reports []models.RepairReport, dryRun bool) {
	for _, r := range reports {
		fmt.Printf("%s: %d planned, %d written, %d still unknown\n",
			r.Provider, r.Planned, r.Written, r.UnknownCount)
		for _, action := range r.Details {
			target := action.FlattenedDir
			if target == "" {
				target = action.SessionID
			}
			if action.Method == models.RepairFailed {
				fmt.Printf("  [x] %-38s %s\n", target, action.Reason)
				continue
			}
			fmt.Printf("  [*] %-38s -> %s (%s)\n", target, action.ResolvedPath, action.Method)
		}
	}
	if dryRun {
		fmt.Println("\nDry run: nothing was written.")
	}
}
