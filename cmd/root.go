// Package cmd implements the taskdeck command line interface, a thin
// collaborator over the core library's public API.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/pkg/profiling"
	"github.com/taskdeck/core/version"
)

// NewRootCmd assembles the taskdeck root command.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"taskdeck",
		"Observe AI coding assistant projects, sessions and todos across providers",
	)
	cli.SetVersionTemplate(rootCmd, version.GetInfo())

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(rootCmd)
	rootCmd.PersistentPreRunE = profiler.PreRun
	rootCmd.PersistentPostRun = profiler.PostRun

	rootCmd.AddCommand(
		NewProjectsCmd(),
		NewDiagnosticsCmd(),
		NewRepairCmd(),
		NewWatchCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		NewLogsCmd(),
		cli.NewVersionCommand("taskdeck"),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
