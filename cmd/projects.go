package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/pkg/models"
)

// NewProjectsCmd creates the `projects` command.
func NewProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects aggregated across all providers",
		Long: `Scans every enabled provider's home directory, reconstructs project
paths from their flattened directory names, merges sessions from all
sources and prints the combined project list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			handler := cli.NewErrorHandler(opts.Verbose)

			agg, _, err := buildAggregator(cmd)
			if err != nil {
				return handler.Handle(err)
			}

			projects, err := agg.GetProjects(cmd.Context())
			if err != nil {
				return handler.Handle(err)
			}

			if opts.JSONOutput {
				data, err := json.MarshalIndent(projects, "", "  ")
				if err != nil {
					return handler.Handle(err)
				}
				fmt.Println(string(data))
				return nil
			}

			printProjects(projects)
			return nil
		},
	}
}

func printProjects(projects []models.Project) {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return
	}

	fmt.Printf("%-8s %-50s %8s %6s %7s  %s\n",
		"PROVIDER", "PROJECT", "SESSIONS", "TODOS", "ACTIVE", "LAST ACTIVITY")
	for _, p := range projects {
		path := p.Path
		if !p.PathExists {
			path += " (missing)"
		}
		last := "-"
		if !p.MostRecentTodoDate.IsZero() {
			last = p.MostRecentTodoDate.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-8s %-50s %8d %6d %7d  %s\n",
			p.Provider, path, len(p.Sessions), p.Stats.Todos, p.Stats.Active, last)
	}
}
