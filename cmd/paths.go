package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/pkg/logging/logutil"
	"github.com/taskdeck/core/pkg/paths"
)

// PathsOutput represents the directories taskdeck reads and writes.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	CacheDir   string `json:"cache_dir"`
	ClaudeHome string `json:"claude_home"`
	CodexHome  string `json:"codex_home"`
	LogsDir    string `json:"logs_dir"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the directories taskdeck uses",
		Long: `Print the directories taskdeck uses.

This command outputs the paths in JSON format, making it easy to parse
from scripts and other tools.

- config_dir: taskdeck configuration (taskdeck.yml, conf.d fragments)
- state_dir: runtime state
- cache_dir: temporary/regenerable data
- claude_home: default Claude provider home that gets scanned
- codex_home: default Codex provider home that gets scanned
- logs_dir: where taskdeck writes its own logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ensure, _ := cmd.Flags().GetBool("ensure"); ensure {
				if err := paths.EnsureDirs(); err != nil {
					return fmt.Errorf("failed to create taskdeck directories: %w", err)
				}
			}

			output := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				CacheDir:   paths.CacheDir(),
				ClaudeHome: paths.ClaudeHome(),
				CodexHome:  paths.CodexHome(),
				LogsDir:    logutil.DefaultLogsDir(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Println(string(jsonData))
			return nil
		},
	}

	cmd.Flags().Bool("ensure", false, "Create taskdeck's own directories before printing")

	return cmd
}
