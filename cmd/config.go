package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/config"
	"github.com/taskdeck/core/schema"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate taskdeck configuration",
	}

	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigLayersCmd())

	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the resolved configuration",
		Long: `Loads the configuration the same way every other command does (flag
path, upward search, global layer) and checks it against both the
structural rules and the embedded JSON schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			handler := cli.NewErrorHandler(opts.Verbose)

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return handler.Handle(err)
			}

			validator, err := config.NewSchemaValidator()
			if err != nil {
				return handler.Handle(err)
			}
			if err := validator.Validate(cfg); err != nil {
				return handler.Handle(err)
			}

			fmt.Println("Configuration is valid.")
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the embedded JSON schema for taskdeck.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(string(schema.Bytes()))
			return nil
		},
	}
}

func newConfigLayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "Display the layered configuration for the current context",
		Long: `Shows how the final configuration is built by merging layers:
1. Global config (~/.config/taskdeck/taskdeck.yml)
2. Global TOML fragments (~/.config/taskdeck/conf.d/*.toml)
3. Project config (taskdeck.yml, searched upward)
4. Override files (taskdeck.override.yml)
This is useful for debugging configuration issues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			layered, err := config.LoadLayered(cwd)
			if err != nil {
				return fmt.Errorf("failed to load layered config: %w", err)
			}

			printLayer := func(title string, path string, cfg *config.Config) {
				if cfg == nil {
					return
				}
				fmt.Printf("--- # %s\n", title)
				if path != "" {
					fmt.Printf("# Source: %s\n", path)
				}
				data, _ := yaml.Marshal(cfg)
				fmt.Println(string(data))
			}

			printLayer("GLOBAL CONFIG", layered.FilePaths[config.SourceGlobal], layered.Global)
			for _, frag := range layered.GlobalFragments {
				printLayer("GLOBAL FRAGMENT", frag.Path, frag.Config)
			}
			printLayer("PROJECT CONFIG", layered.FilePaths[config.SourceProject], layered.Project)
			for _, override := range layered.Overrides {
				printLayer("OVERRIDE CONFIG", override.Path, override.Config)
			}
			printLayer("FINAL MERGED CONFIG", "", layered.Final)

			return nil
		},
	}
}
