package commands

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/display"
	"github.com/teranos/medkit/errors"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize medkit configuration",
	Long: `Show or initialize medkit configuration.

Configuration sources (in order of precedence):
1. --config file, when given (replaces 3 and 4)
2. Environment variables (MEDKIT_* prefix, e.g. MEDKIT_PIPELINE_WORKERS)
3. Project config (./medkit.toml, searched up directories)
4. User config (~/.medkit/medkit.toml)
5. Default values

Examples:
  medkit config show                  # Show effective configuration
  medkit config show --format yaml    # Show configuration as YAML
  medkit config init                  # Write defaults to ./medkit.toml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Long:  "Write the default configuration as TOML, to ./medkit.toml unless a path is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var (
	configFormat string
	configForce  bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	out := cmd.OutOrStdout()

	format := configFormat
	if display.ShouldOutputJSON(cmd) {
		format = "json"
	}

	switch format {
	case "json":
		return display.OutputJSON(out, c)

	case "yaml":
		data, err := yaml.Marshal(c)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# medkit configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(c)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# medkit configuration\n%s", string(data))

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", format)
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ProjectFileName
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return errors.WithHint(
			errors.NewConflictError("%s already exists", path),
			"use --force to overwrite it")
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", path)
	return nil
}
