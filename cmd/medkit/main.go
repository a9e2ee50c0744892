package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/medkit/cmd/medkit/commands"
	"github.com/teranos/medkit/logger"
)

var rootCmd = &cobra.Command{
	Use:   "medkit",
	Short: "medkit - Medical document processing pipelines with provenance",
	Long: `medkit - Medical document processing pipelines with provenance.

medkit runs pipelines of text operations over documents and records, for
every annotation produced, the operation and the data it was derived from.

Available commands:
  run     - Run a pipeline definition over text files
  ops     - List registered operations
  config  - Show or initialize configuration
  version - Show version information

Examples:
  medkit run --pipeline cleanup.yaml notes/*.txt
  medkit run --pipeline cleanup.yaml --prov-out prov.dot note.txt
  medkit config show --format json
  medkit ops`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.Setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().String("config", "", "Path to a medkit.toml configuration file")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")

	// Add commands
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.OpsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
