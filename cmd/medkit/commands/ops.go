package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/display"
)

// OpsCmd lists the operations that pipeline definitions can reference
var OpsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List registered operations",
	Long:  `List the operations available to the "operation" field of pipeline definitions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := operation.DefaultRegistry().Metadata()
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(cmd.OutOrStdout(), ops)
		}
		return display.RenderOperations(cmd.OutOrStdout(), ops)
	},
}
