package display

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// JSONEnv forces JSON output when set to a true value
const JSONEnv = "MEDKIT_JSON"

// ShouldOutputJSON determines if a command should output JSON based on its
// --json flag, falling back to the MEDKIT_JSON environment variable
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil {
		// Check if --json flag was explicitly set
		if cmd.Flags().Changed("json") {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			return jsonFlag
		}

		// Check global --json flag
		if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
			return true
		}
	}

	enabled, _ := strconv.ParseBool(os.Getenv(JSONEnv))
	return enabled
}

// OutputJSON marshals v with MarshalJSON and writes it to w
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
