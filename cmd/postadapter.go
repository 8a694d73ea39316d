// =============================================================================
// FEWS-RORB Adapter - Post-Adapter Command
// =============================================================================
//
// This file defines the 'postadapter' command: RORB outputs in, FEWS PI-XML
// documents out.
//
// COMMAND USAGE:
//   rorbadapter postadapter --runinfo <runinfo.xml> [--config <adapter.yaml>]
//
// PIPELINE:
//   1. Load and validate the adapter configuration
//   2. Translate every per-dam CSV into the reservoir operation document
//   3. Parse the RORB report for rainfall excess and gauge flow
//   4. Combine intermediate documents and clean them up
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/adapter"
)

// postadapterCmd represents the 'postadapter' command.
var postadapterCmd = &cobra.Command{
	Use:   "postadapter",
	Short: "Translate RORB outputs into FEWS PI-XML documents",
	Long: `The postadapter command reads the RORB report and the per-dam CSV outputs
of one finished model run and writes the three combined PI-XML documents
FEWS imports: reservoir operation, rainfall excess and gauge flow.

The report is parsed against the exact section markers RORB prints; any
structural surprise in the report aborts the run rather than importing a
partial result.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		return adapter.NewPostAdapter(cfg, log).Run(runInfoPath)
	},
}

// init registers the postadapter command with the root command.
func init() {
	rootCmd.AddCommand(postadapterCmd)
}
