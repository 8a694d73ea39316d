// =============================================================================
// FEWS-RORB Adapter - Pre-Adapter Command
// =============================================================================
//
// This file defines the 'preadapter' command: FEWS exports in, RORB model
// input files out.
//
// COMMAND USAGE:
//   rorbadapter preadapter --runinfo <runinfo.xml> [--config <adapter.yaml>]
//
// PIPELINE:
//   1. Load and validate the adapter configuration
//   2. Compile the run info, parameters, state and series exports
//   3. Fill every RORB input template in the model work directory
//   4. Write the RUN_RORB batch file
//
// Any failure leaves a non-zero exit code for the FEWS general adapter to
// pick up; partially written model folders are never run.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/adapter"
)

// preadapterCmd represents the 'preadapter' command.
var preadapterCmd = &cobra.Command{
	Use:   "preadapter",
	Short: "Translate FEWS exports into RORB model input files",
	Long: `The preadapter command reads the PI-XML exports of one FEWS forecast run
and writes the complete RORB model input set: the par, stm and catg files,
the snowmelt file when the snow switch is on, per-dam gate operations files
with interpolated initial storages, transfer and override files, the
recorded-hydrograph matching file, the combined multi-gate index and the
run batch file.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		return adapter.NewPreAdapter(cfg, log).Run(runInfoPath)
	},
}

// init registers the preadapter command with the root command.
func init() {
	rootCmd.AddCommand(preadapterCmd)
}
