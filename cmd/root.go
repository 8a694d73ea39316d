// =============================================================================
// FEWS-RORB Adapter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The adapter runs as
// two one-shot subcommands, one per translation direction, both driven by a
// FEWS run info export.
//
// COBRA CLI STRUCTURE:
//   rootCmd (rorbadapter)
//   ├── preadapterCmd  (rorbadapter preadapter)
//   ├── postadapterCmd (rorbadapter postadapter)
//   └── versionCmd     (rorbadapter version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading and validating the adapter configuration
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/config"
	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the adapter configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables verbose logging when set to true.
var verbose bool

// runInfoPath is the FEWS run info export both subcommands are driven by.
var runInfoPath string

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rorbadapter",
	Short: "FEWS-RORB Adapter - Translate between FEWS PI-XML and RORB model files",

	Long: `FEWS-RORB Adapter translates between the Delft-FEWS forecasting platform
and the RORB runoff routing model.

The pre-adapter reads the FEWS PI-XML exports of one forecast run and writes
the complete set of RORB input files (par, stm, catg, snowmelt, gate
operations, transfers, overrides and recorded hydrographs) plus the run
batch file. The post-adapter reads the finished RORB report and per-dam CSV
outputs and writes the combined PI-XML documents FEWS imports.

Example Usage:
  rorbadapter preadapter --runinfo runinfo.xml
  rorbadapter postadapter --runinfo runinfo.xml --config ./adapter.yaml`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the persistent flags shared by all subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"adapter.yaml",
		"Path to the adapter configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose (debug) logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&runInfoPath,
		"runinfo",
		"",
		"Path to the FEWS run info export",
	)
}

// setup loads the configuration, applies the lookup register and builds the
// logger. Both subcommands call it first.
func setup() (*config.Config, *zap.SugaredLogger, error) {
	if runInfoPath == "" {
		return nil, nil, fmt.Errorf("--runinfo is required")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := config.ApplyLookupRegister(cfg); err != nil {
		return nil, nil, err
	}

	log, err := logging.New(verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
