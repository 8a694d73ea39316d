// =============================================================================
// FEWS-RORB Adapter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the FEWS-RORB Adapter CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   rorbadapter preadapter  - Translate FEWS exports into RORB input files
//   rorbadapter postadapter - Translate RORB outputs into FEWS PI-XML
//   rorbadapter version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core business logic (not for external import)
//   - pkg/       : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/H-A-R-C/FEWS-RORB-Adapter/cmd"
)

// main simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
