// =============================================================================
// FEWS-RORB Adapter - File Manager Utility
// =============================================================================
//
// File handling shared by the pre- and post-adapter:
//   - Directory management for the model folder
//   - Unique temporary file naming for intermediate PI documents
//   - Cleanup of intermediate files after document concatenation
//   - RORB run batch file generation
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureDir creates the directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// TempFileName returns a unique file name inside dir, patterned
// "<prefix>_<uuid><ext>". The file is not created.
func TempFileName(dir, prefix, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, uuid.New().String(), ext))
}

// RemoveFiles deletes every named file, stopping at the first failure.
func RemoveFiles(paths []string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// WriteRunBatch writes the Windows batch file RORB is launched with: change
// into the model folder, then run the executable against the par file.
func WriteRunBatch(batchPath, modelFolder, rorbExe, parFile string) error {
	content := fmt.Sprintf("@echo off\r\nset model_folder=%s\r\ncd /d %%model_folder%%\r\n%s %s\r\n",
		modelFolder, rorbExe, parFile)

	if err := os.WriteFile(batchPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write batch file %s: %w", batchPath, err)
	}
	return nil
}
