package browserdriver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFile implements the §4.16 idempotent write primitive: create parent directories
// as needed, then write via a temp-file-plus-rename so a reader never observes a
// partially written file. Calling it twice with identical bytes at the same path is
// safe — the second rename simply replaces the first's output with itself.
func WriteFile(absPath string, data []byte) error {
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("browserdriver: create directory %s: %w", dir, err)
	}

	tmpPath := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("browserdriver: write temp file for %s: %w", absPath, err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("browserdriver: rename temp file into %s: %w", absPath, err)
	}

	return nil
}
