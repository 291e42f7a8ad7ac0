package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile regenerates the descriptor at path. The content goes to a
// temporary file in the same directory which is then renamed over the
// target, so readers never observe a partially written plist.
func WriteFile(path string, d Descriptor) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create descriptor directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp descriptor: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync descriptor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close descriptor: %w", err)
	}
	// launchd refuses group/world-writable agents.
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set descriptor permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to install descriptor: %w", err)
	}
	return nil
}

// Remove deletes the descriptor at path. It reports false when there was
// nothing to delete.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to remove descriptor: %w", err)
}
