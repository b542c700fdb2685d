package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// ArchiveDirName is the per-user directory that holds the default archive.
const ArchiveDirName = ".reciprocity"

// DefaultArchivePath returns ~/.reciprocity/runs.db.
// On Windows: %USERPROFILE%\.reciprocity\runs.db
func DefaultArchivePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ArchiveDirName, "runs.db"), nil
}

// ensureParentDir creates the directory that will hold path.
func ensureParentDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	return nil
}
