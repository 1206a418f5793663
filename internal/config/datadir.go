package config

import (
	"os"
	"path/filepath"
)

// DataDirEnv overrides the local data directory used for standalone operation.
const DataDirEnv = "BIOMED_DQ_DATA_DIR"

// DataDir returns the base directory for local data files: the archive
// database and JSON exports. It requires no external services.
func DataDir() string {
	if v := os.Getenv(DataDirEnv); v != "" {
		return v
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".biomed-dq"
	}
	return filepath.Join(homeDir, ".biomed-dq")
}

// DefaultArchivePath returns the path of the SQLite report archive.
func DefaultArchivePath() string {
	return filepath.Join(DataDir(), "reports.db")
}

// ExportDir returns the directory for JSON exports.
func ExportDir() string {
	return filepath.Join(DataDir(), "exports")
}

// EnsureDataDir creates the data and export directories if they don't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0755); err != nil {
		return err
	}
	return os.MkdirAll(ExportDir(), 0755)
}
