// Package store provides the SQLite session store and the on-disk layout of
// trustloop's data directories.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of trustloop's data directory.
const DirName = ".trustloop"

// GlobalPath returns the path to the global .trustloop directory.
// On Unix: ~/.trustloop
// On Windows: %USERPROFILE%\.trustloop
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the path to the local .trustloop directory for the given
// project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// SessionsDir is where the file backend keeps session state.
func SessionsDir(projectRoot string) string {
	return filepath.Join(LocalPath(projectRoot), "sessions")
}

// DBPath is the SQLite backend's database file.
func DBPath(projectRoot string) string {
	return filepath.Join(LocalPath(projectRoot), "trustloop.db")
}

// EnsureGlobalDir creates the global .trustloop directory if it doesn't exist.
func EnsureGlobalDir() error {
	globalPath, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(globalPath, 0700); err != nil {
		return fmt.Errorf("failed to create global %s directory: %w", DirName, err)
	}
	return nil
}
