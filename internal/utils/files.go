package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// Standard default permissions
// File: u=rw, g=rw, o=r
const PermFile os.FileMode = 0664

// Dir:  u=rwx, g=rwx, o=rx (Requires +x to traverse)
const PermDir os.FileMode = 0775

// Exec: u=rwx, g=rwx, o=rx
const PermExec os.FileMode = 0775

// FileExists checks whether a path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks whether a path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(path string) error {
	if DirExists(path) {
		return nil
	}
	if err := os.MkdirAll(path, PermDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// FileSize returns the size of a file in bytes, or 0 if it cannot be stat'd.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// IsScriptFile reports whether a path looks like a shell or scheduler script
// that needs LF line endings on the cluster side.
func IsScriptFile(path string) bool {
	switch filepath.Ext(path) {
	case ".sh", ".slurm", ".sbatch", ".pbs":
		return true
	}
	return false
}
