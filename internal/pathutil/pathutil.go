// Package pathutil provides path redaction for messages and containment
// checks used to tell scratch locations from project files.
package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned by Resolve for "".
	ErrEmptyPath = errors.New("empty path")
	// ErrNullByte is returned by Resolve for paths carrying a NUL.
	ErrNullByte = errors.New("path contains null byte")
)

// RedactPath shortens a path to .../<parent>/<base> so messages never leak
// a user's home layout.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// Resolve returns the absolute form of path with symlinks evaluated on its
// deepest existing ancestor. The path itself need not exist.
func Resolve(path string) (string, error) {
	switch {
	case path == "":
		return "", ErrEmptyPath
	case strings.ContainsRune(path, 0):
		return "", ErrNullByte
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var tail []string
	for cur := abs; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

// IsWithin reports whether path resolves to one of dirs or somewhere
// below it.
func IsWithin(path string, dirs []string) bool {
	target, err := Resolve(path)
	if err != nil {
		return false
	}
	for _, d := range dirs {
		base, err := Resolve(d)
		if err != nil {
			continue
		}
		if target == base || strings.HasPrefix(target, base+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// DefaultScratchDirs returns the locations writable at every tier: the
// system temp directory and <projectRoot>/.trustloop/scratch.
func DefaultScratchDirs(projectRoot string) []string {
	dirs := []string{os.TempDir()}
	if projectRoot != "" {
		dirs = append(dirs, filepath.Join(projectRoot, ".trustloop", "scratch"))
	}
	return dirs
}
