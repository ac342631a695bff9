package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Permission constants for file and directory modes.
const (
	// PermUserWrite is the user-write permission bit (0200).
	PermUserWrite os.FileMode = 0200

	// UserWritableDirPerms represents the standard permissions for newly created directories (rwxr-xr-x).
	UserWritableDirPerms os.FileMode = 0755
)

// WithUserWritePermission ensures that any directory/file permission has the owner-write
// bit (0200) set. This prevents the sync user from being locked out on subsequent runs.
func WithUserWritePermission(basePerm os.FileMode) os.FileMode {
	return basePerm | PermUserWrite
}

// ResolvePath returns the absolute, symlink-free form of path. Symlink
// resolution is best-effort: if the path (or a parent) cannot be resolved,
// the absolute form is returned instead so callers always get a usable key.
func ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not make path absolute %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// SafePathValue returns a representation of path that is safe for text log
// output. Paths that are not valid UTF-8 are reduced to their basename with
// invalid bytes replaced, so a log call never fails on an odd filename.
func SafePathValue(path string) string {
	if utf8.ValidString(path) {
		return path
	}
	base := filepath.Base(path)
	return strings.ToValidUTF8(base, string(utf8.RuneError)) + " (non-UTF-8 path)"
}

// ByteCountIEC formats a byte count as a human readable string using
// binary (1024-based) units, e.g. "1.5 MiB".
func ByteCountIEC(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
