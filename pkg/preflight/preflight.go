// Package preflight provides validation checks that run before a sync
// begins. The checks are stateless: they never modify the filesystem.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckSourceAccessible validates that the source path exists and is a
// directory. Failure here is fatal for the run: no work may start from an
// invalid source.
func CheckSourceAccessible(srcPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source directory %s does not exist", srcPath)
		}
		return fmt.Errorf("cannot stat source directory %s: %w", srcPath, err)
	}

	if !srcInfo.IsDir() {
		return fmt.Errorf("source path %s is not a directory", srcPath)
	}

	return nil
}

// CheckDestinationAccessible performs pre-flight checks on the destination.
// It provides friendlier errors than letting os.MkdirAll fail later.
//
//  1. If the destination exists, it must be a directory.
//  2. If it does not exist, its deepest existing ancestor must be reachable
//     so the synchronizer can create the missing levels.
func CheckDestinationAccessible(dstPath string) error {
	info, err := os.Stat(dstPath)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("destination path exists but is not a directory: %s", dstPath)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access destination path %s: %w", dstPath, err)
	}

	// Destination doesn't exist. Walk up to the deepest existing ancestor
	// and make sure it is an accessible directory.
	ancestor := filepath.Dir(dstPath)
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("destination ancestor %s exists but is not a directory", ancestor)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access destination ancestor %s: %w", ancestor, err)
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return fmt.Errorf("no accessible ancestor found for destination %s", dstPath)
		}
		ancestor = parent
	}
}

// FreeBytes reports the number of bytes available to the current user on
// the volume holding path. The path (or an existing ancestor of it) must
// exist. Used for the advisory low-space warning before copying starts.
func FreeBytes(path string) (int64, error) {
	// Resolve to an existing directory; the destination itself may not
	// exist yet.
	probe := path
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return 0, fmt.Errorf("no existing ancestor found for %s", path)
		}
		probe = parent
	}
	return platformFreeBytes(probe)
}
