//go:build !windows

package preflight

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// platformFreeBytes reports the bytes available to an unprivileged user on
// the filesystem holding path.
func platformFreeBytes(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs failed for %s: %w", path, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
