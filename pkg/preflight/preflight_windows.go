//go:build windows

package preflight

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// platformFreeBytes reports the bytes available to the calling user on the
// volume holding path.
func platformFreeBytes(path string) (int64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}
	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(p, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, fmt.Errorf("GetDiskFreeSpaceEx failed for %s: %w", path, err)
	}
	return int64(freeBytesAvailable), nil
}
