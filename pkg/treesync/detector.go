package treesync

import (
	"time"

	"github.com/quietbyte/dirsync/pkg/fingerprint"
)

// modTimeWindow is the tolerance within which two modification times are
// considered equal during the metadata fallback. It absorbs filesystems
// with coarse timestamp resolution.
const modTimeWindow = int64(time.Second)

// Differs decides whether the destination needs updating. dst is nil when
// no destination counterpart exists.
//
// Decision order, first applicable rule wins:
//  1. Destination absent: the file must be created.
//  2. Both content hashes available: compare hashes. This is authoritative,
//     correct even when copy tools or filesystems mangle timestamps.
//  3. Hash unavailable on either side: fall back to metadata. Any size
//     mismatch or a modification-time gap beyond the tolerance window
//     counts as different; only a close match calls the files identical.
func Differs(src fingerprint.FileRecord, dst *fingerprint.FileRecord) bool {
	if dst == nil {
		return true
	}

	if src.ContentHash != "" && dst.ContentHash != "" {
		return src.ContentHash != dst.ContentHash
	}

	if src.Size != dst.Size {
		return true
	}
	delta := src.ModTime - dst.ModTime
	if delta < 0 {
		delta = -delta
	}
	return delta > modTimeWindow
}
