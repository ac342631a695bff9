// Package fingerprint computes content fingerprints for files. A fingerprint
// is the tuple (size, modification time, content hash) identifying a file's
// content state at a point in time.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/djherbis/times"
)

// hashChunkSize is the read block size used while streaming file content
// into the hash. It bounds memory use regardless of file size.
const hashChunkSize = 8192

// FileRecord represents the observable state of one file at a point in time.
type FileRecord struct {
	// Path is the absolute, symlink-resolved location of the file.
	Path string
	// Size is the byte length of the file.
	Size int64
	// ModTime is the modification time in Unix nanoseconds.
	ModTime int64
	// ContentHash is the hex-encoded SHA-256 digest of the file content.
	// An empty string means the fingerprint is unavailable (the file could
	// not be read), NOT the hash of empty content.
	ContentHash string
}

// Hasher computes streamed SHA-256 content hashes. The zero value is not
// usable; create one with NewHasher. A single Hasher is safe for concurrent
// use: read buffers come from an internal pool.
type Hasher struct {
	bufPool *sync.Pool
}

// NewHasher creates a Hasher with a pooled set of read buffers.
func NewHasher() *Hasher {
	return &Hasher{
		bufPool: &sync.Pool{
			New: func() any {
				buf := make([]byte, hashChunkSize)
				return &buf
			},
		},
	}
}

// Hash reads the file at path in fixed-size blocks and returns the
// hex-encoded SHA-256 digest of its content. On failure it returns an empty
// string and the error; callers treat the empty string as the
// fingerprint-unavailable sentinel and record the failure themselves.
func (h *Hasher) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing %s: %w", path, err)
	}
	defer f.Close()

	bufPtr := h.bufPool.Get().(*[]byte)
	defer h.bufPool.Put(bufPtr)
	buf := *bufPtr
	buf = buf[:cap(buf)]

	digest := sha256.New()
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return "", fmt.Errorf("failed to read file for hashing %s: %w", path, err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// NewRecord builds a FileRecord from stat information, without a content
// hash. The modification time is read through the times package so the
// nanosecond component survives on every platform that provides it.
func NewRecord(absPath string, info fs.FileInfo) FileRecord {
	return FileRecord{
		Path:    absPath,
		Size:    info.Size(),
		ModTime: times.Get(info).ModTime().UnixNano(),
	}
}
