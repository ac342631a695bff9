package plog

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// maxLogSize is the size at which the previous log file is rotated away
// before new output is appended.
const maxLogSize = 10 << 20 // 10 MiB

// rotateIfOversized compresses an oversized log at path into path+".gz"
// (replacing any earlier rotation) and removes the original, so the next
// append starts a fresh file.
func rotateIfOversized(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < maxLogSize {
		return nil
	}

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log for rotation: %w", err)
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return fmt.Errorf("failed to create rotated log: %w", err)
	}
	defer out.Close()

	gzWriter, err := pgzip.NewWriterLevel(out, pgzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := io.Copy(gzWriter, in); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to compress rotated log: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize rotated log: %w", err)
	}

	in.Close()
	return os.Remove(path)
}
