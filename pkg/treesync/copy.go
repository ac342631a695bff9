package treesync

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/quietbyte/dirsync/pkg/plog"
	"github.com/quietbyte/dirsync/pkg/util"
)

// ensureDir makes sure the destination directory for relDir exists, creating
// it (or simulating the creation) at most once per run. Concurrent workers
// targeting the same directory collapse onto a single creation via
// singleflight; the createdDirs set short-circuits every later call.
func (t *syncTask) ensureDir(relDir, absDir string) error {
	if t.createdDirs.Has(relDir) {
		return nil
	}

	_, err, _ := t.dirGroup.Do(relDir, func() (any, error) {
		if t.createdDirs.Has(relDir) {
			return nil, nil
		}

		if _, err := os.Stat(absDir); err == nil {
			t.createdDirs.Store(relDir, struct{}{})
			return nil, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot stat directory %s: %w", absDir, err)
		}

		if t.opts.Simulate {
			plog.Notice("[SIMULATE] DIR", "path", util.SafePathValue(relDir))
		} else {
			if err := os.MkdirAll(absDir, util.UserWritableDirPerms); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", absDir, err)
			}
			plog.Notice("DIR", "path", util.SafePathValue(relDir))
		}
		t.stats.DirsCreated.Add(1)
		t.createdDirs.Store(relDir, struct{}{})
		return nil, nil
	})
	return err
}

// copyFile brings the destination up to date with one source file. In
// simulate mode it only logs the action; otherwise it writes through a
// temporary file in the target directory and renames it into place, so a
// crash mid-copy never leaves a truncated destination file. Mode bits (plus
// user-write) and the modification time are carried over from the source.
func (t *syncTask) copyFile(item *syncItem, absDstPath string, dstInfo fs.FileInfo) error {
	relDir := filepath.ToSlash(filepath.Dir(item.relPath))
	if err := t.ensureDir(relDir, filepath.Dir(absDstPath)); err != nil {
		return err
	}

	if t.opts.Simulate {
		plog.Notice("[SIMULATE] COPY", "path", util.SafePathValue(item.relPath), "size", util.ByteCountIEC(item.info.Size()))
		return nil
	}

	if dstInfo != nil && !dstInfo.Mode().IsRegular() {
		// A directory or special file squats on the target path.
		plog.Warn("Removing conflicting destination entry", "path", util.SafePathValue(item.relPath), "mode", dstInfo.Mode().String())
		if err := os.RemoveAll(absDstPath); err != nil {
			return fmt.Errorf("failed to remove conflicting entry %s: %w", absDstPath, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.opts.RetryCount; attempt++ {
		if attempt > 0 {
			plog.Warn("Retrying copy", "path", util.SafePathValue(item.relPath), "attempt", attempt, "error", lastErr)
			select {
			case <-t.ctx.Done():
				return t.ctx.Err()
			case <-time.After(t.opts.RetryWait):
			}
		}
		if lastErr = t.copyOnce(item, absDstPath); lastErr == nil {
			plog.Notice("COPY", "path", util.SafePathValue(item.relPath), "size", util.ByteCountIEC(item.info.Size()))
			return nil
		}
	}
	return lastErr
}

// copyOnce performs a single safe-copy attempt.
func (t *syncTask) copyOnce(item *syncItem, absDstPath string) error {
	srcFile, err := os.Open(item.absPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(absDstPath), ".dirsync-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmpFile.Name()
	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}

	bufPtr := t.ioBufferPool.Get().(*[]byte)
	_, err = io.CopyBuffer(tmpFile, srcFile, *bufPtr)
	t.ioBufferPool.Put(bufPtr)
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to copy contents: %w", err)
	}

	if err := tmpFile.Chmod(util.WithUserWritePermission(item.info.Mode().Perm())); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize temporary file: %w", err)
	}

	modTime := item.info.ModTime()
	if err := os.Chtimes(tmpPath, modTime, modTime); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set modification time: %w", err)
	}

	if err := os.Rename(tmpPath, absDstPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
