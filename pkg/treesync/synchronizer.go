// Package treesync implements one-way directory synchronization: it mirrors
// a source tree into a destination tree, copying only files that are new or
// changed, skipping platform-junk names, and consulting a persistent
// fingerprint cache to avoid re-hashing unchanged files.
package treesync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quietbyte/dirsync/pkg/fingerprint"
	"github.com/quietbyte/dirsync/pkg/hashcache"
	"github.com/quietbyte/dirsync/pkg/plog"
	"github.com/quietbyte/dirsync/pkg/preflight"
	"github.com/quietbyte/dirsync/pkg/sharded"
	"github.com/quietbyte/dirsync/pkg/util"
)

// copyBufferSize is the pooled buffer size for file copies.
const copyBufferSize = 256 << 10 // 256 KiB

// Options configures a Synchronizer.
type Options struct {
	// Simulate replaces every mutating action with a no-op that still
	// updates the same statistics counters.
	Simulate bool
	// Workers is the size of the sync worker pool. Defaults to 4.
	Workers int
	// RetryCount is the number of retries for a failed file copy.
	RetryCount int
	// RetryWait is the pause between copy retries.
	RetryWait time.Duration
	// Exclusions is the set of literal names pruned from the run.
	// A zero value means the built-in platform-junk set.
	Exclusions ExclusionSet
	// Reporter receives progress and summary callbacks. Defaults to
	// NoopReporter.
	Reporter Reporter
}

// Synchronizer mirrors a source directory tree into a destination tree.
type Synchronizer struct {
	src   string
	dst   string
	cache *hashcache.Cache
	opts  Options

	hasher       *fingerprint.Hasher
	ioBufferPool *sync.Pool
}

// New creates a Synchronizer for one source/destination pair. Both paths
// are resolved to absolute form; the source is additionally symlink-resolved
// so cache keys stay stable across differing invocation directories.
func New(source, destination string, cache *hashcache.Cache, opts Options) (*Synchronizer, error) {
	src, err := util.ResolvePath(source)
	if err != nil {
		return nil, err
	}
	dst, err := util.ResolvePath(destination)
	if err != nil {
		return nil, err
	}

	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Exclusions.names == nil {
		opts.Exclusions = NewExclusionSet()
	}
	if opts.Reporter == nil {
		opts.Reporter = NoopReporter{}
	}

	return &Synchronizer{
		src:   src,
		dst:   dst,
		cache: cache,
		opts:  opts,
		hasher: fingerprint.NewHasher(),
		ioBufferPool: &sync.Pool{
			New: func() any {
				buf := make([]byte, copyBufferSize)
				return &buf
			},
		},
	}, nil
}

// syncTask holds the mutable state for a single run, so the Synchronizer
// itself stays reusable. There are no ambient globals: statistics, the
// created-directory set, and progress counters all live here.
type syncTask struct {
	*Synchronizer

	ctx   context.Context
	stats *RunStatistics

	total     int64
	processed atomic.Int64

	// createdDirs tracks destination directories already known to exist,
	// keyed by relative path. Combined with dirGroup it makes directory
	// creation idempotent under the concurrent worker pool.
	createdDirs *sharded.Map[struct{}]
	dirGroup    singleflight.Group
}

// Run executes the synchronization state machine:
// validate, count, sync, finalize.
//
// The fingerprint cache is persisted best-effort once the run has started,
// including simulate-mode runs: hashing already happened to decide what
// would be copied, no destination content is altered, and keeping the
// computed hashes makes the next real run fast. On cancellation the entries
// fingerprinted so far are still persisted.
func (s *Synchronizer) Run(ctx context.Context) (StatsSnapshot, error) {
	start := time.Now()

	t := &syncTask{
		Synchronizer: s,
		ctx:          ctx,
		stats:        &RunStatistics{},
		createdDirs:  sharded.NewMap[struct{}](),
	}

	// Validation failures are fatal and abort before any work.
	if err := t.initialize(); err != nil {
		return t.stats.Snapshot(), err
	}

	defer s.cache.Persist()

	total, totalBytes, err := t.countFiles()
	if err != nil {
		return t.stats.Snapshot(), err
	}
	t.total = total
	s.opts.Reporter.OnFileCounted(total)
	t.checkFreeSpace(totalBytes)

	if err := t.syncFiles(); err != nil {
		return t.stats.Snapshot(), err
	}

	snap := t.stats.Snapshot()
	s.opts.Reporter.OnRunComplete(snap, time.Since(start).Round(time.Millisecond))
	return snap, nil
}

// initialize validates the endpoints and ensures the destination root
// exists (or, in simulate mode, reports that it would be created).
func (t *syncTask) initialize() error {
	if err := preflight.CheckSourceAccessible(t.src); err != nil {
		return err
	}
	if err := preflight.CheckDestinationAccessible(t.dst); err != nil {
		return err
	}

	if _, err := os.Stat(t.dst); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot stat destination directory %s: %w", t.dst, err)
		}
		if t.opts.Simulate {
			plog.Info("Would create destination directory", "path", t.dst)
		} else {
			if err := os.MkdirAll(t.dst, util.UserWritableDirPerms); err != nil {
				return fmt.Errorf("failed to create destination directory %s: %w", t.dst, err)
			}
			plog.Info("Created destination directory", "path", t.dst)
		}
		t.stats.DirsCreated.Add(1)
	}
	t.createdDirs.Store(".", struct{}{})
	return nil
}

// walkSource traverses the source tree, pruning excluded directories.
// fn is invoked for every non-directory entry; excluded reports whether the
// entry's name matched the exclusion set. Unreadable paths below the root
// are counted as errors and skipped, never aborting the walk.
func (t *syncTask) walkSource(fn func(absPath, relPath string, d fs.DirEntry, excluded bool) error) error {
	return filepath.WalkDir(t.src, func(absPath string, d fs.DirEntry, err error) error {
		select {
		case <-t.ctx.Done():
			return t.ctx.Err()
		default:
		}

		if err != nil {
			if absPath == t.src {
				return fmt.Errorf("source root is unreadable: %w", err)
			}
			t.stats.Errors.Add(1)
			plog.Warn("SKIP", "reason", "error accessing path", "path", util.SafePathValue(absPath), "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if absPath == t.src {
			return nil
		}

		relPath, err := filepath.Rel(t.src, absPath)
		if err != nil {
			return fmt.Errorf("could not get relative path for %s: %w", absPath, err)
		}
		relPath = filepath.ToSlash(relPath)

		excluded := t.opts.Exclusions.Contains(d.Name())
		if d.IsDir() {
			if excluded {
				// Pruned entirely: contents are never visited or counted.
				plog.Notice("EXCL", "path", relPath)
				return fs.SkipDir
			}
			return nil
		}
		return fn(absPath, relPath, d, excluded)
	})
}

// countFiles performs the counting pass: a full traversal purely to produce
// the total file count for progress reporting (plus the total byte size for
// the free-space advisory). It touches neither the cache nor any hashes.
func (t *syncTask) countFiles() (count, bytes int64, err error) {
	err = t.walkSource(func(absPath, relPath string, d fs.DirEntry, excluded bool) error {
		if excluded || !d.Type().IsRegular() {
			return nil
		}
		count++
		if info, err := d.Info(); err == nil {
			bytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, bytes, nil
}

// checkFreeSpace logs an advisory warning when the destination volume holds
// less free space than the source tree's total size. The sync proceeds
// regardless; individual copies fail (and are counted) when space runs out.
func (t *syncTask) checkFreeSpace(neededBytes int64) {
	free, err := preflight.FreeBytes(t.dst)
	if err != nil {
		plog.Debug("Free-space check unavailable", "path", t.dst, "error", err)
		return
	}
	if free < neededBytes {
		plog.Warn("Destination volume may run out of space",
			"free", util.ByteCountIEC(free),
			"source_total", util.ByteCountIEC(neededBytes))
	}
}

// syncFiles re-traverses the source identically to the counting pass and
// feeds every non-excluded regular file to the worker pool.
func (t *syncTask) syncFiles() error {
	items := make(chan *syncItem, t.opts.Workers*64)
	walkErrs := make(chan error, 1)

	go func() {
		defer close(items)
		err := t.walkSource(func(absPath, relPath string, d fs.DirEntry, excluded bool) error {
			if excluded {
				t.stats.FilesExcluded.Add(1)
				plog.Notice("EXCL", "path", util.SafePathValue(relPath))
				return nil
			}
			info, err := d.Info()
			if err != nil {
				t.stats.Errors.Add(1)
				plog.Warn("SKIP", "reason", "failed to get file info", "path", util.SafePathValue(relPath), "error", err)
				return nil
			}
			if !info.Mode().IsRegular() {
				// Symlinks, pipes, sockets are not mirrored.
				plog.Notice("SKIP", "type", info.Mode().String(), "path", util.SafePathValue(relPath))
				return nil
			}

			select {
			case items <- &syncItem{absPath: absPath, relPath: relPath, info: info}:
				return nil
			case <-t.ctx.Done():
				return t.ctx.Err()
			}
		})
		if err != nil {
			select {
			case walkErrs <- err:
			default:
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < t.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-t.ctx.Done():
					return
				case item, ok := <-items:
					if !ok {
						return
					}
					t.processFile(item)
				}
			}
		}()
	}
	wg.Wait()

	select {
	case err := <-walkErrs:
		return err
	default:
	}
	return t.ctx.Err()
}

// syncItem carries one source file from the walker to a worker.
type syncItem struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

// processFile compares one source file with its destination counterpart and
// copies it when they differ. Per-file failures are isolated: they increment
// the error counter and never abort the run.
func (t *syncTask) processFile(item *syncItem) {
	t.stats.FilesChecked.Add(1)
	defer func() {
		processed := t.processed.Add(1)
		t.opts.Reporter.OnFileProcessed(item.relPath, processed, t.total)
	}()

	srcRec := t.record(item.absPath, item.info)

	absDstPath := filepath.Join(t.dst, filepath.FromSlash(item.relPath))
	var dstRec *fingerprint.FileRecord
	var dstInfo fs.FileInfo
	if info, err := os.Stat(absDstPath); err == nil {
		dstInfo = info
		if info.Mode().IsRegular() {
			rec := t.record(absDstPath, info)
			dstRec = &rec
		}
		// A non-regular destination is treated as absent; the copy path
		// removes the conflicting entry first.
	} else if !os.IsNotExist(err) {
		t.stats.Errors.Add(1)
		plog.Warn("Failed to stat destination", "path", util.SafePathValue(absDstPath), "error", err)
	}

	if !Differs(srcRec, dstRec) {
		t.stats.FilesSkipped.Add(1)
		plog.Debug("Skipped (unchanged)", "path", util.SafePathValue(item.relPath))
		return
	}

	if err := t.copyFile(item, absDstPath, dstInfo); err != nil {
		t.stats.Errors.Add(1)
		plog.Warn("Failed to copy file", "path", util.SafePathValue(item.relPath), "error", err)
		return
	}
	t.stats.FilesCopied.Add(1)
	t.stats.BytesCopied.Add(srcRec.Size)
}

// record builds a cache-accelerated FileRecord for path. When the cached
// entry is still valid evidence (size and mtime match) its hash is reused;
// otherwise the content is re-hashed and the cache entry overwritten. A
// hashing failure leaves the empty-hash sentinel in the record and counts
// one error.
func (t *syncTask) record(absPath string, info fs.FileInfo) fingerprint.FileRecord {
	rec := fingerprint.NewRecord(absPath, info)

	if entry, ok := t.cache.LookupValid(absPath, rec.Size, rec.ModTime); ok {
		rec.ContentHash = entry.ContentHash
		return rec
	}

	hash, err := t.hasher.Hash(absPath)
	if err != nil {
		t.stats.Errors.Add(1)
		plog.Warn("Failed to fingerprint file", "path", util.SafePathValue(absPath), "error", err)
	}
	rec.ContentHash = hash
	t.cache.Update(rec)
	return rec
}
