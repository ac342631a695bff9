package treesync

import (
	"sync/atomic"
	"time"
)

// RunStatistics holds the atomic counters for one synchronization run.
// It is owned exclusively by the Synchronizer for the run's duration and is
// never shared across runs or persisted. Counters are atomic because the
// sync phase runs a worker pool.
type RunStatistics struct {
	FilesChecked  atomic.Int64
	FilesCopied   atomic.Int64
	FilesSkipped  atomic.Int64
	FilesExcluded atomic.Int64
	DirsCreated   atomic.Int64
	BytesCopied   atomic.Int64
	Errors        atomic.Int64
}

// Snapshot returns a plain-value copy of the counters for reporting.
func (s *RunStatistics) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FilesChecked:  s.FilesChecked.Load(),
		FilesCopied:   s.FilesCopied.Load(),
		FilesSkipped:  s.FilesSkipped.Load(),
		FilesExcluded: s.FilesExcluded.Load(),
		DirsCreated:   s.DirsCreated.Load(),
		BytesCopied:   s.BytesCopied.Load(),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is an immutable view of RunStatistics handed to the
// Reporting collaborator.
type StatsSnapshot struct {
	FilesChecked  int64
	FilesCopied   int64
	FilesSkipped  int64
	FilesExcluded int64
	DirsCreated   int64
	BytesCopied   int64
	Errors        int64
}

// Reporter is the interface the core consumes for progress display and the
// end-of-run summary. The core holds zero rendering logic; implementations
// must tolerate concurrent OnFileProcessed calls from the worker pool.
type Reporter interface {
	// OnFileCounted delivers the total file count after the counting pass.
	OnFileCounted(total int64)
	// OnFileProcessed is called once per visited, non-excluded file.
	OnFileProcessed(relPath string, processed, total int64)
	// OnRunComplete delivers the final statistics and elapsed duration.
	OnRunComplete(stats StatsSnapshot, elapsed time.Duration)
}

// NoopReporter is a Reporter that performs no operations. Useful for tests
// and for callers that only care about the returned statistics.
type NoopReporter struct{}

func (NoopReporter) OnFileCounted(total int64)                             {}
func (NoopReporter) OnFileProcessed(relPath string, processed, total int64) {}
func (NoopReporter) OnRunComplete(stats StatsSnapshot, elapsed time.Duration) {}

var _ Reporter = (*NoopReporter)(nil)
