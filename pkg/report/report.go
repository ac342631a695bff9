// Package report renders synchronization progress and the end-of-run
// summary. It is the only package that draws to the terminal; the sync core
// just emits callbacks.
package report

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/quietbyte/dirsync/pkg/plog"
	"github.com/quietbyte/dirsync/pkg/treesync"
	"github.com/quietbyte/dirsync/pkg/util"
)

// ConsoleReporter shows a progress bar during the sync phase and logs a
// statistics summary when the run completes. In verbose mode the bar is
// suppressed so it does not interleave with per-file log lines.
type ConsoleReporter struct {
	verbose  bool
	simulate bool
	bar      *progressbar.ProgressBar
}

// NewConsoleReporter creates a reporter for an interactive run.
func NewConsoleReporter(verbose, simulate bool) *ConsoleReporter {
	return &ConsoleReporter{verbose: verbose, simulate: simulate}
}

// OnFileCounted logs the counting-pass result and arms the progress bar.
func (r *ConsoleReporter) OnFileCounted(total int64) {
	plog.Info("Counted source files", "files", total)
	if r.verbose || total == 0 {
		return
	}
	r.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("Syncing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// OnFileProcessed advances the progress bar. The bar serializes concurrent
// Add calls internally, so workers may call this directly.
func (r *ConsoleReporter) OnFileProcessed(relPath string, processed, total int64) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// OnRunComplete clears the bar and logs the summary.
func (r *ConsoleReporter) OnRunComplete(stats treesync.StatsSnapshot, elapsed time.Duration) {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}

	msg := "Synchronization complete"
	if r.simulate {
		msg = "[SIMULATE] Synchronization complete, no changes were made"
	}
	plog.Info(msg,
		"checked", stats.FilesChecked,
		"copied", stats.FilesCopied,
		"skipped", stats.FilesSkipped,
		"excluded", stats.FilesExcluded,
		"dirs_created", stats.DirsCreated,
		"bytes_copied", util.ByteCountIEC(stats.BytesCopied),
		"errors", stats.Errors,
		"elapsed", elapsed,
	)
	if stats.Errors > 0 {
		plog.Warn("Run finished with errors, see the log file for details", "errors", stats.Errors)
	}
}

var _ treesync.Reporter = (*ConsoleReporter)(nil)
