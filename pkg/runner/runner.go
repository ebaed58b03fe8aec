// Package runner drives one rewrite run: build the file index, fan the
// indexed files out over a worker pool, and settle every file's outcome.
package runner

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gnana997/esmfix/pkg/index"
	"github.com/gnana997/esmfix/pkg/resolve"
	"github.com/gnana997/esmfix/pkg/rewrite"
)

// Options configures a run.
type Options struct {
	// JSX selects the .jsx suffix for specifiers resolving to .tsx sources.
	JSX bool

	// Exclude holds extra doublestar patterns pruned during discovery, on
	// top of the vendor-directory default.
	Exclude []string

	// Workers overrides the worker count; 0 selects the CPU-based default.
	Workers int
}

// Runner applies the rewrite to every eligible file under a root.
type Runner struct {
	rewriter  *rewrite.Rewriter
	formatter FileFormatter
	options   Options
	logger    *slog.Logger
}

// NewRunner creates a Runner. formatter may be nil, in which case
// rewritten files are written with the raw spliced text.
func NewRunner(rewriter *rewrite.Rewriter, formatter FileFormatter, options Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		rewriter:  rewriter,
		formatter: formatter,
		options:   options,
		logger:    logger,
	}
}

// Run builds the file index for root once, then processes every indexed
// file concurrently and independently. The run always attempts every file:
// per-file failures land in Stats.Errors and never abort other pipelines.
// Run returns an error only for startup failures (an unwalkable root).
func (r *Runner) Run(root string) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{
		StartTime: startTime,
		Errors:    make([]FileError, 0),
	}

	opts := index.DefaultOptions()
	opts.Exclude = append(opts.Exclude, r.options.Exclude...)

	idx, err := index.Build(root, opts, r.logger)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	stats.FilesScanned = idx.Len()

	r.logger.Info("file index built", "root", idx.Root(), "files", idx.Len())

	if idx.Len() == 0 {
		stats.EndTime = time.Now()
		stats.DurationMs = time.Since(startTime).Milliseconds()
		return stats, nil
	}

	resolver := resolve.New(idx, r.options.JSX)

	pool := NewWorkerPool(r.options.Workers, r.rewriter, resolver, r.formatter, r.logger)
	stats.WorkerCount = pool.numWorkers
	pool.Start()
	defer pool.Stop()

	totalFiles := idx.Len()
	settled := atomic.Int32{}

	// The collector must be running before jobs are submitted: submission
	// blocks when the jobs channel fills, and workers block on the results
	// channel until someone drains it.
	done := make(chan struct{})
	go func() {
		defer close(done)

		for int(settled.Load()) < totalFiles {
			select {
			case result, ok := <-pool.Results():
				if !ok {
					return
				}
				if result.Written {
					stats.FilesRewritten++
				}
				stats.SpecifiersRewritten += result.Rewrites
				settled.Add(1)

			case fileErr, ok := <-pool.Errors():
				if !ok {
					return
				}
				stats.Errors = append(stats.Errors, fileErr)
				stats.FilesFailed++
				settled.Add(1)

				r.logger.Warn("file pipeline failed",
					"file", fileErr.FilePath,
					"error", fileErr.Error)
			}
		}
	}()

	for i, file := range idx.Paths() {
		if err := pool.Submit(FileJob{FilePath: file, JobID: i}); err != nil {
			return nil, fmt.Errorf("failed to submit job for %s: %w", file, err)
		}
	}
	pool.FinishSubmitting()

	<-done

	stats.EndTime = time.Now()
	stats.DurationMs = time.Since(startTime).Milliseconds()

	r.logger.Info("run complete",
		"files_scanned", stats.FilesScanned,
		"files_rewritten", stats.FilesRewritten,
		"files_failed", stats.FilesFailed,
		"specifiers_rewritten", stats.SpecifiersRewritten,
		"duration_ms", stats.DurationMs)

	return stats, nil
}
