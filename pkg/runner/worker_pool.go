package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gnana997/esmfix/pkg/resolve"
	"github.com/gnana997/esmfix/pkg/rewrite"
	"github.com/gnana997/esmfix/pkg/util"
)

// FileJob is one file to be rewritten by the worker pool.
type FileJob struct {
	FilePath string
	JobID    int
}

// FileResult is the settled outcome of one successful file pipeline.
type FileResult struct {
	FilePath string
	Rewrites int
	Written  bool
	JobID    int
}

// FileFormatter formats rewritten source before it is written back.
// Satisfied by *prettier.Formatter.
type FileFormatter interface {
	Format(ctx context.Context, filePath string, source []byte) ([]byte, error)
}

// WorkerPool runs independent per-file rewrite pipelines concurrently.
//
// Each worker owns one file at a time and performs the whole pipeline for
// it: read, rewrite, optionally format, write-if-changed. The only shared
// state is the read-only resolver; there is no coordination between files
// and no ordering guarantee among them.
type WorkerPool struct {
	numWorkers int
	jobs       chan FileJob
	results    chan FileResult
	errors     chan FileError
	wg         sync.WaitGroup

	rewriter  *rewrite.Rewriter
	resolver  *resolve.Resolver
	formatter FileFormatter
	logger    *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	started    atomic.Bool
	stopped    atomic.Bool
	jobsClosed atomic.Bool

	jobsSubmitted atomic.Int64
	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
}

// NewWorkerPool creates a worker pool. numWorkers of 0 selects
// util.GetOptimalPoolSize(), which matches the parser pool size so a
// worker never blocks waiting for a parser. formatter may be nil.
func NewWorkerPool(numWorkers int, rewriter *rewrite.Rewriter, resolver *resolve.Resolver, formatter FileFormatter, logger *slog.Logger) *WorkerPool {
	numWorkers = util.GetOptimalPoolSizeWithOverride(numWorkers)

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan FileJob, numWorkers*2),
		results:    make(chan FileResult, numWorkers),
		errors:     make(chan FileError, numWorkers),
		rewriter:   rewriter,
		resolver:   resolver,
		formatter:  formatter,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start spawns all worker goroutines. Must be called before Submit.
func (wp *WorkerPool) Start() {
	if !wp.started.CompareAndSwap(false, true) {
		wp.logger.Warn("worker pool already started")
		return
	}

	wp.logger.Debug("starting worker pool", "workers", wp.numWorkers)

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processJob(id, job)
		}
	}
}

// processJob runs one file's pipeline: read, rewrite, optionally format,
// write back only when a specifier actually changed. A file with zero
// rewrites is never opened for writing.
func (wp *WorkerPool) processJob(workerID int, job FileJob) {
	info, err := os.Stat(job.FilePath)
	if err != nil {
		wp.fail(job, fmt.Errorf("failed to stat file: %w", err))
		return
	}

	source, err := os.ReadFile(job.FilePath)
	if err != nil {
		wp.fail(job, fmt.Errorf("failed to read file: %w", err))
		return
	}

	result, err := wp.rewriter.RewriteSource(wp.resolver, job.FilePath, source)
	if err != nil {
		wp.fail(job, fmt.Errorf("rewrite failed: %w", err))
		return
	}

	written := false
	if result.Rewrites > 0 {
		output := result.Output

		if wp.formatter != nil {
			output, err = wp.formatter.Format(wp.ctx, job.FilePath, output)
			if err != nil {
				wp.fail(job, err)
				return
			}
		}

		if err := os.WriteFile(job.FilePath, output, info.Mode().Perm()); err != nil {
			wp.fail(job, fmt.Errorf("failed to write file: %w", err))
			return
		}
		written = true

		wp.logger.Debug("rewrote file",
			"worker_id", workerID,
			"file", job.FilePath,
			"rewrites", result.Rewrites)
	}

	wp.jobsProcessed.Add(1)
	wp.results <- FileResult{
		FilePath: job.FilePath,
		Rewrites: result.Rewrites,
		Written:  written,
		JobID:    job.JobID,
	}
}

func (wp *WorkerPool) fail(job FileJob, err error) {
	wp.jobsFailed.Add(1)
	wp.errors <- FileError{
		FilePath: job.FilePath,
		Error:    err,
	}
}

// Submit enqueues a job. Blocks if the jobs channel is full.
func (wp *WorkerPool) Submit(job FileJob) error {
	if wp.stopped.Load() {
		return fmt.Errorf("worker pool is stopped")
	}

	wp.jobsSubmitted.Add(1)

	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool cancelled")
	case wp.jobs <- job:
		return nil
	}
}

// Results returns the results channel.
func (wp *WorkerPool) Results() <-chan FileResult {
	return wp.results
}

// Errors returns the errors channel.
func (wp *WorkerPool) Errors() <-chan FileError {
	return wp.errors
}

// FinishSubmitting closes the jobs channel to signal no more jobs will be
// submitted, letting workers exit once the channel drains. Idempotent.
func (wp *WorkerPool) FinishSubmitting() {
	if wp.jobsClosed.CompareAndSwap(false, true) {
		close(wp.jobs)
	}
}

// Stop shuts the pool down: closes the jobs channel if still open, waits
// for in-flight jobs, then closes the result and error channels.
// Idempotent.
func (wp *WorkerPool) Stop() {
	if !wp.stopped.CompareAndSwap(false, true) {
		return
	}

	if wp.jobsClosed.CompareAndSwap(false, true) {
		close(wp.jobs)
	}

	wp.wg.Wait()

	close(wp.results)
	close(wp.errors)

	wp.cancel()

	wp.logger.Debug("worker pool stopped",
		"jobs_submitted", wp.jobsSubmitted.Load(),
		"jobs_processed", wp.jobsProcessed.Load(),
		"jobs_failed", wp.jobsFailed.Load())
}
