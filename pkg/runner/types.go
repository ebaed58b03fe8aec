package runner

import "time"

// FileError records one file pipeline's failure. Failures are collected,
// never propagated: one file's outcome does not affect any other file.
type FileError struct {
	FilePath string
	Error    error
}

// Stats summarizes a completed run.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time

	// FilesScanned is the number of files in the index.
	FilesScanned int

	// FilesRewritten is the number of files whose specifiers changed and
	// were written back.
	FilesRewritten int

	// FilesFailed is the number of files whose pipeline failed.
	FilesFailed int

	// SpecifiersRewritten is the total rewrite count across all files.
	SpecifiersRewritten int

	// WorkerCount is the number of concurrent file pipelines used.
	WorkerCount int

	DurationMs int64

	// Errors holds each failed file's settled outcome.
	Errors []FileError
}
