// Package index builds the set of source files eligible for specifier
// rewriting under a target root.
package index

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Options controls file discovery.
type Options struct {
	// Include patterns select eligible source files, matched against the
	// slashed path relative to the root.
	Include []string

	// Exclude patterns prune files and whole directories at any depth.
	Exclude []string
}

// DefaultOptions returns the discovery defaults: TypeScript sources only,
// dependency vendor directories skipped.
func DefaultOptions() Options {
	return Options{
		Include: []string{"**/*.ts", "**/*.tsx"},
		Exclude: []string{"**/node_modules", "**/node_modules/**"},
	}
}

// Index is the set of absolute paths to every eligible source file found
// under the root. Immutable once built; queried by exact membership.
type Index struct {
	root  string
	files map[string]struct{}
	paths []string
}

// Build walks root and collects every file matching the include patterns,
// pruning excluded directories. The returned index holds absolute, cleaned
// paths.
//
// Errors on individual directory entries are logged and skipped; only a
// failure to walk the root itself is returned.
func Build(root string, opts Options, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	for _, pattern := range append(opts.Include, opts.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern: %s", pattern)
		}
	}

	idx := &Index{
		root:  absRoot,
		files: make(map[string]struct{}),
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			logger.Warn("walk error", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		for _, pattern := range opts.Exclude {
			if matched, _ := doublestar.PathMatch(pattern, relPath); matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		for _, pattern := range opts.Include {
			if matched, _ := doublestar.PathMatch(pattern, relPath); matched {
				idx.add(path)
				return nil
			}
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, walkErr)
	}

	logger.Debug("file index built", "root", absRoot, "files", idx.Len())

	return idx, nil
}

func (idx *Index) add(path string) {
	path = filepath.Clean(path)
	if _, ok := idx.files[path]; ok {
		return
	}
	idx.files[path] = struct{}{}
	idx.paths = append(idx.paths, path)
}

// Root returns the absolute root the index was built from.
func (idx *Index) Root() string {
	return idx.root
}

// Has reports whether the exact absolute path is in the index.
func (idx *Index) Has(path string) bool {
	_, ok := idx.files[filepath.Clean(path)]
	return ok
}

// Paths returns all indexed file paths in discovery order.
func (idx *Index) Paths() []string {
	return idx.paths
}

// Len returns the number of indexed files.
func (idx *Index) Len() int {
	return len(idx.paths)
}
