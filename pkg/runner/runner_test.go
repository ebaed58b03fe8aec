package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/esmfix/pkg/parser"
	"github.com/gnana997/esmfix/pkg/parser/queries"
	"github.com/gnana997/esmfix/pkg/rewrite"
	"github.com/gnana997/esmfix/pkg/util"
)

func newTestRunner(t *testing.T, formatter FileFormatter, options Options) *Runner {
	t.Helper()

	logger := util.NewLogger(util.DefaultLoggerConfig())

	parsers := parser.NewManager(logger)
	t.Cleanup(func() { parsers.Close() })

	queryMgr := queries.NewManager(parsers, logger)
	t.Cleanup(func() { queryMgr.Close() })

	rewriter := rewrite.NewRewriter(parsers, queryMgr, logger)

	return NewRunner(rewriter, formatter, options, logger)
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunner_RewritesTree(t *testing.T) {
	root := t.TempDir()

	app := writeFile(t, root, "src/app.ts", "import { a } from './a';\nimport { fmt } from './utils';\n")
	writeFile(t, root, "src/a.ts", "export const a = 1;\n")
	writeFile(t, root, "src/utils/index.ts", "export const fmt = () => '';\n")

	r := newTestRunner(t, nil, Options{})

	stats, err := r.Run(root)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FilesScanned)
	assert.Equal(t, 1, stats.FilesRewritten)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 2, stats.SpecifiersRewritten)

	assert.Equal(t,
		"import { a } from './a.js';\nimport { fmt } from './utils/index.js';\n",
		readFile(t, app))
}

func TestRunner_SecondRunIsNoOp(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "app.ts", "import { a } from './a';\n")
	writeFile(t, root, "a.ts", "export const a = 1;\n")

	r := newTestRunner(t, nil, Options{})

	first, err := r.Run(root)
	require.NoError(t, err)
	require.Equal(t, 1, first.SpecifiersRewritten)

	second, err := r.Run(root)
	require.NoError(t, err)

	assert.Equal(t, 0, second.FilesRewritten)
	assert.Equal(t, 0, second.SpecifiersRewritten)
}

// A file that needs no rewriting must not even be opened for writing.
func TestRunner_UnchangedFileNotTouched(t *testing.T) {
	root := t.TempDir()

	clean := writeFile(t, root, "clean.ts", "import React from 'react';\n")
	writeFile(t, root, "app.ts", "import { a } from './a';\n")
	writeFile(t, root, "a.ts", "export const a = 1;\n")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(clean, past, past))

	before, err := os.Stat(clean)
	require.NoError(t, err)

	r := newTestRunner(t, nil, Options{})
	stats, err := r.Run(root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesRewritten)

	after, err := os.Stat(clean)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestRunner_VendorFilesNeverTouched(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "app.ts", "import { a } from './a';\n")
	writeFile(t, root, "a.ts", "export const a = 1;\n")
	vendored := writeFile(t, root, "node_modules/dep/index.ts", "import { x } from './x';\n")

	r := newTestRunner(t, nil, Options{})
	stats, err := r.Run(root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesScanned)
	assert.Equal(t, "import { x } from './x';\n", readFile(t, vendored))
}

func TestRunner_JSXOption(t *testing.T) {
	root := t.TempDir()

	app := writeFile(t, root, "app.tsx", "import Button from './button';\nexport default Button;\n")
	writeFile(t, root, "button.tsx", "export default function Button() { return <div/>; }\n")

	r := newTestRunner(t, nil, Options{JSX: true})

	_, err := r.Run(root)
	require.NoError(t, err)

	assert.Contains(t, readFile(t, app), "from './button.jsx'")
}

func TestRunner_EmptyTree(t *testing.T) {
	r := newTestRunner(t, nil, Options{})

	stats, err := r.Run(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.FilesScanned)
	assert.Equal(t, 0, stats.FilesRewritten)
}

func TestRunner_MissingRootIsStartupFailure(t *testing.T) {
	r := newTestRunner(t, nil, Options{})

	_, err := r.Run(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

// failingFormatter fails on one path and passes everything else through.
type failingFormatter struct {
	failOn string
}

func (f *failingFormatter) Format(_ context.Context, filePath string, source []byte) ([]byte, error) {
	if filePath == f.failOn {
		return nil, fmt.Errorf("formatter exploded")
	}
	return source, nil
}

// One file's formatter failure must not block any other file, and the
// failed file must keep its original content.
func TestRunner_FailureIsolation(t *testing.T) {
	root := t.TempDir()

	bad := writeFile(t, root, "bad.ts", "import { a } from './a';\n")
	good := writeFile(t, root, "good.ts", "import { a } from './a';\n")
	writeFile(t, root, "a.ts", "export const a = 1;\n")

	r := newTestRunner(t, &failingFormatter{failOn: bad}, Options{})

	stats, err := r.Run(root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, bad, stats.Errors[0].FilePath)

	assert.Equal(t, "import { a } from './a';\n", readFile(t, bad))
	assert.Equal(t, "import { a } from './a.js';\n", readFile(t, good))
}

func TestRunner_ExtraExcludePatterns(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "src/app.ts", "import { a } from './a';\n")
	writeFile(t, root, "src/a.ts", "export const a = 1;\n")
	generated := writeFile(t, root, "gen/api.ts", "import { a } from '../src/a';\n")

	r := newTestRunner(t, nil, Options{Exclude: []string{"gen/**"}})

	stats, err := r.Run(root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesScanned)
	assert.Equal(t, "import { a } from '../src/a';\n", readFile(t, generated))
}
