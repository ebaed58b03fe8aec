// Package queries provides tree-sitter query compilation, caching, and
// execution for module specifier extraction.
package queries

import (
	"fmt"
	"log/slog"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/esmfix/pkg/parser"
)

// queryKey uniquely identifies a compiled query (grammar variant).
type queryKey struct {
	lang  parser.Language
	isTSX bool
}

// Manager compiles and caches the specifier query per grammar variant.
//
// Queries are compiled lazily on first use and cached behind a RWMutex,
// mirroring the parser pool's double-checked locking. A query compiled
// against one grammar must not run on a tree parsed with another, so TSX
// gets its own cache entry even though the query text is identical.
type Manager struct {
	parsers *parser.Manager
	cache   map[queryKey]*ts.Query
	mutex   sync.RWMutex
	logger  *slog.Logger
}

// NewManager creates a new query manager.
//
// The parser manager is required to access grammar pointers for query
// compilation. Logger may be nil.
func NewManager(parsers *parser.Manager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		parsers: parsers,
		cache:   make(map[queryKey]*ts.Query),
		logger:  logger,
	}
}

// SpecifierQuery returns the compiled specifier query for a grammar variant.
//
// Returns an error if the language is unsupported or compilation fails.
func (m *Manager) SpecifierQuery(lang parser.Language, isTSX bool) (*ts.Query, error) {
	key := queryKey{lang: lang, isTSX: isTSX}

	m.mutex.RLock()
	query, exists := m.cache[key]
	m.mutex.RUnlock()

	if exists {
		return query, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if query, exists = m.cache[key]; exists {
		return query, nil
	}

	langPtr, err := m.parsers.GetLanguagePointer(lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to get language pointer for %s: %w", lang, err)
	}

	query, qerr := ts.NewQuery(ts.NewLanguage(langPtr), Specifiers)
	if qerr != nil {
		return nil, fmt.Errorf("failed to compile specifier query for %s: %s", lang, qerr.Message)
	}

	m.cache[key] = query

	m.logger.Debug("compiled specifier query",
		"language", lang.String(),
		"isTSX", isTSX)

	return query, nil
}

// Capture is a single captured specifier node from query execution.
type Capture struct {
	// Name is the capture name (e.g. "specifier.static")
	Name string

	// Text is the specifier text, without the surrounding quotes
	Text string

	// StartByte and EndByte delimit the specifier text in the source
	StartByte uint
	EndByte   uint
}

// Matches runs a compiled query on a parse tree and returns every
// specifier capture with its byte range in the source.
func (m *Manager) Matches(tree *ts.Tree, query *ts.Query, source []byte) ([]Capture, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree is nil")
	}
	if query == nil {
		return nil, fmt.Errorf("query is nil")
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	iter := cursor.Matches(query, tree.RootNode(), source)
	captureNames := query.CaptureNames()

	var captures []Capture
	for {
		match := iter.Next()
		if match == nil {
			break
		}

		for _, capture := range match.Captures {
			var name string
			if int(capture.Index) < len(captureNames) {
				name = captureNames[capture.Index]
			}

			captures = append(captures, Capture{
				Name:      name,
				Text:      capture.Node.Utf8Text(source),
				StartByte: capture.Node.StartByte(),
				EndByte:   capture.Node.EndByte(),
			})
		}
	}

	return captures, nil
}

// Close releases all compiled queries.
// After Close(), the Manager cannot be used.
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, query := range m.cache {
		if query != nil {
			query.Close()
		}
		delete(m.cache, key)
	}

	return nil
}
